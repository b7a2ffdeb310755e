// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package command provides the command registry and execution context
// shared by the seahorse CLI.
package command

import "errors"

// ErrUsage marks an error caused by bad arguments; the CLI prints the
// command's usage alongside it.
var ErrUsage = errors.New("usage error")

// Command represents a CLI command with metadata
type Command struct {
	Name        string   // Primary command name
	Aliases     []string // Alternative names (e.g., "ls" for "list")
	Usage       string   // Usage string: "keys export [--seal] <file> <id>..."
	Description string   // One-line description
	LongHelp    string   // Multi-line detailed help (optional)
	Category    string   // "Agent", "Key Management", etc.
	Handler     Handler  // Command execution handler
}

// Handler is the interface all command handlers must implement
type Handler interface {
	Execute(args []string, ctx *Context) error
}

// Category constants for organizing commands
const (
	CategoryAgent  = "Agent"
	CategoryCache  = "Passphrase Cache"
	CategoryKeys   = "Key Management"
	CategoryConfig = "Configuration"
	CategoryInfo   = "Information"
)

// categoryOrder is the order categories appear in help output.
var categoryOrder = []string{
	CategoryAgent,
	CategoryCache,
	CategoryKeys,
	CategoryConfig,
	CategoryInfo,
}
