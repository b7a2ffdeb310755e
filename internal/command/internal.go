// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package command

// HandlerFunc adapts a Go function to the Handler interface.
type HandlerFunc func(args []string, ctx *Context) error

// Execute implements the Handler interface
func (f HandlerFunc) Execute(args []string, ctx *Context) error {
	return f(args, ctx)
}

// Subcommands dispatches on the first argument to a nested handler.
// An empty or unknown subcommand returns ErrUsage.
type Subcommands map[string]Handler

// Execute implements the Handler interface
func (s Subcommands) Execute(args []string, ctx *Context) error {
	if len(args) == 0 {
		return ErrUsage
	}
	h, ok := s[args[0]]
	if !ok {
		return ErrUsage
	}
	return h.Execute(args[1:], ctx)
}
