// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package util

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDirEnv overrides the default data directory.
const DataDirEnv = "SEAHORSE_DATA"

// GetDataDir returns the seahorse data directory.
// Resolution order: -d flag > SEAHORSE_DATA env var > ~/.seahorse
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return ExpandHome(flagValue)
	}
	if envDir := os.Getenv(DataDirEnv); envDir != "" {
		return ExpandHome(envDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "" // Can't determine default
	}
	return filepath.Join(home, ".seahorse")
}

// KeyringDir returns the directory holding the local keyring.
func KeyringDir(dataDir string) string {
	return filepath.Join(dataDir, "keyring")
}

// DefaultSocketPath returns the agent socket path for a data directory.
// $XDG_RUNTIME_DIR is preferred because it is private to the user.
func DefaultSocketPath(dataDir string) string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "seahorse", "S.seahorse-agent")
	}
	return filepath.Join(dataDir, "S.seahorse-agent")
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ResolvePath resolves a path relative to baseDir.
// Absolute paths and ~ paths are returned expanded but otherwise unchanged.
func ResolvePath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	path = ExpandHome(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
