// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

//go:build !unix

package agent

// IsProcessRunning always reports false: agents live on Unix sockets.
func IsProcessRunning(pid int) bool {
	return false
}
