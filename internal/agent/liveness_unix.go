// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

//go:build unix

package agent

import (
	"math"

	"golang.org/x/sys/unix"
)

// IsProcessRunning reports whether pid names a live process owned by the
// calling user. Signal 0 performs the permission and existence checks
// without delivering anything. EPERM means the process belongs to someone
// else, and another user's agent is of no use to us. Pids outside pid_t
// are never running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 || int64(pid) > math.MaxInt32 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
