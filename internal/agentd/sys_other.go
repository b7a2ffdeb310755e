// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

//go:build !unix

package agentd

import (
	"os"
	"os/exec"
)

func ownProcessGroup(*exec.Cmd) {}

// killHelper kills the helper only; its children may outlive it.
func killHelper(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// fileOwner is unknown here; the ownership check is skipped.
func fileOwner(os.FileInfo) (uint32, bool) { return 0, false }
