// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/seahorse-keys/seahorse/internal/agent"
	"github.com/seahorse-keys/seahorse/internal/command"
)

const agentBinaryName = "seahorse-agent"

// defaultAgentBinary prefers a seahorse-agent installed next to this
// executable, then falls back to $PATH.
func defaultAgentBinary() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), agentBinaryName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return agentBinaryName
}

func (s *session) cmdStartAgent(args []string, ctx *command.Context) error {
	if len(args) != 0 {
		return command.ErrUsage
	}

	st := s.newDetector().Status(ctx.Context())
	switch st.Kind {
	case agent.KindMine:
		ctx.Printf("seahorse-agent is already running (pid %d)\n", st.Descriptor.PID)
		return nil
	case agent.KindOther:
		return fmt.Errorf("another agent is already running at %s", st.Descriptor.SocketPath)
	}

	argv := []string{
		"--daemon",
		"--publish",
		"--data-dir", ctx.DataDir,
		"--socket", ctx.SocketPath,
	}
	if ctx.GnuPGHome != "" {
		argv = append(argv, "--gnupg-home", ctx.GnuPGHome)
	}

	// #nosec G204 - binary is our own agent, arguments are flags we build
	cmd := exec.CommandContext(ctx.Context(), s.agentBinary, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	ctx.Log().Debug("starting agent", "binary", s.agentBinary, "args", argv)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = exitErr.Error()
			}
			return fmt.Errorf("seahorse-agent failed to start: %s", msg)
		}
		return fmt.Errorf("failed to run %s: %w", s.agentBinary, err)
	}

	// The daemon prints the shell snippet exporting its descriptor.
	_, _ = ctx.Out().Write(stdout.Bytes())
	return nil
}
