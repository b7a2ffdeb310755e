// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

//go:build unix

package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/seahorse-keys/seahorse/internal/agent"
)

// EnabledEnv gates the integration suite; it builds binaries and spawns
// daemons, so it only runs when asked for.
const EnabledEnv = "SEAHORSE_INTEGRATION"

// Env is an isolated user session: its own data dir, GnuPG home and
// runtime dir, plus whatever GPG_AGENT_INFO the session has exported.
type Env struct {
	t         *testing.T
	binDir    string
	DataDir   string
	GnuPGHome string
	Socket    string
	AgentInfo string
}

// NewEnv skips the test unless the suite is enabled, then builds the
// binaries and lays out a fresh session under t.TempDir().
func NewEnv(t *testing.T) *Env {
	t.Helper()
	if os.Getenv(EnabledEnv) == "" {
		t.Skipf("%s not set, skipping integration test", EnabledEnv)
	}

	root := t.TempDir()
	e := &Env{
		t:         t,
		binDir:    Binaries(t),
		DataDir:   filepath.Join(root, "data"),
		GnuPGHome: filepath.Join(root, "gnupg"),
	}
	// Unix socket paths are short; keep the runtime dir near the root.
	runtimeDir, err := os.MkdirTemp("", "sh-run-")
	if err != nil {
		t.Fatalf("Failed to create runtime dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(runtimeDir) })
	e.Socket = filepath.Join(runtimeDir, "S.seahorse-agent")

	for _, dir := range []string{e.DataDir, e.GnuPGHome} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	return e
}

func (e *Env) environ() []string {
	env := make([]string, 0, len(os.Environ())+4)
	for _, kv := range os.Environ() {
		switch {
		case strings.HasPrefix(kv, agent.EnvVar+"="),
			strings.HasPrefix(kv, "GNUPGHOME="),
			strings.HasPrefix(kv, "SEAHORSE_DATA="):
			continue
		}
		env = append(env, kv)
	}
	env = append(env,
		"GNUPGHOME="+e.GnuPGHome,
		"SEAHORSE_DATA="+e.DataDir,
		agent.EnvVar+"="+e.AgentInfo,
	)
	return env
}

// Run executes seahorse with the session's environment.
func (e *Env) Run(args ...string) (string, error) {
	return e.RunWithInput("", args...)
}

// RunWithInput executes seahorse with stdin input. Stdout and stderr are
// returned combined.
func (e *Env) RunWithInput(input string, args ...string) (string, error) {
	return e.exec("seahorse", input, append([]string{"--socket", e.Socket}, args...)...)
}

func (e *Env) exec(binary, input string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, filepath.Join(e.binDir, binary), args...)
	cmd.Env = e.environ()
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if testing.Verbose() {
		if stdout.Len() > 0 {
			e.t.Logf("%s stdout: %s", binary, stdout.String())
		}
		if stderr.Len() > 0 {
			e.t.Logf("%s stderr: %s", binary, stderr.String())
		}
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\n" + stderr.String()
	}
	if err != nil {
		return output, fmt.Errorf("%s command failed: %w\nOutput: %s", binary, err, output)
	}
	return output, nil
}

// StartAgent launches a detached, published seahorse-agent and records
// the GPG_AGENT_INFO value it printed. The agent is terminated when the
// test ends.
func (e *Env) StartAgent() agent.Descriptor {
	e.t.Helper()
	out, err := e.exec("seahorse-agent", "",
		"--daemon", "--publish",
		"--data-dir", e.DataDir,
		"--gnupg-home", e.GnuPGHome,
		"--socket", e.Socket,
	)
	if err != nil {
		e.t.Fatalf("Failed to start agent: %v", err)
	}
	return e.Adopt(out)
}

// Adopt takes the descriptor from a `GPG_AGENT_INFO=...; export` line and
// schedules the agent's shutdown.
func (e *Env) Adopt(output string) agent.Descriptor {
	e.t.Helper()
	value, ok := ExportedAgentInfo(output)
	if !ok {
		e.t.Fatalf("No %s export in output: %q", agent.EnvVar, output)
	}
	desc, ok := agent.ParseDescriptor(value)
	if !ok || desc.PID <= 0 {
		e.t.Fatalf("Invalid descriptor %q", value)
	}
	e.AgentInfo = value
	e.t.Cleanup(func() { e.StopAgent(desc.PID) })
	return desc
}

// StopAgent sends SIGTERM and waits for the process to go away.
func (e *Env) StopAgent(pid int) {
	if !agent.IsProcessRunning(pid) {
		return
	}
	_ = syscall.Kill(pid, syscall.SIGTERM)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !agent.IsProcessRunning(pid) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	e.t.Logf("agent %d did not exit after SIGTERM", pid)
}

// GPGConf returns the current contents of the session's gpg.conf.
func (e *Env) GPGConf() string {
	data, err := os.ReadFile(filepath.Join(e.GnuPGHome, "gpg.conf"))
	if err != nil {
		return ""
	}
	return string(data)
}

// ExportedAgentInfo extracts the value from a shell export line.
func ExportedAgentInfo(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), agent.EnvVar+"=")
		if !ok {
			continue
		}
		value, _, _ := strings.Cut(rest, ";")
		return value, value != ""
	}
	return "", false
}
