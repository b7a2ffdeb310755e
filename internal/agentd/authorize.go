// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agentd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// ErrDenied is returned when an authorizer refuses a release.
var ErrDenied = errors.New("release denied")

// AuthRequest describes a pending passphrase release.
type AuthRequest struct {
	CacheID     string
	Prompt      string
	Description string
	PeerPID     int
}

// Authorizer approves releasing a cached passphrase to a client.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthRequest) error
}

// AllowAll approves every release.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, AuthRequest) error { return nil }

// DenyAll refuses every release.
type DenyAll struct{}

func (DenyAll) Authorize(context.Context, AuthRequest) error { return ErrDenied }

// Environment variables passed to an authorize command.
const (
	EnvCacheID     = "SEAHORSE_CACHE_ID"
	EnvPrompt      = "SEAHORSE_PROMPT"
	EnvDescription = "SEAHORSE_DESCRIPTION"
	EnvPeerPID     = "SEAHORSE_PEER_PID"
)

// CommandAuthorizer runs an external helper and approves the release only
// if it exits 0 within Timeout. The helper gets no inherited environment;
// it sees Env plus the SEAHORSE_* variables describing the request.
type CommandAuthorizer struct {
	Argv    []string
	Env     map[string]string
	Timeout time.Duration
}

// Validate checks that Argv names a safe absolute executable.
func (c *CommandAuthorizer) Validate() error {
	if len(c.Argv) == 0 {
		return errors.New("authorize command: must be non-empty")
	}
	if !filepath.IsAbs(c.Argv[0]) {
		return fmt.Errorf("authorize command: %q must be an absolute path", c.Argv[0])
	}
	return validateBinary(c.Argv[0])
}

func (c *CommandAuthorizer) Authorize(ctx context.Context, req AuthRequest) error {
	if err := c.Validate(); err != nil {
		return err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(c.Argv[0], c.Argv[1:]...) //nolint:gosec // validated above
	cmd.Env = c.environ(req)
	cmd.Stdin = nil
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	ownProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("authorize command: failed to start: %w", err)
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	select {
	case err := <-waitDone:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDenied, err)
		}
		return nil
	case <-ctx.Done():
		killHelper(cmd)
		<-waitDone
		return fmt.Errorf("%w: authorize command did not finish: %v", ErrDenied, ctx.Err())
	}
}

func (c *CommandAuthorizer) environ(req AuthRequest) []string {
	env := make([]string, 0, len(c.Env)+4)
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}
	return append(env,
		EnvCacheID+"="+req.CacheID,
		EnvPrompt+"="+req.Prompt,
		EnvDescription+"="+req.Description,
		EnvPeerPID+"="+strconv.Itoa(req.PeerPID),
	)
}

// validateBinary rejects directories, non-executables and group or world
// writable files.
func validateBinary(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("authorize command: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("authorize command: %s is a directory", path)
	}
	perm := info.Mode().Perm()
	if perm&0111 == 0 {
		return fmt.Errorf("authorize command: %s is not executable (mode %04o)", path, perm)
	}
	if perm&0022 != 0 {
		return fmt.Errorf("authorize command: %s is group or world writable (mode %04o)", path, perm)
	}
	return nil
}
