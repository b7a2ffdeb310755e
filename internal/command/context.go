// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/seahorse-keys/seahorse/internal/prefs"
	"github.com/seahorse-keys/seahorse/internal/progress"
	"github.com/seahorse-keys/seahorse/internal/util"
)

// Context provides command handlers with the session state of one CLI run.
type Context struct {
	Ctx context.Context

	DataDir    string
	GnuPGHome  string
	SocketPath string
	Timeout    time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger   *slog.Logger
	Prefs    *prefs.Store
	Progress *progress.Tracker

	// ReadPassword prompts for a secret, without echo on a terminal.
	ReadPassword func(prompt string) ([]byte, error)
}

// Context returns the Go context for blocking calls.
func (c *Context) Context() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}

// Out returns the writer for normal output.
func (c *Context) Out() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

// Err returns the writer for diagnostics.
func (c *Context) Err() io.Writer {
	if c.Stderr != nil {
		return c.Stderr
	}
	return os.Stderr
}

// Printf writes formatted output to Out.
func (c *Context) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.Out(), format, args...)
}

// ReadSecret prompts for a secret through ReadPassword.
func (c *Context) ReadSecret(prompt string) ([]byte, error) {
	if c.ReadPassword == nil {
		return nil, fmt.Errorf("cannot prompt for %q: no input available", prompt)
	}
	return c.ReadPassword(prompt)
}

// Log returns the session logger.
func (c *Context) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return util.Logger
}
