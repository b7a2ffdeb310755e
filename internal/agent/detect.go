// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agent

import (
	"context"
	"log/slog"
	"os"
)

// OptionName is the gpg.conf option that seahorse-agent publishes itself under.
const OptionName = "gpg-agent-info"

// EnvVar is the environment variable a user-started agent exports.
const EnvVar = "GPG_AGENT_INFO"

// OptionFinder looks up a configuration option by name.
type OptionFinder interface {
	FindOption(name string) (value string, found bool, err error)
}

// SocketProber classifies the peer listening on a socket.
type SocketProber interface {
	Probe(ctx context.Context, socketPath string) Kind
}

// Source says where a descriptor string came from.
type Source string

const (
	SourceNone        Source = "none"
	SourceConfig      Source = "gpg.conf"
	SourceEnvironment Source = "environment"
)

// Status is the full result of a detection run.
type Status struct {
	Kind       Kind
	Source     Source
	Raw        string     // Descriptor string as found
	Descriptor Descriptor // Parsed descriptor (zero if Raw was malformed)
	Reason     string     // Why Kind is KindNone, when it is
}

// Detector finds out which agent is running for the current user.
// Zero-valued fields fall back to the real environment.
type Detector struct {
	Options OptionFinder                // nil skips the config lookup
	Getenv  func(string) (string, bool) // defaults to os.LookupEnv
	Alive   func(pid int) bool          // defaults to IsProcessRunning
	Prober  SocketProber                // defaults to &Prober{}
	Logger  *slog.Logger
}

// WhichAgentRunning returns the classification of the current agent.
func (d *Detector) WhichAgentRunning(ctx context.Context) Kind {
	return d.Status(ctx).Kind
}

// Status runs detection and reports how the classification was reached.
//
// The gpg.conf option takes precedence over the environment because
// seahorse-agent edits gpg.conf itself. No socket I/O happens unless the
// descriptor is valid and its process is alive.
func (d *Detector) Status(ctx context.Context) Status {
	logger := d.logger()

	raw, source := d.lookup()
	if source == SourceNone {
		return Status{Kind: KindNone, Source: SourceNone, Reason: "no agent configured"}
	}

	st := Status{Kind: KindNone, Source: source, Raw: raw}
	desc, ok := ParseDescriptor(raw)
	if !ok {
		logger.Debug("malformed agent descriptor", "source", source, "value", raw)
		st.Reason = "malformed agent descriptor"
		return st
	}
	st.Descriptor = desc

	if !desc.Valid() {
		logger.Debug("unusable agent descriptor", "source", source, "pid", desc.PID, "version", desc.ProtocolVersion)
		st.Reason = "unsupported protocol version or missing pid"
		return st
	}

	if !d.alive(desc.PID) {
		logger.Debug("agent process not running", "pid", desc.PID)
		st.Reason = "agent process not running"
		return st
	}

	st.Kind = d.prober().Probe(ctx, desc.SocketPath)
	if st.Kind == KindNone {
		st.Reason = "agent socket did not answer"
	}
	return st
}

// lookup returns the descriptor string from gpg.conf, else the environment.
func (d *Detector) lookup() (string, Source) {
	if d.Options != nil {
		value, found, err := d.Options.FindOption(OptionName)
		if err != nil {
			d.logger().Debug("failed to read agent option", "option", OptionName, "error", err)
		} else if found && value != "" {
			return value, SourceConfig
		}
		// An empty gpg-agent-info line is treated as unset, so the
		// environment still gets a say.
	}

	getenv := d.Getenv
	if getenv == nil {
		getenv = os.LookupEnv
	}
	if value, ok := getenv(EnvVar); ok && value != "" {
		return value, SourceEnvironment
	}
	return "", SourceNone
}

func (d *Detector) alive(pid int) bool {
	if d.Alive != nil {
		return d.Alive(pid)
	}
	return IsProcessRunning(pid)
}

func (d *Detector) prober() SocketProber {
	if d.Prober != nil {
		return d.Prober
	}
	return &Prober{Logger: d.Logger}
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
