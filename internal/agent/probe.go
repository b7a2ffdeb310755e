// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/seahorse-keys/seahorse/internal/protocol"
	"github.com/seahorse-keys/seahorse/internal/transport"
)

// DefaultProbeTimeout bounds a whole handshake: connect, both reads and the write.
const DefaultProbeTimeout = 2 * time.Second

// Prober runs the agent identification handshake on a socket.
type Prober struct {
	// Timeout bounds the exchange. Zero means DefaultProbeTimeout.
	Timeout time.Duration

	Logger *slog.Logger
}

// Probe connects to socketPath and classifies the peer:
//
//	peer   -> "OK ..."               (anything else: KindNone)
//	prober -> "AGENT_ID"
//	peer   -> "OK seahorse-agent..." (KindMine, anything else: KindOther)
//
// Once a valid greeting has been seen the result never drops below
// KindOther, even if the AGENT_ID exchange fails. The socket is closed on
// every path.
func (p *Prober) Probe(ctx context.Context, socketPath string) Kind {
	logger := p.logger()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := transport.NewIPC(socketPath)
	if err := client.Dial(ctx); err != nil {
		logger.Debug("agent socket unreachable", "socket", socketPath, "error", err)
		return KindNone
	}
	defer client.Close()

	if deadline, ok := ctx.Deadline(); ok {
		client.SetDeadline(deadline)
	}

	// Server always speaks first
	line, err := client.ReadLine()
	if err != nil {
		logger.Debug("no greeting from agent", "socket", socketPath, "error", err)
		return KindNone
	}
	if !strings.HasPrefix(protocol.TrimLine(line), protocol.StatusOK) {
		logger.Debug("agent greeting is not OK", "socket", socketPath, "greeting", line)
		return KindNone
	}

	if err := client.WriteLine(protocol.CmdAgentID); err != nil {
		logger.Debug("failed to send AGENT_ID", "socket", socketPath, "error", err)
		return KindOther
	}

	line, err = client.ReadLine()
	if err != nil {
		logger.Debug("no AGENT_ID reply", "socket", socketPath, "error", err)
		return KindOther
	}
	if strings.HasPrefix(protocol.TrimLine(line), protocol.AgentBannerPrefix) {
		return KindMine
	}
	return KindOther
}

func (p *Prober) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
