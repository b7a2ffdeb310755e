// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/seahorse-keys/seahorse/internal/agent"
	"github.com/seahorse-keys/seahorse/internal/agentd"
	"github.com/seahorse-keys/seahorse/internal/command"
	"github.com/seahorse-keys/seahorse/internal/protocol"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	offStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (s *session) cmdStatus(args []string, ctx *command.Context) error {
	if len(args) != 0 {
		return command.ErrUsage
	}

	st := s.newDetector().Status(ctx.Context())
	ctx.Printf("%s\n", statusHeadline(st))

	switch st.Kind {
	case agent.KindMine:
		printField(ctx, "Source:", string(st.Source))
		printField(ctx, "Socket:", st.Descriptor.SocketPath)
		printField(ctx, "PID:", fmt.Sprint(st.Descriptor.PID))
		if id, ttl, err := s.agentDetails(ctx, st.Descriptor.SocketPath); err == nil {
			printField(ctx, "Agent:", id)
			if ttl == "0" {
				printField(ctx, "Expiry:", "never")
			} else {
				printField(ctx, "Expiry:", ttl+"s")
			}
		}

	case agent.KindOther:
		printField(ctx, "Source:", string(st.Source))
		printField(ctx, "Socket:", st.Descriptor.SocketPath)
		ctx.Printf("\nAnother agent owns this session. Seahorse cannot manage its cache.\n")

	default:
		if st.Reason != "" {
			printField(ctx, "Reason:", st.Reason)
		}
		ctx.Printf("\nStart one with: seahorse start-agent\n")
	}
	return nil
}

// statusHeadline is the one-line summary shared with the prefs editor.
func statusHeadline(st agent.Status) string {
	switch st.Kind {
	case agent.KindMine:
		return okStyle.Render("seahorse-agent is running")
	case agent.KindOther:
		return warnStyle.Render("Another passphrase agent is running")
	default:
		return offStyle.Render("No passphrase agent is running")
	}
}

func printField(ctx *command.Context, label, value string) {
	ctx.Printf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-8s", label)), value)
}

// agentDetails asks a running agent for its identity and cache expiry.
func (s *session) agentDetails(ctx *command.Context, socketPath string) (id, ttl string, err error) {
	c, err := agentd.Dial(ctx.Context(), socketPath, ctx.Timeout)
	if err != nil {
		return "", "", err
	}
	defer c.Close()
	if id, err = c.AgentID(); err != nil {
		return "", "", err
	}
	if ttl, err = c.GetInfo(protocol.InfoTTL); err != nil {
		return "", "", err
	}
	return id, ttl, nil
}
