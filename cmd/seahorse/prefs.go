// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/seahorse-keys/seahorse/cmd/seahorse/internal/prefsui"
	"github.com/seahorse-keys/seahorse/internal/command"
	"github.com/seahorse-keys/seahorse/internal/prefs"
)

func (s *session) cmdPrefs(args []string, ctx *command.Context) error {
	if len(args) == 0 {
		return s.printPrefs(ctx)
	}
	switch args[0] {
	case "set":
		if len(args) != 3 {
			return command.ErrUsage
		}
		if err := ctx.Prefs.SetString(args[1], args[2]); err != nil {
			return err
		}
		v, err := ctx.Prefs.Get(args[1])
		if err != nil {
			return err
		}
		ctx.Printf("%s = %s\n", v.Key, v)
		return nil

	case "edit":
		if len(args) != 1 {
			return command.ErrUsage
		}
		return s.editPrefs(ctx)

	default:
		return command.ErrUsage
	}
}

func (s *session) printPrefs(ctx *command.Context) error {
	ctx.Printf("Preferences: %s\n\n", ctx.Prefs.Path())
	for _, k := range prefs.Keys() {
		v, err := ctx.Prefs.Get(k.Name)
		if err != nil {
			return err
		}
		ctx.Printf("  %-22s %-6s %s\n", k.Name, v, labelStyle.Render(k.Description))
	}

	snap := ctx.Prefs.Snapshot()
	if len(snap.Agent.AuthorizeCommand) > 0 {
		ctx.Printf("\n  %-22s %v (timeout %s)\n", "authorize command", snap.Agent.AuthorizeCommand, snap.AuthorizeTimeout())
	}
	return nil
}

func (s *session) editPrefs(ctx *command.Context) error {
	st := s.newDetector().Status(ctx.Context())
	model := prefsui.New(ctx.Prefs, statusHeadline(st))

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx.Context()),
		tea.WithInput(ctx.Stdin),
		tea.WithOutput(ctx.Out()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("preferences editor failed: %w", err)
	}
	return nil
}
