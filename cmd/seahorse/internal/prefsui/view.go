// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package prefsui

import (
	"fmt"
	"strings"

	"github.com/seahorse-keys/seahorse/internal/prefs"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// View renders the editor.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Passphrase cache preferences"))
	b.WriteString("\n")
	if m.agentStatus != "" {
		b.WriteString(subtitleStyle.Render(m.agentStatus))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, k := range m.keys {
		cursor := "  "
		line := fmt.Sprintf("%-22s %-6s %s", k.Name, formatValue(m.values[i]), k.Description)
		if i == m.cursor {
			cursor = "> "
			line = selectedStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}

	b.WriteString("\n")
	if m.lastError != "" {
		b.WriteString(errorStyle.Render("Error: " + m.lastError))
		b.WriteString("\n")
	} else if m.message != "" {
		b.WriteString(messageStyle.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ select • space toggle • +/- adjust • r reload • q quit"))
	b.WriteString("\n")
	return b.String()
}

func formatValue(v prefs.Value) string {
	if v.Kind == prefs.KindBool {
		if v.Bool {
			return "on"
		}
		return "off"
	}
	return v.String()
}
