// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package prefsui

import (
	"github.com/seahorse-keys/seahorse/internal/prefs"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles all TUI events and messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.keys)-1 {
			m.cursor++
		}

	case " ", "enter":
		info, v := m.selected()
		if info.Kind == prefs.KindBool {
			v.Bool = !v.Bool
			m.apply(v)
		}

	case "+", "right", "l":
		m.adjust(1)

	case "-", "left", "h":
		m.adjust(-1)

	case "r":
		m.message = ""
		m.lastError = ""
		if err := m.store.Reload(); err != nil {
			m.lastError = err.Error()
		} else {
			m.message = "Reloaded " + m.store.Path()
		}
		m.refresh()
	}
	return m, nil
}

func (m *Model) adjust(delta int) {
	info, v := m.selected()
	if info.Kind != prefs.KindInt {
		return
	}
	v.Int += delta
	m.apply(v)
}
