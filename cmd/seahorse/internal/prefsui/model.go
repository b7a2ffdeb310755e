// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package prefsui is the interactive editor behind "seahorse prefs edit".
package prefsui

import (
	"github.com/seahorse-keys/seahorse/internal/prefs"

	tea "github.com/charmbracelet/bubbletea"
)

// Store is the subset of the preference store the editor needs.
type Store interface {
	Snapshot() prefs.Prefs
	Set(v prefs.Value) error
	Reload() error
	Path() string
}

// Model is the bubbletea model for the preferences editor.
type Model struct {
	store  Store
	keys   []prefs.KeyInfo
	values []prefs.Value

	cursor      int
	agentStatus string // one-line agent summary shown under the title
	message     string
	lastError   string
	quitting    bool
	width       int
}

// New creates an editor over store. agentStatus is shown verbatim.
func New(store Store, agentStatus string) Model {
	m := Model{
		store:       store,
		keys:        prefs.Keys(),
		agentStatus: agentStatus,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

// Cursor returns the index of the selected preference.
func (m Model) Cursor() int {
	return m.cursor
}

// Value returns the displayed value of the preference at i.
func (m Model) Value(i int) prefs.Value {
	return m.values[i]
}

func (m *Model) refresh() {
	snap := m.store.Snapshot()
	m.values = make([]prefs.Value, len(m.keys))
	for i, k := range m.keys {
		v, err := snap.Get(k.Name)
		if err != nil {
			m.lastError = err.Error()
			continue
		}
		m.values[i] = v
	}
}

func (m *Model) selected() (prefs.KeyInfo, prefs.Value) {
	return m.keys[m.cursor], m.values[m.cursor]
}

// apply writes v through the store and re-reads every value.
func (m *Model) apply(v prefs.Value) {
	m.message = ""
	m.lastError = ""
	if err := m.store.Set(v); err != nil {
		m.lastError = err.Error()
		return
	}
	m.message = "Saved " + v.Key + " = " + v.String()
	m.refresh()
}
