// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package command

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps command names and aliases to commands.
type Registry struct {
	commands map[string]*Command
	primary  []*Command
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		primary:  make([]*Command, 0),
	}
}

// Register adds cmd under its name and aliases. A name or alias that is
// already taken is an error and leaves the registry unchanged.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil || cmd.Name == "" || cmd.Handler == nil {
		return fmt.Errorf("command must have a name and a handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := append([]string{cmd.Name}, cmd.Aliases...)
	for _, name := range names {
		if existing, exists := r.commands[name]; exists {
			if name == cmd.Name {
				return fmt.Errorf("command %q already registered", existing.Name)
			}
			return fmt.Errorf("alias %q conflicts with existing command %q",
				name, existing.Name)
		}
	}

	for _, name := range names {
		r.commands[name] = cmd
	}
	r.primary = append(r.primary, cmd)
	return nil
}

// MustRegister is Register for built-in command tables.
func (r *Registry) MustRegister(cmds ...*Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

func (r *Registry) All() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Command, len(r.primary))
	copy(result, r.primary)
	return result
}

func (r *Registry) ByCategory() map[string][]*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make(map[string][]*Command)
	for _, cmd := range r.primary {
		categories[cmd.Category] = append(categories[cmd.Category], cmd)
	}

	for _, cmds := range categories {
		sort.Slice(cmds, func(i, j int) bool {
			return cmds[i].Name < cmds[j].Name
		})
	}

	return categories
}

// Run looks up args[0] and executes it with the remaining arguments.
// ErrUsage from a handler is wrapped with the command's usage line.
func (r *Registry) Run(args []string, ctx *Context) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrUsage)
	}
	cmd, ok := r.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
	if err := cmd.Handler.Execute(args[1:], ctx); err != nil {
		if err == ErrUsage {
			return fmt.Errorf("%w: %s", ErrUsage, cmd.Usage)
		}
		return err
	}
	return nil
}

// Suggest returns registered names sharing the given prefix, sorted.
func (r *Registry) Suggest(prefix string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for name := range r.commands {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
