// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package main

import (
	"errors"
	"fmt"

	"github.com/seahorse-keys/seahorse/internal/agent"
	"github.com/seahorse-keys/seahorse/internal/agentd"
	"github.com/seahorse-keys/seahorse/internal/command"
	"github.com/seahorse-keys/seahorse/internal/crypto"
)

var errNoSeahorseAgent = errors.New("seahorse-agent is not running (try 'seahorse start-agent')")

// dialAgent connects to the running seahorse-agent. Another agent is
// refused since it would not understand PRESET_PASSPHRASE the same way.
func (s *session) dialAgent(ctx *command.Context) (*agentd.Client, error) {
	st := s.newDetector().Status(ctx.Context())
	switch st.Kind {
	case agent.KindMine:
	case agent.KindOther:
		return nil, fmt.Errorf("the running agent at %s is not seahorse-agent", st.Descriptor.SocketPath)
	default:
		return nil, errNoSeahorseAgent
	}
	return agentd.Dial(ctx.Context(), st.Descriptor.SocketPath, ctx.Timeout)
}

func (s *session) cmdCacheSet(args []string, ctx *command.Context) error {
	if len(args) != 1 {
		return command.ErrUsage
	}
	cacheID := args[0]

	c, err := s.dialAgent(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	pass, err := ctx.ReadSecret(fmt.Sprintf("Passphrase for %s: ", cacheID))
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(pass)
	if len(pass) == 0 {
		return fmt.Errorf("empty passphrase")
	}

	if err := c.PresetPassphrase(cacheID, pass); err != nil {
		return fmt.Errorf("failed to cache passphrase: %w", err)
	}
	ctx.Printf("Cached passphrase for %s\n", cacheID)
	return nil
}

func (s *session) cmdCacheClear(args []string, ctx *command.Context) error {
	if len(args) > 1 {
		return command.ErrUsage
	}

	c, err := s.dialAgent(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if len(args) == 0 {
		if err := c.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		ctx.Printf("Cleared all cached passphrases\n")
		return nil
	}

	if err := c.ClearPassphrase(args[0]); err != nil {
		return fmt.Errorf("failed to clear %s: %w", args[0], err)
	}
	ctx.Printf("Cleared %s\n", args[0])
	return nil
}
