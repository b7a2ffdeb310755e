// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agentd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seahorse-keys/seahorse/internal/protocol"
	"github.com/seahorse-keys/seahorse/internal/transport"
)

// DefaultCallTimeout bounds each client request.
const DefaultCallTimeout = 10 * time.Second

// Client talks to a running agent.
type Client struct {
	ipc     *transport.IPCClient
	timeout time.Duration
}

// Dial connects to the agent at socketPath and reads its greeting.
func Dial(ctx context.Context, socketPath string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ipc, err := transport.Connect(ctx, socketPath, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{ipc: ipc, timeout: timeout}, nil
}

// Close says BYE and closes the connection.
func (c *Client) Close() {
	c.ipc.SetDeadline(time.Now().Add(c.timeout))
	_, _, _ = c.ipc.Call(protocol.NewRequest(protocol.CmdBye))
	c.ipc.Close()
}

func (c *Client) call(req protocol.Request) ([]string, protocol.Response, error) {
	c.ipc.SetDeadline(time.Now().Add(c.timeout))
	data, resp, err := c.ipc.Call(req)
	if err != nil {
		return nil, resp, err
	}
	if err := resp.Err(); err != nil {
		return nil, resp, err
	}
	return data, resp, nil
}

// AgentID returns the agent's AGENT_ID reply text.
func (c *Client) AgentID() (string, error) {
	_, resp, err := c.call(protocol.NewRequest(protocol.CmdAgentID))
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// GetPassphrase fetches a cached passphrase. A miss returns an error
// matching protocol.ErrNoData. Callers should zero the result.
func (c *Client) GetPassphrase(cacheID string) ([]byte, error) {
	req := protocol.NewRequest(protocol.CmdGetPassphrase, cacheID, "", "", "")
	req.Options = []string{protocol.OptNoAsk}
	_, resp, err := c.call(req)
	if err != nil {
		return nil, err
	}
	return protocol.DecodePassphrase(resp.Message)
}

// PresetPassphrase stores passphrase under cacheID.
func (c *Client) PresetPassphrase(cacheID string, passphrase []byte) error {
	encoded := protocol.EncodePassphrase(passphrase)
	req := protocol.NewRequest(protocol.CmdPresetPassphrase, cacheID)
	req.Args = append(req.Args, encoded)
	_, _, err := c.call(req)
	return err
}

// ClearPassphrase forgets cacheID.
func (c *Client) ClearPassphrase(cacheID string) error {
	_, _, err := c.call(protocol.NewRequest(protocol.CmdClearPassphrase, cacheID))
	return err
}

// ClearAll forgets every cached passphrase.
func (c *Client) ClearAll() error {
	_, _, err := c.call(protocol.NewRequest(protocol.CmdClearAll))
	return err
}

// GetInfo returns a GETINFO value.
func (c *Client) GetInfo(what string) (string, error) {
	data, _, err := c.call(protocol.NewRequest(protocol.CmdGetInfo, what))
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("GETINFO %s: no data", what)
	}
	return protocol.UnescapeData(strings.Join(data, "")), nil
}

// Lookup is a convenience for one-shot passphrase retrieval.
func Lookup(ctx context.Context, socketPath, cacheID string) ([]byte, error) {
	c, err := Dial(ctx, socketPath, DefaultCallTimeout)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.GetPassphrase(cacheID)
}
