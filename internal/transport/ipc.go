// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/seahorse-keys/seahorse/internal/protocol"
)

// MaxLineLength caps a single protocol line, terminator included.
const MaxLineLength = 4096

// IPCClient is a Unix socket client for agent connections.
type IPCClient struct {
	conn       net.Conn
	socketPath string
	reader     *bufio.Reader
	writer     *bufio.Writer
}

// NewIPC creates a new IPC client (not yet connected).
func NewIPC(socketPath string) *IPCClient {
	return &IPCClient{
		socketPath: socketPath,
	}
}

// SocketPath returns the path this client dials.
func (c *IPCClient) SocketPath() string {
	return c.socketPath
}

// Dial connects to the agent Unix socket.
func (c *IPCClient) Dial(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to agent socket: %w", err)
	}
	c.conn = conn
	c.reader = bufio.NewReaderSize(conn, MaxLineLength)
	c.writer = bufio.NewWriter(conn)
	return nil
}

// Close shuts down both directions and closes the connection.
// Safe to call when not connected and more than once.
func (c *IPCClient) Close() {
	if c.conn == nil {
		return
	}
	if uc, ok := c.conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
		_ = uc.CloseRead()
	}
	_ = c.conn.Close()
	c.conn = nil
}

// SetDeadline sets an absolute deadline for reads and writes.
// A zero time clears it.
func (c *IPCClient) SetDeadline(t time.Time) {
	if c.conn != nil {
		_ = c.conn.SetDeadline(t)
	}
}

// SetReadDeadline sets a deadline for read operations.
func (c *IPCClient) SetReadDeadline(d time.Duration) {
	if c.conn != nil {
		_ = c.conn.SetReadDeadline(time.Now().Add(d))
	}
}

// ClearReadDeadline removes any read deadline.
func (c *IPCClient) ClearReadDeadline() {
	if c.conn != nil {
		_ = c.conn.SetReadDeadline(time.Time{})
	}
}

// ReadLine reads one newline-terminated line and strips the terminator.
// A final unterminated line before EOF is returned without error.
func (c *IPCClient) ReadLine() (string, error) {
	if c.conn == nil {
		return "", ErrNotConnected
	}
	line, err := c.reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return "", ErrLineTooLong
	}
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return string(line), nil
		}
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// WriteLine writes line followed by a newline and flushes.
func (c *IPCClient) WriteLine(line string) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	if _, err := c.writer.WriteString(line + "\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

// Call sends a request and reads replies until OK or ERR.
// D lines are collected and returned in order.
func (c *IPCClient) Call(req protocol.Request) ([]string, protocol.Response, error) {
	if err := c.WriteLine(req.String()); err != nil {
		return nil, protocol.Response{}, err
	}

	var data []string
	for {
		line, err := c.ReadLine()
		if err != nil {
			return data, protocol.Response{}, err
		}
		resp, err := protocol.ParseResponse(line)
		if err != nil {
			return data, protocol.Response{}, err
		}
		if resp.Status == protocol.StatusData {
			data = append(data, resp.Message)
			continue
		}
		return data, resp, nil
	}
}

// Connect dials the agent and consumes its greeting.
func Connect(ctx context.Context, socketPath string, timeout time.Duration) (*IPCClient, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := NewIPC(socketPath)
	if err := c.Dial(dialCtx); err != nil {
		return nil, err
	}
	c.SetReadDeadline(timeout)
	line, err := c.ReadLine()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to receive greeting: %w", err)
	}
	if !strings.HasPrefix(protocol.TrimLine(line), protocol.StatusOK) {
		c.Close()
		return nil, fmt.Errorf("agent didn't greet with OK; got %q", line)
	}
	c.ClearReadDeadline()
	return c, nil
}
