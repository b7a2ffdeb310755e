// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package testutil

import (
	"bufio"
	"net"
	"sync"
	"testing"
)

// MockAgent is a scripted peer on a Unix socket. For each connection it
// sends Greeting (if non-empty), reads one line, then sends IDReply
// (if non-empty) and closes. Lines received are recorded.
type MockAgent struct {
	Path     string
	Greeting string
	IDReply  string

	listener net.Listener
	mu       sync.Mutex
	received []string
	accepted int
	wg       sync.WaitGroup
}

// NewMockAgent starts a mock agent that replies with greeting and idReply.
// The listener is closed when the test completes.
func NewMockAgent(t *testing.T, greeting, idReply string) *MockAgent {
	t.Helper()

	m := &MockAgent{
		Path:     SocketPath(t, "agent.sock"),
		Greeting: greeting,
		IDReply:  idReply,
	}

	l, err := net.Listen("unix", m.Path)
	if err != nil {
		t.Fatalf("Failed to listen on mock agent socket: %v", err)
	}
	m.listener = l

	m.wg.Add(1)
	go m.acceptLoop()

	t.Cleanup(m.Close)
	return m
}

func (m *MockAgent) acceptLoop() {
	defer m.wg.Done()
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.accepted++
		m.mu.Unlock()

		m.wg.Add(1)
		go m.serve(conn)
	}
}

func (m *MockAgent) serve(conn net.Conn) {
	defer m.wg.Done()
	defer func() { _ = conn.Close() }()

	if m.Greeting == "" {
		return
	}
	if _, err := conn.Write([]byte(m.Greeting + "\n")); err != nil {
		return
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	m.mu.Lock()
	m.received = append(m.received, line)
	m.mu.Unlock()

	if m.IDReply != "" {
		_, _ = conn.Write([]byte(m.IDReply + "\n"))
	}
}

// Received returns the request lines received so far.
func (m *MockAgent) Received() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.received))
	copy(out, m.received)
	return out
}

// Accepted returns how many connections were accepted.
func (m *MockAgent) Accepted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted
}

// Close stops the mock agent and waits for connection handlers.
func (m *MockAgent) Close() {
	_ = m.listener.Close()
	m.wg.Wait()
}
