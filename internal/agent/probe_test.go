// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agent

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/seahorse-keys/seahorse/internal/testutil"
)

func TestProbe(t *testing.T) {
	tests := []struct {
		name     string
		greeting string
		idReply  string
		want     Kind
	}{
		{"our agent", "OK Pleased to meet you", "OK seahorse-agent 2.2.0", KindMine},
		{"our agent with suffix", "OK", "OK seahorse-agent-x", KindMine},
		{"foreign agent error reply", "OK Pleased to meet you", "ERR 275 Unknown IPC command", KindOther},
		{"foreign agent other name", "OK", "OK gpg-agent", KindOther},
		{"foreign agent closes after greeting", "OK", "", KindOther},
		{"greeting without OK", "HELLO", "OK seahorse-agent", KindNone},
		{"closes immediately", "", "", KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAgent(t, tt.greeting, tt.idReply)

			p := &Prober{Timeout: time.Second}
			got := p.Probe(context.Background(), mock.Path)
			if got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbe_SendsAgentID(t *testing.T) {
	mock := testutil.NewMockAgent(t, "OK", "OK seahorse-agent")

	p := &Prober{Timeout: time.Second}
	if got := p.Probe(context.Background(), mock.Path); got != KindMine {
		t.Fatalf("Probe() = %v, want KindMine", got)
	}

	received := mock.Received()
	if len(received) != 1 || received[0] != "AGENT_ID\n" {
		t.Errorf("agent received %q, want [\"AGENT_ID\\n\"]", received)
	}
}

func TestProbe_MissingSocket(t *testing.T) {
	p := &Prober{Timeout: time.Second}
	if got := p.Probe(context.Background(), testutil.SocketPath(t, "nothing.sock")); got != KindNone {
		t.Errorf("Probe() = %v, want KindNone", got)
	}
}

func TestProbe_NotASocket(t *testing.T) {
	path := testutil.TempFile(t, []byte("plain file"))
	p := &Prober{Timeout: time.Second}
	if got := p.Probe(context.Background(), path); got != KindNone {
		t.Errorf("Probe() = %v, want KindNone", got)
	}
}

func TestProbe_SilentPeerTimesOut(t *testing.T) {
	path := testutil.SocketPath(t, "silent.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() { _ = l.Close() }()

	release := make(chan struct{})
	defer close(release)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		<-release
		_ = conn.Close()
	}()

	p := &Prober{Timeout: 100 * time.Millisecond}
	start := time.Now()
	if got := p.Probe(context.Background(), path); got != KindNone {
		t.Errorf("Probe() = %v, want KindNone", got)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Probe() took %v, timeout not honoured", elapsed)
	}
}

func TestProbe_HungAfterGreetingIsOther(t *testing.T) {
	path := testutil.SocketPath(t, "hung.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer func() { _ = l.Close() }()

	release := make(chan struct{})
	defer close(release)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("OK\n"))
		<-release
		_ = conn.Close()
	}()

	p := &Prober{Timeout: 100 * time.Millisecond}
	if got := p.Probe(context.Background(), path); got != KindOther {
		t.Errorf("Probe() = %v, want KindOther", got)
	}
}

func TestProbe_CancelledContext(t *testing.T) {
	mock := testutil.NewMockAgent(t, "OK", "OK seahorse-agent")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Prober{Timeout: time.Second}
	if got := p.Probe(ctx, mock.Path); got != KindNone {
		t.Errorf("Probe() with cancelled context = %v, want KindNone", got)
	}
}
