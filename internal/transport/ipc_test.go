// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/seahorse-keys/seahorse/internal/protocol"
	"github.com/seahorse-keys/seahorse/internal/testutil"
)

// serveOnce accepts one connection and runs handler on it.
func serveOnce(t *testing.T, handler func(conn net.Conn)) string {
	t.Helper()
	path := testutil.SocketPath(t, "ipc.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		handler(conn)
	}()
	t.Cleanup(func() {
		_ = l.Close()
		<-done
	})
	return path
}

func TestNewIPC(t *testing.T) {
	client := NewIPC("/tmp/test.sock")
	if client == nil {
		t.Fatal("NewIPC returned nil")
	}
	if client.SocketPath() != "/tmp/test.sock" {
		t.Errorf("SocketPath() = %q, want %q", client.SocketPath(), "/tmp/test.sock")
	}
}

func TestIPCNilConn(t *testing.T) {
	client := NewIPC("/tmp/test.sock")
	client.Close() // Should not panic
	client.SetReadDeadline(5 * time.Second)
	client.ClearReadDeadline()
	client.SetDeadline(time.Now())

	if _, err := client.ReadLine(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ReadLine() error = %v, want ErrNotConnected", err)
	}
	if err := client.WriteLine("NOP"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("WriteLine() error = %v, want ErrNotConnected", err)
	}
}

func TestDialMissingSocket(t *testing.T) {
	client := NewIPC(testutil.SocketPath(t, "missing.sock"))
	if err := client.Dial(context.Background()); err == nil {
		client.Close()
		t.Fatal("Dial() to missing socket should fail")
	}
}

func TestReadWriteLine(t *testing.T) {
	got := make(chan string, 1)
	path := serveOnce(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte("OK hello\r\n"))
		line, _ := bufio.NewReader(conn).ReadString('\n')
		got <- line
	})

	client := NewIPC(path)
	if err := client.Dial(context.Background()); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	line, err := client.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine() error = %v", err)
	}
	if line != "OK hello" {
		t.Errorf("ReadLine() = %q, want %q", line, "OK hello")
	}

	if err := client.WriteLine("AGENT_ID"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}
	if l := <-got; l != "AGENT_ID\n" {
		t.Errorf("server received %q", l)
	}
}

func TestReadLineUnterminatedAtEOF(t *testing.T) {
	path := serveOnce(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte("OK partial"))
	})

	client := NewIPC(path)
	if err := client.Dial(context.Background()); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	line, err := client.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine() error = %v", err)
	}
	if line != "OK partial" {
		t.Errorf("ReadLine() = %q", line)
	}
	if _, err := client.ReadLine(); err == nil {
		t.Error("second ReadLine() should fail at EOF")
	}
}

func TestReadLineTooLong(t *testing.T) {
	path := serveOnce(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte(strings.Repeat("A", MaxLineLength+10) + "\n"))
	})

	client := NewIPC(path)
	if err := client.Dial(context.Background()); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	if _, err := client.ReadLine(); !errors.Is(err, ErrLineTooLong) {
		t.Errorf("ReadLine() error = %v, want ErrLineTooLong", err)
	}
}

func TestReadDeadline(t *testing.T) {
	release := make(chan struct{})
	path := serveOnce(t, func(conn net.Conn) {
		<-release
	})
	defer close(release)

	client := NewIPC(path)
	if err := client.Dial(context.Background()); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	client.SetReadDeadline(50 * time.Millisecond)
	start := time.Now()
	if _, err := client.ReadLine(); err == nil {
		t.Fatal("ReadLine() should time out")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("ReadLine() did not honour the deadline")
	}
}

func TestCallCollectsData(t *testing.T) {
	path := serveOnce(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		_, _ = r.ReadString('\n')
		_, _ = conn.Write([]byte("D 1234\nOK\n"))
	})

	client := NewIPC(path)
	if err := client.Dial(context.Background()); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	data, resp, err := client.Call(protocol.NewRequest(protocol.CmdGetInfo, protocol.InfoPID))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if resp.Status != protocol.StatusOK {
		t.Errorf("Status = %q, want OK", resp.Status)
	}
	if len(data) != 1 || data[0] != "1234" {
		t.Errorf("data = %v, want [1234]", data)
	}
}

func TestConnect(t *testing.T) {
	agent := testutil.NewMockAgent(t, protocol.Greeting, "OK")

	client, err := Connect(context.Background(), agent.Path, time.Second)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	_, resp, err := client.Call(protocol.NewRequest(protocol.CmdNop))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if resp.Status != protocol.StatusOK {
		t.Errorf("Status = %q", resp.Status)
	}
}

func TestConnectRejectsBadGreeting(t *testing.T) {
	agent := testutil.NewMockAgent(t, "HELLO", "")

	if _, err := Connect(context.Background(), agent.Path, time.Second); err == nil {
		t.Fatal("Connect() should reject a non-OK greeting")
	}
}
