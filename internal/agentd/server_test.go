// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agentd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/seahorse-keys/seahorse/internal/agent"
	"github.com/seahorse-keys/seahorse/internal/passcache"
	"github.com/seahorse-keys/seahorse/internal/protocol"
	"github.com/seahorse-keys/seahorse/internal/testutil"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func startServer(t *testing.T, policy passcache.Policy) *Server {
	t.Helper()
	cache, err := passcache.New(policy)
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(testutil.SocketPath(t, "S.agent"), cache)
	s.Logger = quietLogger
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func dialServer(t *testing.T, s *Server) *Client {
	t.Helper()
	c, err := Dial(context.Background(), s.SocketPath, 2*time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// rawConn speaks the protocol by hand.
type rawConn struct {
	conn net.Conn
	r    *bufio.Reader
}

func dialRaw(t *testing.T, s *Server) *rawConn {
	t.Helper()
	conn, err := net.Dial("unix", s.SocketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	rc := &rawConn{conn: conn, r: bufio.NewReader(conn)}
	if g := rc.read(t); g != protocol.Greeting {
		t.Fatalf("greeting = %q", g)
	}
	return rc
}

func (rc *rawConn) send(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(rc.conn, line+"\n"); err != nil {
		t.Fatal(err)
	}
}

func (rc *rawConn) read(t *testing.T) string {
	t.Helper()
	line, err := rc.r.ReadString('\n')
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	return strings.TrimRight(line, "\n")
}

func TestServer_SocketPermissions(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	info, err := os.Stat(s.SocketPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		t.Error("socket path is not a socket")
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket perm = %o, want 0600", perm)
	}
}

func TestServer_StopRemovesSocket(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	s.Stop()
	if _, err := os.Stat(s.SocketPath); !os.IsNotExist(err) {
		t.Errorf("socket still present after Stop: %v", err)
	}
	s.Stop() // second Stop is harmless
}

func TestServer_RefusesSymlink(t *testing.T) {
	path := testutil.SocketPath(t, "S.agent")
	target := filepath.Join(t.TempDir(), "victim")
	if err := os.WriteFile(target, []byte("keep me"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, path); err != nil {
		t.Fatal(err)
	}

	cache, _ := passcache.New(passcache.DefaultPolicy())
	s := NewServer(path, cache)
	s.Logger = quietLogger
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Start() should refuse a symlinked socket path")
	}
	if data, _ := os.ReadFile(target); string(data) != "keep me" {
		t.Error("symlink target was modified")
	}
}

func TestServer_RefusesRegularFile(t *testing.T) {
	path := testutil.SocketPath(t, "S.agent")
	if err := os.WriteFile(path, []byte("not a socket"), 0600); err != nil {
		t.Fatal(err)
	}
	cache, _ := passcache.New(passcache.DefaultPolicy())
	s := NewServer(path, cache)
	s.Logger = quietLogger
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Start() should refuse to replace a regular file")
	}
}

func TestServer_ReplacesStaleSocket(t *testing.T) {
	path := testutil.SocketPath(t, "S.agent")

	// Simulate a crashed agent: the socket file outlives its listener.
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	l.(*net.UnixListener).SetUnlinkOnClose(false)
	_ = l.Close()
	if _, err := os.Lstat(path); err != nil {
		t.Fatalf("stale socket missing: %v", err)
	}

	cache, _ := passcache.New(passcache.DefaultPolicy())
	s := NewServer(path, cache)
	s.Logger = quietLogger
	if err := s.Start(); err != nil {
		t.Fatalf("Start() over stale socket error = %v", err)
	}
	s.Stop()
}

func TestServer_StartWithoutCache(t *testing.T) {
	s := NewServer(testutil.SocketPath(t, "S.agent"), nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Start() without cache should fail")
	}
}

func TestServer_Descriptor(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	d := s.Descriptor()
	if d.SocketPath != s.SocketPath || d.PID != os.Getpid() || !d.Valid() {
		t.Errorf("Descriptor() = %+v", d)
	}
	parsed, ok := agent.ParseDescriptor(d.String())
	if !ok || parsed != d {
		t.Errorf("descriptor does not round-trip: %q", d.String())
	}
}

func TestServer_ProbedAsMine(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	p := &agent.Prober{Timeout: 2 * time.Second, Logger: quietLogger}
	if got := p.Probe(context.Background(), s.SocketPath); got != agent.KindMine {
		t.Errorf("Probe() = %v, want %v", got, agent.KindMine)
	}
}

func TestServer_DetectedViaEnvironment(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	d := &agent.Detector{
		Getenv: func(k string) (string, bool) {
			if k == agent.EnvVar {
				return s.Descriptor().String(), true
			}
			return "", false
		},
		Logger: quietLogger,
	}
	if got := d.WhichAgentRunning(context.Background()); got != agent.KindMine {
		t.Errorf("WhichAgentRunning() = %v, want %v", got, agent.KindMine)
	}
}

func TestServer_PresetGetClear(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	c := dialServer(t, s)

	if _, err := c.GetPassphrase("key1"); !errors.Is(err, protocol.ErrNoData) {
		t.Fatalf("GetPassphrase(miss) error = %v, want ErrNoData", err)
	}

	if err := c.PresetPassphrase("key1", []byte("s3cret pass")); err != nil {
		t.Fatalf("PresetPassphrase() error = %v", err)
	}
	got, err := c.GetPassphrase("key1")
	if err != nil {
		t.Fatalf("GetPassphrase() error = %v", err)
	}
	if string(got) != "s3cret pass" {
		t.Errorf("GetPassphrase() = %q", got)
	}

	if err := c.ClearPassphrase("key1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetPassphrase("key1"); !errors.Is(err, protocol.ErrNoData) {
		t.Errorf("after clear error = %v, want ErrNoData", err)
	}
}

func TestServer_ClearAll(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	c := dialServer(t, s)
	_ = c.PresetPassphrase("a", []byte("1"))
	_ = c.PresetPassphrase("b", []byte("2"))
	if err := c.ClearAll(); err != nil {
		t.Fatal(err)
	}
	if s.Cache.Len() != 0 {
		t.Errorf("cache Len() = %d after CLEAR_ALL", s.Cache.Len())
	}
}

func TestServer_CacheIDWithSpaces(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	c := dialServer(t, s)
	if err := c.PresetPassphrase("my key id", []byte("p")); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Cache.Get("my key id"); !ok {
		t.Error("cache id was not unescaped")
	}
}

func TestServer_PresetWhenDisabled(t *testing.T) {
	s := startServer(t, passcache.Policy{Enabled: false})
	c := dialServer(t, s)
	err := c.PresetPassphrase("k", []byte("p"))
	var ae *protocol.AgentError
	if !errors.As(err, &ae) || ae.Code != protocol.ErrCodeNotAuthorized {
		t.Errorf("PresetPassphrase() error = %v, want code %d", err, protocol.ErrCodeNotAuthorized)
	}
}

func TestServer_AuthorizeDenied(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	s.Authorizer = DenyAll{}
	s.SetAuthorize(true)
	c := dialServer(t, s)

	_ = c.PresetPassphrase("k", []byte("p"))
	if _, err := c.GetPassphrase("k"); !errors.Is(err, protocol.ErrCanceled) {
		t.Errorf("GetPassphrase() error = %v, want ErrCanceled", err)
	}

	s.SetAuthorize(false)
	if _, err := c.GetPassphrase("k"); err != nil {
		t.Errorf("GetPassphrase() with authorization off error = %v", err)
	}
}

func TestServer_GetInfo(t *testing.T) {
	s := startServer(t, passcache.Policy{Enabled: true, TTL: 2 * time.Minute, Expire: true})
	c := dialServer(t, s)

	pid, err := c.GetInfo(protocol.InfoPID)
	if err != nil || pid != strconv.Itoa(os.Getpid()) {
		t.Errorf("GETINFO pid = %q, %v", pid, err)
	}
	sock, err := c.GetInfo(protocol.InfoSocketName)
	if err != nil || sock != s.SocketPath {
		t.Errorf("GETINFO socket_name = %q, %v", sock, err)
	}
	ttl, err := c.GetInfo(protocol.InfoTTL)
	if err != nil || ttl != "120" {
		t.Errorf("GETINFO ttl = %q, %v", ttl, err)
	}
	if _, err := c.GetInfo("bogus"); err == nil {
		t.Error("GETINFO bogus should fail")
	}
}

func TestServer_AgentID(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	c := dialServer(t, s)
	id, err := c.AgentID()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, protocol.AgentName) {
		t.Errorf("AgentID() = %q", id)
	}
}

func TestServer_RawProtocol(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	rc := dialRaw(t, s)

	rc.send(t, "NOP")
	if got := rc.read(t); got != "OK" {
		t.Errorf("NOP reply = %q", got)
	}

	rc.send(t, "")
	rc.send(t, "option ttyname=/dev/pts/3")
	if got := rc.read(t); got != "OK" {
		t.Errorf("OPTION reply = %q", got)
	}

	rc.send(t, "FROBNICATE")
	if got := rc.read(t); got != "ERR 275 Unknown IPC command" {
		t.Errorf("unknown command reply = %q", got)
	}

	rc.send(t, "GET_PASSPHRASE")
	if got := rc.read(t); !strings.HasPrefix(got, "ERR 276") {
		t.Errorf("GET_PASSPHRASE without id reply = %q", got)
	}

	rc.send(t, "PRESET_PASSPHRASE k not-hex")
	if got := rc.read(t); !strings.HasPrefix(got, "ERR 276") {
		t.Errorf("bad hex reply = %q", got)
	}

	rc.send(t, "GET_PASSPHRASE --no-ask k X X X")
	if got := rc.read(t); got != "ERR 67108922 No data" {
		t.Errorf("miss reply = %q", got)
	}

	rc.send(t, "BYE")
	if got := rc.read(t); got != "OK closing connection" {
		t.Errorf("BYE reply = %q", got)
	}
	if _, err := rc.r.ReadString('\n'); err == nil {
		t.Error("connection still open after BYE")
	}
}

func TestServer_LineTooLong(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	rc := dialRaw(t, s)
	rc.send(t, "NOP "+strings.Repeat("x", 8192))
	if got := rc.read(t); !strings.HasPrefix(got, "ERR 276") {
		t.Errorf("long line reply = %q", got)
	}
}

func TestServer_IdleTimeout(t *testing.T) {
	cache, _ := passcache.New(passcache.DefaultPolicy())
	s := NewServer(testutil.SocketPath(t, "S.agent"), cache)
	s.Logger = quietLogger
	s.IdleTimeout = 50 * time.Millisecond
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Stop)

	rc := dialRaw(t, s)
	if _, err := rc.r.ReadString('\n'); err == nil {
		t.Error("idle connection was not closed")
	}
}

func TestServer_ServeStopsOnContext(t *testing.T) {
	cache, _ := passcache.New(passcache.DefaultPolicy())
	s := NewServer(testutil.SocketPath(t, "S.agent"), cache)
	s.Logger = quietLogger

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(s.SocketPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server never started")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// An open client must not block shutdown.
	dialRaw(t, s)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
