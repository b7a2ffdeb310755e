// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package agentd implements seahorse-agent: a passphrase cache served over
// a Unix socket to processes of the same user.
package agentd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seahorse-keys/seahorse/internal/agent"
	"github.com/seahorse-keys/seahorse/internal/fsutil"
	"github.com/seahorse-keys/seahorse/internal/passcache"
	"github.com/seahorse-keys/seahorse/internal/protocol"
	"github.com/seahorse-keys/seahorse/internal/transport"
	"github.com/seahorse-keys/seahorse/internal/util"
)

// DefaultIdleTimeout closes connections that send nothing for this long.
const DefaultIdleTimeout = 5 * time.Minute

// Server serves the agent protocol on a Unix socket.
type Server struct {
	SocketPath  string
	Cache       *passcache.Cache
	Authorizer  Authorizer    // Consulted before releasing a passphrase when authorization is on
	IdleTimeout time.Duration // Zero means DefaultIdleTimeout
	Logger      *slog.Logger

	authorize atomic.Bool

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	connsLock sync.Mutex
	conns     map[net.Conn]struct{}
}

// NewServer creates a server for socketPath backed by cache.
func NewServer(socketPath string, cache *passcache.Cache) *Server {
	return &Server{
		SocketPath: socketPath,
		Cache:      cache,
		Authorizer: AllowAll{},
		Logger:     util.Logger,
	}
}

// SetAuthorize turns release authorization on or off.
func (s *Server) SetAuthorize(on bool) {
	s.authorize.Store(on)
}

// Descriptor describes this agent for GPG_AGENT_INFO and gpg.conf.
func (s *Server) Descriptor() agent.Descriptor {
	return agent.NewDescriptor(s.SocketPath, os.Getpid())
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return util.Logger
}

func (s *Server) idleTimeout() time.Duration {
	if s.IdleTimeout > 0 {
		return s.IdleTimeout
	}
	return DefaultIdleTimeout
}

// Start begins listening on the Unix socket and accepting connections.
func (s *Server) Start() error {
	if s.Cache == nil {
		return errors.New("agent server has no cache")
	}
	if err := fsutil.MkdirAll(filepath.Dir(s.SocketPath)); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	// Check for symlink attacks and ownership issues before removing
	if err := s.validateSocketPath(); err != nil {
		return err
	}
	s.warnIfInsecureDirectory()

	// Remove existing socket file if present
	if err := os.Remove(s.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on agent socket: %w", err)
	}

	// Only the owner may connect
	if err := os.Chmod(s.SocketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.conns = make(map[net.Conn]struct{})
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger().Debug("agent listening", "socket", s.SocketPath)
	return nil
}

// validateSocketPath refuses to replace a symlink or another user's socket.
func (s *Server) validateSocketPath() error {
	info, err := os.Lstat(s.SocketPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat socket path: %w", err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to use socket path: %s is a symlink", s.SocketPath)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("refusing to replace %s: not a socket", s.SocketPath)
	}

	if owner, ok := fileOwner(info); ok {
		uid := os.Getuid()
		if uid < 0 {
			return fmt.Errorf("invalid UID: %d", uid)
		}
		if owner != uint32(uid) { // #nosec G115 - UIDs are 32-bit
			return fmt.Errorf("refusing to replace %s: owned by uid %d, expected %d",
				s.SocketPath, owner, uid)
		}
	}
	return nil
}

func (s *Server) warnIfInsecureDirectory() {
	dir := filepath.Dir(s.SocketPath)
	if strings.HasPrefix(dir, "/tmp") || strings.HasPrefix(dir, "/var/tmp") {
		s.logger().Warn("agent socket in world-writable directory; consider $XDG_RUNTIME_DIR", "socket", s.SocketPath)
		return
	}
	info, err := os.Stat(dir)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0002 != 0 {
		s.logger().Warn("agent socket directory is world-writable", "dir", dir)
	}
}

// Serve blocks until ctx is done, then stops the server.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Start(); err != nil {
			return err
		}
	}
	select {
	case <-ctx.Done():
	case <-s.ctx.Done():
	}
	s.Stop()
	return nil
}

// Stop closes the listener and every open connection, waits for handlers
// to return and removes the socket file. Safe to call more than once.
func (s *Server) Stop() {
	if s.listener == nil {
		return
	}
	s.cancel()
	_ = s.listener.Close()

	s.connsLock.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connsLock.Unlock()

	s.wg.Wait()
	_ = os.Remove(s.SocketPath)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Listener closed
			return
		}

		uid, pid, err := peerCredentials(conn)
		if err != nil {
			s.logger().Warn("rejecting connection: cannot read peer credentials", "error", err)
			_ = conn.Close()
			continue
		}
		if uid >= 0 && uid != os.Getuid() {
			s.logger().Warn("rejecting connection from another user", "uid", uid, "pid", pid)
			_ = conn.Close()
			continue
		}

		s.connsLock.Lock()
		if s.ctx.Err() != nil {
			s.connsLock.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.connsLock.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.connsLock.Lock()
				delete(s.conns, conn)
				s.connsLock.Unlock()
				_ = conn.Close()
			}()
			s.handleConn(conn, pid)
		}()
	}
}

// handleConn runs one client session until BYE, EOF or idle timeout.
func (s *Server) handleConn(conn net.Conn, peerPID int) {
	sess := &session{
		server:  s,
		peerPID: peerPID,
		options: make(map[string]string),
		reader:  bufio.NewReaderSize(conn, transport.MaxLineLength),
		writer:  bufio.NewWriter(conn),
	}
	log := s.logger().With("peer_pid", peerPID)
	log.Debug("client connected")
	defer log.Debug("client disconnected")

	if err := sess.reply(protocol.Greeting); err != nil {
		return
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout()))
		line, err := sess.readLine()
		if err != nil {
			if errors.Is(err, transport.ErrLineTooLong) {
				_ = sess.reply(errLineTooLong())
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if done := sess.handle(s.ctx, line); done {
			return
		}
	}
}
