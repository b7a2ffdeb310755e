// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agentd

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/seahorse-keys/seahorse/internal/crypto"
	"github.com/seahorse-keys/seahorse/internal/protocol"
	"github.com/seahorse-keys/seahorse/internal/transport"
	"github.com/seahorse-keys/seahorse/internal/version"
)

// session is the per-connection protocol state.
type session struct {
	server  *Server
	peerPID int
	options map[string]string
	reader  *bufio.Reader
	writer  *bufio.Writer
}

func errLineTooLong() string {
	return protocol.FormatErr(protocol.ErrCodeSyntax, "Line too long")
}

func (s *session) readLine() (string, error) {
	line, err := s.reader.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return "", transport.ErrLineTooLong
	}
	if err != nil && (err != io.EOF || len(line) == 0) {
		return "", err
	}
	return string(line), nil
}

func (s *session) reply(lines ...string) error {
	for _, l := range lines {
		if _, err := s.writer.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return s.writer.Flush()
}

// handle dispatches one request line and reports whether the session ends.
func (s *session) handle(ctx context.Context, line string) bool {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		_ = s.reply(protocol.FormatErr(protocol.ErrCodeSyntax, "Invalid request"))
		return false
	}

	var out []string
	switch req.Command {
	case protocol.CmdAgentID:
		out = []string{protocol.AgentIDReply(version.Version)}
	case protocol.CmdGetPassphrase:
		out = s.getPassphrase(ctx, req)
	case protocol.CmdPresetPassphrase:
		out = s.presetPassphrase(req)
	case protocol.CmdClearPassphrase:
		out = s.clearPassphrase(req)
	case protocol.CmdClearAll:
		s.server.Cache.Clear()
		s.server.logger().Debug("cleared all cached passphrases")
		out = []string{protocol.FormatOK("")}
	case protocol.CmdOption:
		out = s.option(req)
	case protocol.CmdGetInfo:
		out = s.getInfo(req)
	case protocol.CmdNop:
		out = []string{protocol.FormatOK("")}
	case protocol.CmdBye:
		_ = s.reply(protocol.FormatOK("closing connection"))
		return true
	default:
		out = []string{protocol.FormatErr(protocol.ErrCodeUnknownCommand, "Unknown IPC command")}
	}

	return s.reply(out...) != nil
}

// getPassphrase answers GET_PASSPHRASE [--no-ask] <cache-id> <error> <prompt> <desc>.
// The agent never prompts; a miss is always ErrCodeNoData.
func (s *session) getPassphrase(ctx context.Context, req protocol.Request) []string {
	cacheID := req.Arg(0)
	if cacheID == "" {
		return []string{protocol.FormatErr(protocol.ErrCodeSyntax, "Missing cache id")}
	}

	pass, ok := s.server.Cache.Get(cacheID)
	if !ok {
		return []string{protocol.FormatErr(protocol.ErrCodeNoData, "No data")}
	}
	defer crypto.ZeroBytes(pass)

	if s.server.authorize.Load() {
		ar := AuthRequest{
			CacheID:     cacheID,
			Prompt:      req.Arg(2),
			Description: req.Arg(3),
			PeerPID:     s.peerPID,
		}
		if err := s.server.Authorizer.Authorize(ctx, ar); err != nil {
			s.server.logger().Info("passphrase release denied", "cache_id", cacheID, "peer_pid", s.peerPID, "error", err)
			return []string{protocol.FormatErr(protocol.ErrCodeCanceled, "Operation cancelled")}
		}
	}

	return []string{protocol.FormatOK(protocol.EncodePassphrase(pass))}
}

// presetPassphrase answers PRESET_PASSPHRASE <cache-id> <hex>.
func (s *session) presetPassphrase(req protocol.Request) []string {
	cacheID := req.Arg(0)
	if cacheID == "" || len(req.Args) < 2 {
		return []string{protocol.FormatErr(protocol.ErrCodeSyntax, "Usage: PRESET_PASSPHRASE <cache-id> <hex>")}
	}
	pass, err := protocol.DecodePassphrase(req.Args[1])
	if err != nil {
		return []string{protocol.FormatErr(protocol.ErrCodeSyntax, "Invalid passphrase encoding")}
	}
	defer crypto.ZeroBytes(pass)

	if !s.server.Cache.Put(cacheID, pass) {
		return []string{protocol.FormatErr(protocol.ErrCodeNotAuthorized, "Passphrase caching is disabled")}
	}
	s.server.logger().Debug("cached passphrase", "cache_id", cacheID)
	return []string{protocol.FormatOK("")}
}

func (s *session) clearPassphrase(req protocol.Request) []string {
	cacheID := req.Arg(0)
	if cacheID == "" {
		return []string{protocol.FormatErr(protocol.ErrCodeSyntax, "Missing cache id")}
	}
	s.server.Cache.Remove(cacheID)
	return []string{protocol.FormatOK("")}
}

// option records OPTION name=value (or "name value") for the session.
func (s *session) option(req protocol.Request) []string {
	if len(req.Args) == 0 && len(req.Options) == 0 {
		return []string{protocol.FormatErr(protocol.ErrCodeSyntax, "Missing option")}
	}
	raw := strings.Join(append(append([]string(nil), req.Options...), req.Args...), " ")
	raw = strings.TrimPrefix(raw, "--")
	name, value, found := strings.Cut(raw, "=")
	if !found {
		name, value, _ = strings.Cut(raw, " ")
	}
	name = strings.TrimSpace(name)
	s.options[name] = protocol.UnescapeArg(strings.TrimSpace(value))
	s.server.logger().Debug("client option", "name", name, "peer_pid", s.peerPID)
	return []string{protocol.FormatOK("")}
}

func (s *session) getInfo(req protocol.Request) []string {
	var value string
	switch strings.ToLower(req.Arg(0)) {
	case protocol.InfoPID:
		value = strconv.Itoa(os.Getpid())
	case protocol.InfoVersion:
		value = version.Version
	case protocol.InfoSocketName:
		value = s.server.SocketPath
	case protocol.InfoTTL:
		pol := s.server.Cache.Policy()
		if pol.Expire {
			value = strconv.Itoa(int(pol.TTL.Seconds()))
		} else {
			value = "0"
		}
	default:
		return []string{protocol.FormatErr(protocol.ErrCodeSyntax, "Unknown value for WHAT")}
	}
	return []string{protocol.FormatData(value), protocol.FormatOK("")}
}
