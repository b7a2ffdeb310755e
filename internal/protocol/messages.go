// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrEmptyRequest is returned for a blank request line.
	ErrEmptyRequest = errors.New("empty request")

	// ErrMalformedResponse is returned for a reply that is not OK, ERR or D.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNoData is the cache-miss error.
	ErrNoData = errors.New("no data")

	// ErrCanceled is returned when the agent reports a cancelled operation.
	ErrCanceled = errors.New("operation cancelled")
)

// Request is a parsed client request line.
type Request struct {
	Command string   // Upper-cased command word
	Options []string // Leading "--" arguments, e.g. --no-ask
	Args    []string // Remaining arguments, still escaped
}

// ParseRequest parses one request line. Commands are case-insensitive.
func ParseRequest(line string) (Request, error) {
	fields := strings.Fields(TrimLine(line))
	if len(fields) == 0 {
		return Request{}, ErrEmptyRequest
	}

	req := Request{Command: strings.ToUpper(fields[0])}
	rest := fields[1:]
	for len(rest) > 0 && strings.HasPrefix(rest[0], "--") {
		req.Options = append(req.Options, rest[0])
		rest = rest[1:]
	}
	req.Args = rest
	return req, nil
}

// HasOption reports whether the request carried the given option.
func (r Request) HasOption(opt string) bool {
	for _, o := range r.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// Arg returns the unescaped argument at index i, or "" if absent.
func (r Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return UnescapeArg(r.Args[i])
}

// String formats the request back onto the wire (without newline).
func (r Request) String() string {
	parts := make([]string, 0, 1+len(r.Options)+len(r.Args))
	parts = append(parts, r.Command)
	parts = append(parts, r.Options...)
	parts = append(parts, r.Args...)
	return strings.Join(parts, " ")
}

// NewRequest builds a request, escaping each argument.
func NewRequest(command string, args ...string) Request {
	escaped := make([]string, len(args))
	for i, a := range args {
		escaped[i] = EscapeArg(a)
	}
	return Request{Command: command, Args: escaped}
}

// EscapeArg escapes an argument for the wire. The empty string is sent as "X".
func EscapeArg(s string) string {
	if s == "" {
		return "X"
	}
	return url.QueryEscape(s)
}

// UnescapeArg reverses EscapeArg. Invalid escapes are returned verbatim.
func UnescapeArg(s string) string {
	if s == "X" {
		return ""
	}
	u, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return u
}

// Response is a parsed reply line.
type Response struct {
	Status  string // StatusOK, StatusErr or StatusData
	Code    int    // ERR code
	Message string // Text after the status (and code)
}

// ParseResponse parses one reply line.
func ParseResponse(line string) (Response, error) {
	line = TrimLine(line)
	word, rest, _ := strings.Cut(line, " ")

	switch word {
	case StatusOK, StatusData:
		return Response{Status: word, Message: rest}, nil
	case StatusErr:
		codeStr, msg, _ := strings.Cut(rest, " ")
		code, err := strconv.Atoi(codeStr)
		if err != nil {
			return Response{}, fmt.Errorf("%w: bad error code %q", ErrMalformedResponse, codeStr)
		}
		return Response{Status: StatusErr, Code: code, Message: msg}, nil
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrMalformedResponse, line)
	}
}

// Err converts an ERR reply into an error. Other replies return nil.
func (r Response) Err() error {
	if r.Status != StatusErr {
		return nil
	}
	return &AgentError{Code: r.Code, Message: r.Message}
}

// AgentError is an ERR reply surfaced as a Go error.
type AgentError struct {
	Code    int
	Message string
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent error %d: %s", e.Code, e.Message)
}

// Is maps well-known codes onto the package sentinels.
func (e *AgentError) Is(target error) bool {
	switch target {
	case ErrNoData:
		return e.Code == ErrCodeNoData
	case ErrCanceled:
		return e.Code == ErrCodeCanceled
	}
	return false
}

// FormatOK formats an OK reply. msg may be empty.
func FormatOK(msg string) string {
	if msg == "" {
		return StatusOK
	}
	return StatusOK + " " + msg
}

// FormatErr formats an ERR reply.
func FormatErr(code int, msg string) string {
	return fmt.Sprintf("%s %d %s", StatusErr, code, msg)
}

// FormatData formats a D line. Newlines and % are percent-escaped.
func FormatData(data string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	return StatusData + " " + r.Replace(data)
}

// UnescapeData reverses the escaping applied by FormatData.
func UnescapeData(s string) string {
	r := strings.NewReplacer("%0A", "\n", "%0D", "\r", "%25", "%")
	return r.Replace(s)
}

// AgentIDReply is the AGENT_ID answer of our own agent.
func AgentIDReply(version string) string {
	return FormatOK(AgentName + " " + version)
}

// EncodePassphrase hex-encodes a passphrase for an OK reply or PRESET_PASSPHRASE.
func EncodePassphrase(p []byte) string {
	return strings.ToUpper(hex.EncodeToString(p))
}

// DecodePassphrase reverses EncodePassphrase.
func DecodePassphrase(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid passphrase encoding: %w", err)
	}
	return b, nil
}

// TrimLine strips the line terminator and surrounding whitespace.
func TrimLine(line string) string {
	return strings.TrimSpace(line)
}
