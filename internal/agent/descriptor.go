// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seahorse-keys/seahorse/internal/protocol"
)

// Descriptor identifies an agent: its socket, process id and protocol version.
type Descriptor struct {
	SocketPath      string
	PID             int
	ProtocolVersion int
}

// ParseDescriptor parses "socket_path:pid:version".
//
// Only the first two colons split; anything after the second belongs to
// the version field. A non-numeric pid or version parses as 0. Input with fewer than three
// fields, or with an empty socket path, yields ok == false and the zero
// Descriptor. ParseDescriptor never panics.
func ParseDescriptor(s string) (d Descriptor, ok bool) {
	fields := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(fields) < 3 || fields[0] == "" {
		return Descriptor{}, false
	}
	return Descriptor{
		SocketPath:      fields[0],
		PID:             atoi(fields[1]),
		ProtocolVersion: atoi(fields[2]),
	}, true
}

// atoi returns 0 for anything that is not a plain decimal integer in the
// 32-bit range. pid_t is 32 bits, so a larger pid would wrap in kill(2)
// and name some other process.
func atoi(s string) int {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return int(n)
}

// Valid reports whether the descriptor is worth probing: a socket path,
// a positive pid and the only protocol version we speak.
func (d Descriptor) Valid() bool {
	return d.SocketPath != "" && d.PID > 0 && d.ProtocolVersion == protocol.DescriptorVersion
}

// String encodes the descriptor in the "socket:pid:version" form.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%d:%d", d.SocketPath, d.PID, d.ProtocolVersion)
}

// NewDescriptor describes an agent speaking the current protocol version.
func NewDescriptor(socketPath string, pid int) Descriptor {
	return Descriptor{SocketPath: socketPath, PID: pid, ProtocolVersion: protocol.DescriptorVersion}
}
