// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

//go:build !linux

package agentd

import "net"

// peerCredentials is unavailable here; the 0600 socket mode is the only
// access check. A uid of -1 skips the comparison.
func peerCredentials(net.Conn) (uid, pid int, err error) {
	return -1, 0, nil
}
