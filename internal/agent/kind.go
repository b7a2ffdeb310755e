// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package agent detects which passphrase-caching agent, if any, is
// serving the current user.
//
// Detection reads an agent descriptor ("socket:pid:version") from gpg.conf
// or GPG_AGENT_INFO, checks that the process is alive, and then exchanges
// a two-line handshake with the socket to tell our own seahorse-agent
// apart from a foreign one. Every failure degrades to a weaker
// classification; nothing here returns an error to the caller.
package agent

// Kind classifies the agent found for the current user.
type Kind int

const (
	// KindNone means no usable agent: nothing configured, a malformed
	// descriptor, a dead process, or a peer that did not greet with OK.
	KindNone Kind = iota

	// KindOther means a live peer answered but did not identify as seahorse-agent.
	KindOther

	// KindMine means the peer identified itself as seahorse-agent.
	KindMine
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindOther:
		return "other"
	case KindMine:
		return "seahorse"
	default:
		return "unknown"
	}
}
