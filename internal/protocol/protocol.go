// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package protocol defines the line protocol spoken between seahorse-agent
// and its clients over a Unix stream socket.
// This is the single source of truth for the wire protocol.
//
// Every message is one line terminated by "\n". The server speaks first
// with a greeting that starts with "OK". Replies are "OK [text]",
// "ERR <code> <text>", or data lines "D <text>" followed by "OK".
package protocol

// DescriptorVersion is the only agent descriptor protocol version understood.
const DescriptorVersion = 1

// AgentName is the identity our own agent reports to AGENT_ID.
const AgentName = "seahorse-agent"

// Greeting is sent by the agent as soon as a client connects.
const Greeting = "OK Pleased to meet you"

// Reply status words
const (
	StatusOK   = "OK"
	StatusErr  = "ERR"
	StatusData = "D"
)

// Request command words
const (
	CmdAgentID          = "AGENT_ID"
	CmdGetPassphrase    = "GET_PASSPHRASE"
	CmdPresetPassphrase = "PRESET_PASSPHRASE"
	CmdClearPassphrase  = "CLEAR_PASSPHRASE"
	CmdClearAll         = "CLEAR_ALL"
	CmdOption           = "OPTION"
	CmdGetInfo          = "GETINFO"
	CmdNop              = "NOP"
	CmdBye              = "BYE"
)

// OptNoAsk makes GET_PASSPHRASE fail with ErrCodeNoData on a cache miss
// instead of asking. seahorse-agent never prompts, so it is implied.
const OptNoAsk = "--no-ask"

// GETINFO subjects
const (
	InfoPID        = "pid"
	InfoVersion    = "version"
	InfoSocketName = "socket_name"
	InfoTTL        = "ttl"
)

// Error codes. NoData and Canceled match the gpg-agent values so that
// gpg-agent clients interpret a cache miss correctly.
const (
	ErrCodeNoData         = 67108922
	ErrCodeCanceled       = 83886179
	ErrCodeUnknownCommand = 275
	ErrCodeSyntax         = 276
	ErrCodeNotAuthorized  = 281
)

// AgentBannerPrefix is the AGENT_ID reply prefix that marks our own agent.
const AgentBannerPrefix = StatusOK + " " + AgentName
