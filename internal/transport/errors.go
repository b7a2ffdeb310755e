// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package transport

import "errors"

// Sentinel errors for IPC connection failures.
var (
	// ErrNotConnected is returned when I/O is attempted before Dial.
	ErrNotConnected = errors.New("not connected")

	// ErrLineTooLong is returned when the peer sends a line over MaxLineLength.
	ErrLineTooLong = errors.New("line too long")
)
