// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

//go:build !unix

package main

import (
	"errors"
	"io"
)

func daemonize(config, []string, io.Writer) error {
	return errors.New("--daemon is only supported on Unix systems")
}

func signalReady(string) bool { return false }

func detached() bool { return false }
