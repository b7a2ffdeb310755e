// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package util

import (
	"io"
	"log/slog"
	"os"
)

// DebugEnv enables debug logging when set to any non-empty value.
const DebugEnv = "SEAHORSE_DEBUG"

var Logger = slog.Default()

// InitLoggerTo initializes the global logger writing to w.
// Debug messages are shown when verbose is set or SEAHORSE_DEBUG is set.
// Times are dropped, and so is the level of info and debug lines, which
// keeps CLI output readable. Warnings and errors still say what they are.
func InitLoggerTo(w io.Writer, verbose bool) *slog.Logger {
	return initLogger(w, verbose, false)
}

// InitTimestampedLoggerTo is InitLoggerTo for log files: every record
// keeps its time.
func InitTimestampedLoggerTo(w io.Writer, verbose bool) *slog.Logger {
	return initLogger(w, verbose, true)
}

func initLogger(w io.Writer, verbose, timestamps bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || os.Getenv(DebugEnv) != "" {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if !timestamps {
					return slog.Attr{}
				}
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl < slog.LevelWarn {
					return slog.Attr{}
				}
			}
			return a
		},
	})

	Logger = slog.New(handler)
	return Logger
}

// Debug logs a debug message (only shown when SEAHORSE_DEBUG is set)
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}
