// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

//go:build unix

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/seahorse-keys/seahorse/internal/fsutil"
)

const (
	// readyFDEnv tells a detached child which descriptor to report on.
	readyFDEnv = "SEAHORSE_AGENT_READY_FD"

	// LogFileName receives a detached agent's log output.
	LogFileName = "seahorse-agent.log"

	readyTimeout = 10 * time.Second
)

// daemonize re-executes the agent in a new session and waits until it
// reports its descriptor, which is printed as a shell export.
func daemonize(cfg config, args []string, stdout io.Writer) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	if err := fsutil.MkdirAll(cfg.dataDir); err != nil {
		return err
	}
	logPath := filepath.Join(cfg.dataDir, LogFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	// #nosec G204 - re-executing ourselves with our own arguments
	cmd := exec.Command(exe, withoutDaemonFlag(args)...)
	cmd.Env = append(os.Environ(), readyFDEnv+"=3")
	cmd.ExtraFiles = []*os.File{w}
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to start agent: %w", err)
	}
	_ = w.Close()

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	lines := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(r).ReadString('\n')
		lines <- strings.TrimSpace(line)
	}()

	select {
	case desc := <-lines:
		if desc == "" {
			<-exited
			return fmt.Errorf("agent exited during startup (see %s)", logPath)
		}
		_, _ = fmt.Fprint(stdout, shellExport(desc))
		return nil
	case <-time.After(readyTimeout):
		_ = cmd.Process.Kill()
		return fmt.Errorf("agent did not become ready within %s (see %s)", readyTimeout, logPath)
	}
}

// detached reports whether this process is the child started by daemonize.
func detached() bool {
	_, ok := os.LookupEnv(readyFDEnv)
	return ok
}

// signalReady reports desc to a waiting parent. It returns false when
// the agent was not started by daemonize.
func signalReady(desc string) bool {
	value, ok := os.LookupEnv(readyFDEnv)
	if !ok {
		return false
	}
	_ = os.Unsetenv(readyFDEnv)
	fd, err := strconv.Atoi(value)
	if err != nil || fd < 3 {
		return false
	}
	f := os.NewFile(uintptr(fd), "ready")
	if f == nil {
		return false
	}
	defer func() { _ = f.Close() }()
	_, err = fmt.Fprintln(f, desc)
	return err == nil
}

func withoutDaemonFlag(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--daemon" || strings.HasPrefix(a, "--daemon=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
