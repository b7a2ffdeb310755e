// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agentd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seahorse-keys/seahorse/internal/passcache"
)

// writeScript creates an executable shell script in a private directory.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "helper.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0700); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAllowDeny(t *testing.T) {
	if err := (AllowAll{}).Authorize(context.Background(), AuthRequest{}); err != nil {
		t.Errorf("AllowAll error = %v", err)
	}
	if err := (DenyAll{}).Authorize(context.Background(), AuthRequest{}); !errors.Is(err, ErrDenied) {
		t.Errorf("DenyAll error = %v", err)
	}
}

func TestCommandAuthorizer_ExitStatus(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"approve", "exit 0", false},
		{"deny", "exit 1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &CommandAuthorizer{Argv: []string{writeScript(t, tt.body)}, Timeout: 5 * time.Second}
			err := a.Authorize(context.Background(), AuthRequest{CacheID: "k"})
			if tt.wantErr && !errors.Is(err, ErrDenied) {
				t.Errorf("Authorize() error = %v, want ErrDenied", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Authorize() error = %v", err)
			}
		})
	}
}

func TestCommandAuthorizer_Environment(t *testing.T) {
	out := filepath.Join(t.TempDir(), "env.txt")
	script := writeScript(t, `echo "$SEAHORSE_CACHE_ID|$SEAHORSE_PROMPT|$SEAHORSE_PEER_PID|$EXTRA|$HOME" > "$OUT"`)

	a := &CommandAuthorizer{
		Argv:    []string{script},
		Env:     map[string]string{"OUT": out, "EXTRA": "yes"},
		Timeout: 5 * time.Second,
	}
	req := AuthRequest{CacheID: "ABCD", Prompt: "Unlock key", PeerPID: 77}
	if err := a.Authorize(context.Background(), req); err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	// HOME is not inherited.
	if got := strings.TrimSpace(string(data)); got != "ABCD|Unlock key|77|yes|" {
		t.Errorf("helper saw %q", got)
	}
}

func TestCommandAuthorizer_Timeout(t *testing.T) {
	a := &CommandAuthorizer{Argv: []string{writeScript(t, "sleep 30")}, Timeout: 100 * time.Millisecond}

	start := time.Now()
	err := a.Authorize(context.Background(), AuthRequest{})
	if !errors.Is(err, ErrDenied) {
		t.Errorf("Authorize() error = %v, want ErrDenied", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestCommandAuthorizer_Validate(t *testing.T) {
	dir := t.TempDir()
	notExec := filepath.Join(dir, "plain")
	if err := os.WriteFile(notExec, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	writable := filepath.Join(dir, "writable")
	if err := os.WriteFile(writable, []byte("#!/bin/sh\n"), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(writable, 0777); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		argv []string
	}{
		{"empty", nil},
		{"relative", []string{"helper"}},
		{"missing", []string{filepath.Join(dir, "absent")}},
		{"directory", []string{dir}},
		{"not executable", []string{notExec}},
		{"world writable", []string{writable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &CommandAuthorizer{Argv: tt.argv}
			if err := a.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
			if err := a.Authorize(context.Background(), AuthRequest{}); err == nil {
				t.Error("Authorize() should fail for an invalid command")
			}
		})
	}
}

func TestServer_CommandAuthorizerEndToEnd(t *testing.T) {
	s := startServer(t, passcache.DefaultPolicy())
	s.Authorizer = &CommandAuthorizer{Argv: []string{writeScript(t, `[ "$SEAHORSE_CACHE_ID" = allowed ]`)}, Timeout: 5 * time.Second}
	s.SetAuthorize(true)
	c := dialServer(t, s)

	_ = c.PresetPassphrase("allowed", []byte("a"))
	_ = c.PresetPassphrase("blocked", []byte("b"))

	if got, err := c.GetPassphrase("allowed"); err != nil || string(got) != "a" {
		t.Errorf("GetPassphrase(allowed) = %q, %v", got, err)
	}
	if _, err := c.GetPassphrase("blocked"); err == nil {
		t.Error("GetPassphrase(blocked) should be denied")
	}
}
