// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package harness

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

var (
	buildOnce sync.Once
	buildDir  string
	buildErr  error
)

// Binaries compiles seahorse and seahorse-agent once per test process and
// returns the directory holding them. Both end up side by side, so
// `seahorse start-agent` finds the agent without consulting PATH.
func Binaries(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		buildDir, buildErr = os.MkdirTemp("", "seahorse-build-")
		if buildErr != nil {
			return
		}
		buildErr = build(buildDir, "seahorse", "seahorse-agent")
	})
	if buildErr != nil {
		t.Fatalf("Failed to build binaries: %v", buildErr)
	}
	return buildDir
}

// findProjectRoot asks the go command which go.mod governs the tests.
func findProjectRoot() (string, error) {
	out, err := exec.Command("go", "env", "GOMOD").Output()
	if err != nil {
		return "", fmt.Errorf("go env GOMOD: %w", err)
	}
	gomod := strings.TrimSpace(string(out))
	if gomod == "" || gomod == os.DevNull {
		return "", fmt.Errorf("not inside a module")
	}
	return filepath.Dir(gomod), nil
}

func build(dir string, names ...string) error {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("failed to find project root: %w", err)
	}
	for _, name := range names {
		cmd := exec.Command("go", "build", "-o", filepath.Join(dir, name), "./cmd/"+name)
		cmd.Dir = projectRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("failed to build %s: %w\nOutput: %s", name, err, output)
		}
	}
	return nil
}
