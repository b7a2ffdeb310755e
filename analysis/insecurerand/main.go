// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package main implements a static analyzer that detects insecure random number usage.
//
// Cache keys, bundle sealing and socket handling must draw from crypto/rand;
// this tool fails if math/rand shows up in those packages.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Directories that should never use math/rand
var criticalDirs = []string{
	"internal/agentd",
	"internal/crypto",
	"internal/keystore",
	"internal/passcache",
	"internal/transfer",
}

// Patterns indicating math/rand import (the actual problem)
var mathRandImportPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"math/rand"`),
	regexp.MustCompile(`"math/rand/v2"`),
}

// Patterns indicating crypto/rand import (correct usage)
var cryptoRandImportPattern = regexp.MustCompile(`"crypto/rand"`)

// Patterns that are only problematic with math/rand (not crypto/rand)
var mathRandOnlyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rand\.Seed`),
	regexp.MustCompile(`rand\.Intn\(`),
	regexp.MustCompile(`rand\.Int31`),
	regexp.MustCompile(`rand\.Int63`),
	regexp.MustCompile(`rand\.Float`),
	regexp.MustCompile(`rand\.Perm`),
	regexp.MustCompile(`rand\.Shuffle`),
	regexp.MustCompile(`rand\.NewSource`),
	regexp.MustCompile(`rand\.NewPCG`),
}

type finding struct {
	file    string
	line    int
	content string
	reason  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: insecurerand <repo-root>")
		return 2
	}

	findings, filesChecked := scan(args[0], stderr)

	_, _ = fmt.Fprintf(stdout, "Insecure Random Analysis\n")
	_, _ = fmt.Fprintf(stdout, "========================\n")
	_, _ = fmt.Fprintf(stdout, "Files checked: %d\n", filesChecked)
	_, _ = fmt.Fprintf(stdout, "Critical directories: %v\n\n", criticalDirs)

	if len(findings) == 0 {
		_, _ = fmt.Fprintln(stdout, "No issues found.")
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "Potential issues: %d\n\n", len(findings))
	for _, f := range findings {
		_, _ = fmt.Fprintf(stdout, "%s:%d\n", f.file, f.line)
		_, _ = fmt.Fprintf(stdout, "  Line: %s\n", strings.TrimSpace(f.content))
		_, _ = fmt.Fprintf(stdout, "  Issue: %s\n\n", f.reason)
	}
	return 1
}

func scan(root string, stderr io.Writer) ([]finding, int) {
	var findings []finding
	var filesChecked int

	for _, dir := range criticalDirs {
		dirPath := filepath.Join(root, dir)
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			continue
		}

		err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}

			filesChecked++
			findings = append(findings, checkFile(path)...)
			return nil
		})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error walking %s: %v\n", dir, err)
		}
	}
	return findings, filesChecked
}

func checkFile(path string) []finding {
	var findings []finding

	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	hasCryptoRandImport := false
	for i, line := range lines {
		for _, pat := range mathRandImportPatterns {
			if pat.MatchString(line) {
				findings = append(findings, finding{
					file:    path,
					line:    i + 1,
					content: line,
					reason:  "math/rand import in security-critical directory - use crypto/rand instead",
				})
				break
			}
		}
		if cryptoRandImportPattern.MatchString(line) {
			hasCryptoRandImport = true
		}
	}

	// Calls only math/rand provides, in case the import was aliased.
	if hasCryptoRandImport {
		return findings
	}
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		for _, pat := range mathRandOnlyPatterns {
			if pat.MatchString(line) {
				findings = append(findings, finding{
					file:    path,
					line:    i + 1,
					content: line,
					reason:  "math/rand function in security-critical code without crypto/rand import",
				})
				break
			}
		}
	}
	return findings
}
