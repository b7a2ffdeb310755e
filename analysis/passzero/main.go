// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package main implements a static analyzer that checks for proper zeroing of passphrases.
//
// This analyzer scans for functions that obtain passphrase or key bytes and
// verifies they call ZeroBytes before returning.
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

// Calls that hand the function a secret it then owns
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ReadSecret\(`),
	regexp.MustCompile(`ReadPassword\(`),
	regexp.MustCompile(`DecodePassphrase\(`),
	regexp.MustCompile(`\.GetPassphrase\(`),
	regexp.MustCompile(`OpenBundle\(`),
}

// Patterns that indicate proper zeroing
var zeroPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ZeroBytes`),
	regexp.MustCompile(`\.zero\(\)`),
	regexp.MustCompile(`\.Destroy\(\)`),
}

// Directories to scan (relative to repo root)
var targetDirs = []string{
	"internal/agentd",
	"internal/keystore",
	"internal/passcache",
	"cmd/seahorse",
}

// Files/patterns to skip
var skipPatterns = []string{
	"_test.go",
	"testdata",
}

// Functions that are exempt from zeroing requirements.
// These pass the secret on and leave zeroing to their caller.
var exemptFunctions = map[string]string{
	"GetPassphrase":     "returns the passphrase - caller zeroes it",
	"Lookup":            "returns the passphrase - caller zeroes it",
	"ReadSecret":        "returns the secret - caller zeroes it",
	"readNewPassphrase": "returns the confirmed passphrase in a SecureString - caller destroys it",
	"passwordReader":    "builds the prompt function - callers zero what it returns",
}

type finding struct {
	file     string
	line     int
	content  string
	funcName string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: passzero <repo-root>")
		return 2
	}

	findings, filesChecked := scan(args[0], stderr)

	_, _ = fmt.Fprintf(stdout, "Passphrase Zeroing Analysis\n")
	_, _ = fmt.Fprintf(stdout, "===========================\n")
	_, _ = fmt.Fprintf(stdout, "Files checked: %d\n\n", filesChecked)

	if len(findings) == 0 {
		_, _ = fmt.Fprintln(stdout, "No issues found.")
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "Potential issues: %d\n\n", len(findings))
	for _, f := range findings {
		_, _ = fmt.Fprintf(stdout, "%s:%d\n", f.file, f.line)
		_, _ = fmt.Fprintf(stdout, "  Function: %s\n", f.funcName)
		_, _ = fmt.Fprintf(stdout, "  Line: %s\n", strings.TrimSpace(f.content))
		_, _ = fmt.Fprintf(stdout, "  Issue: Secret obtained but no ZeroBytes in function\n\n")
	}
	return 1
}

func scan(root string, stderr io.Writer) ([]finding, int) {
	var findings []finding
	var filesChecked int

	for _, dir := range targetDirs {
		dirPath := filepath.Join(root, dir)
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			continue
		}

		err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !strings.HasSuffix(path, ".go") {
				return nil
			}
			for _, skip := range skipPatterns {
				if strings.Contains(path, skip) {
					return nil
				}
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

var funcPattern = regexp.MustCompile(`^func\s+(\([^)]+\)\s+)?(\w+)`)

// checkFile tracks top-level function bodies by brace depth and reports
// functions that obtain a secret without zeroing anything.
func checkFile(path string) []finding {
	var findings []finding

	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = file.Close() }()

	var (
		inFunc        bool
		funcName      string
		braceCount    int
		hasSecret     bool
		hasZero       bool
		secretLine    int
		secretContent string
	)

	flush := func() {
		if inFunc && hasSecret && !hasZero {
			if _, exempt := exemptFunctions[funcName]; !exempt {
				findings = append(findings, finding{
					file:     path,
					line:     secretLine,
					content:  secretContent,
					funcName: funcName,
				})
			}
		}
		inFunc = false
	}

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if match := funcPattern.FindStringSubmatch(line); match != nil {
			flush()
			inFunc = true
			funcName = match[2]
			braceCount = 0
			hasSecret = false
			hasZero = false
		}
		if !inFunc {
			continue
		}

		braceCount += strings.Count(line, "{") - strings.Count(line, "}")
		code := line
		if i := strings.Index(code, "//"); i >= 0 {
			code = code[:i]
		}

		if !hasSecret {
			for _, pat := range secretPatterns {
				if pat.MatchString(code) {
					hasSecret = true
					secretLine = lineNum
					secretContent = line
					break
				}
			}
		}
		for _, pat := range zeroPatterns {
			if pat.MatchString(code) {
				hasZero = true
				break
			}
		}

		if braceCount == 0 && strings.Contains(line, "}") {
			flush()
		}
	}
	flush()

	return findings
}
