// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package main implements a static analyzer that detects passphrases or
// key material reaching logs, errors or formatted output.
//
// It scans source lines for logging calls and format strings that carry
// passphrase or key variables.
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

// Format specifiers next to secret-looking variables.
var dangerousFormatPatterns = []*regexp.Regexp{
	regexp.MustCompile(`%[sqvx].*,\s*(?i)(pass|passphrase|secret|plain|keydata)\b`),
	regexp.MustCompile(`%[sqvx].*,\s*string\((?i)(pass|passphrase|secret|plain)\)`),
}

// Structured log attributes whose value is a secret variable.
var logAttrPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.(Debug|Info|Warn|Error)\(.*"(?i)(passphrase|secret|pass)",\s*\w+`),
}

// Direct printing of a secret variable.
var directPrintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`fmt\.(Print|Println)\((?i)(pass|passphrase|secret|plain)\)`),
	regexp.MustCompile(`log\.(Print|Println)\((?i)(pass|passphrase|secret|plain)\)`),
}

// Lines that match a dangerous pattern but are known to be harmless.
var safePatterns = []*regexp.Regexp{
	// Lengths and counts are not the secret itself
	regexp.MustCompile(`len\((?i)(pass|passphrase|secret|plain)\)`),
	// Prompt text mentioning the word passphrase
	regexp.MustCompile(`ReadSecret\(|ReadPassword\(`),
}

// Files that intentionally output secret material to the user.
var exemptFiles = map[string]string{
	"cmd/seahorse/keys.go": "keys export - writes the bundle the user asked for",
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
		_, _ = fmt.Fprintln(stderr, "Usage: secretlog <repo-root>")
		return 2
	}

	findings, filesChecked, err := scan(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error walking directory: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "Secret Logging Analysis\n")
	_, _ = fmt.Fprintf(stdout, "=======================\n")
	_, _ = fmt.Fprintf(stdout, "Files checked: %d\n\n", filesChecked)

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

func scan(root string) ([]finding, int, error) {
	var findings []finding
	var filesChecked int

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			base := filepath.Base(path)
			if base == "vendor" || base == ".git" || base == "analysis" || strings.HasPrefix(base, "_") {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		if _, exempt := exemptFiles[filepath.ToSlash(rel)]; exempt {
			return nil
		}

		filesChecked++
		findings = append(findings, checkFile(path)...)
		return nil
	})
	return findings, filesChecked, err
}

func checkFile(path string) []finding {
	var findings []finding

	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		if matchesAny(safePatterns, line) {
			continue
		}

		switch {
		case matchesAny(directPrintPatterns, line):
			findings = append(findings, finding{path, lineNum, line, "Direct printing of a secret variable"})
		case matchesAny(logAttrPatterns, line):
			findings = append(findings, finding{path, lineNum, line, "Secret passed as a log attribute"})
		case matchesAny(dangerousFormatPatterns, line):
			findings = append(findings, finding{path, lineNum, line, "Potential secret in formatted output"})
		}
	}

	return findings
}

func matchesAny(patterns []*regexp.Regexp, line string) bool {
	for _, pat := range patterns {
		if pat.MatchString(line) {
			return true
		}
	}
	return false
}
