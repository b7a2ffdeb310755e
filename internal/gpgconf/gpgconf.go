// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package gpgconf reads and edits options in a GnuPG gpg.conf file.
// Lines have the form "name [value]"; '#' starts a comment line.
// Edits keep every other line, including comments, byte for byte.
package gpgconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/seahorse-keys/seahorse/internal/fsutil"
)

// HomeEnv overrides the GnuPG home directory.
const HomeEnv = "GNUPGHOME"

// FileName is the options file inside the GnuPG home.
const FileName = "gpg.conf"

// HomeDir returns $GNUPGHOME, or ~/.gnupg.
func HomeDir() string {
	if h := os.Getenv(HomeEnv); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gnupg"
	}
	return filepath.Join(home, ".gnupg")
}

// File is a gpg.conf on disk.
type File struct {
	Path string

	mu sync.Mutex
}

// Open returns the options file inside home, or the default home if empty.
func Open(home string) *File {
	if home == "" {
		home = HomeDir()
	}
	return &File{Path: filepath.Join(home, FileName)}
}

// splitOption returns the option name and value on line, or ok=false for
// blank and comment lines.
func splitOption(line string) (name, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	i := strings.IndexAny(trimmed, " \t")
	if i < 0 {
		return trimmed, "", true
	}
	return trimmed[:i], strings.TrimSpace(trimmed[i+1:]), true
}

func (f *File) readLines() ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func (f *File) writeLines(lines []string) error {
	if err := fsutil.MkdirAll(filepath.Dir(f.Path)); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(f.Path), err)
	}
	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}
	if err := fsutil.WriteFileAtomic(f.Path, []byte(out)); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return nil
}

// FindOption returns the value of the first active line for name.
// A missing file is not an error.
func (f *File) FindOption(name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := f.readLines()
	if err != nil {
		return "", false, err
	}
	for _, line := range lines {
		if n, v, ok := splitOption(line); ok && n == name {
			return v, true, nil
		}
	}
	return "", false, nil
}

// SetOption replaces the first active line for name, dropping any later
// duplicates, or appends one. An empty value writes the bare option name.
func (f *File) SetOption(name, value string) error {
	if name == "" || strings.ContainsAny(name, " \t\n#") {
		return fmt.Errorf("invalid option name %q", name)
	}
	if strings.Contains(value, "\n") {
		return fmt.Errorf("option value for %s contains a newline", name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := f.readLines()
	if err != nil {
		return err
	}

	entry := name
	if value != "" {
		entry = name + " " + value
	}

	out := make([]string, 0, len(lines)+1)
	replaced := false
	for _, line := range lines {
		if n, _, ok := splitOption(line); ok && n == name {
			if !replaced {
				out = append(out, entry)
				replaced = true
			}
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, entry)
	}
	return f.writeLines(out)
}

// RemoveOption deletes every active line for name and reports whether any
// were found. The file is left untouched when nothing matches.
func (f *File) RemoveOption(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines, err := f.readLines()
	if err != nil {
		return false, err
	}

	out := make([]string, 0, len(lines))
	removed := false
	for _, line := range lines {
		if n, _, ok := splitOption(line); ok && n == name {
			removed = true
			continue
		}
		out = append(out, line)
	}
	if !removed {
		return false, nil
	}
	return true, f.writeLines(out)
}
