// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package fsutil provides filesystem helpers for the seahorse data directory.
// Everything under the data directory is private to the owning user
// (0600 files, 0700 dirs): it holds key material and agent state.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// PrivateDirPerm is the permission mode for data directories.
const PrivateDirPerm os.FileMode = 0700

// PrivateFilePerm is the permission mode for data files.
const PrivateFilePerm os.FileMode = 0600

// MkdirAll creates a directory and all parents with private permissions.
// Unlike os.MkdirAll, this explicitly sets permissions on the leaf after
// creation to bypass umask restrictions.
func MkdirAll(path string) error {
	if err := os.MkdirAll(path, PrivateDirPerm); err != nil {
		return err
	}
	return os.Chmod(path, PrivateDirPerm)
}

// WriteFile writes data to a file with private permissions.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, PrivateFilePerm); err != nil {
		return err
	}
	return os.Chmod(path, PrivateFilePerm)
}

// WriteFileAtomic writes data to a temp file in the same directory and
// renames it over path, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(PrivateFilePerm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
