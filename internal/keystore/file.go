// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package keystore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/seahorse-keys/seahorse/internal/crypto"
	"github.com/seahorse-keys/seahorse/internal/fsutil"
	"github.com/seahorse-keys/seahorse/internal/transfer"
	"github.com/seahorse-keys/seahorse/internal/util"
)

const keyFileExt = ".key"

// FileKeyStore implements KeyStore with one file per key on disk.
type FileKeyStore struct {
	dir      string
	location transfer.Location

	// id -> key file path (populated by Scan)
	cache     map[string]string
	cacheLock sync.RWMutex
}

// NewFileKeyStore creates a file-based key store rooted at dir.
// Call Scan (or use Open) before reading from it.
func NewFileKeyStore(dir string, location transfer.Location) *FileKeyStore {
	return &FileKeyStore{
		dir:      dir,
		location: location,
		cache:    make(map[string]string),
	}
}

// Open creates dir if needed and scans it.
func Open(dir string, location transfer.Location) (*FileKeyStore, error) {
	if err := fsutil.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("failed to create keyring directory: %w", err)
	}
	f := NewFileKeyStore(dir, location)
	if err := f.Scan(); err != nil {
		return nil, err
	}
	return f, nil
}

// Dir returns the keyring directory.
func (f *FileKeyStore) Dir() string { return f.dir }

// Scan populates the internal cache from the key files on disk.
// Files whose name is not a valid key id are ignored.
func (f *FileKeyStore) Scan() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			f.cacheLock.Lock()
			f.cache = make(map[string]string)
			f.cacheLock.Unlock()
			return nil
		}
		return fmt.Errorf("failed to scan keyring: %w", err)
	}

	found := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), keyFileExt) {
			continue
		}
		id, ok := NormalizeID(strings.TrimSuffix(e.Name(), keyFileExt))
		if !ok {
			util.Debug("skipping unrecognized keyring file", "name", e.Name())
			continue
		}
		found[id] = filepath.Join(f.dir, e.Name())
	}

	f.cacheLock.Lock()
	f.cache = found
	f.cacheLock.Unlock()
	return nil
}

// List returns metadata for all keys, sorted by id.
func (f *FileKeyStore) List(ctx context.Context) ([]KeyMetadata, error) {
	f.cacheLock.RLock()
	paths := make(map[string]string, len(f.cache))
	for id, p := range f.cache {
		paths[id] = p
	}
	f.cacheLock.RUnlock()

	result := make([]KeyMetadata, 0, len(paths))
	for id, p := range paths {
		meta := KeyMetadata{ID: id, FilePath: p}
		if info, err := os.Stat(p); err == nil {
			meta.Size = int(info.Size())
			meta.CreatedAt = info.ModTime()
		}
		result = append(result, meta)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *FileKeyStore) lookup(id string) (string, string, error) {
	norm, ok := NormalizeID(id)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrKeyNotFound, id)
	}
	f.cacheLock.RLock()
	p, exists := f.cache[norm]
	f.cacheLock.RUnlock()
	if !exists {
		return "", "", fmt.Errorf("%w: %s", ErrKeyNotFound, norm)
	}
	return norm, p, nil
}

// Get returns the raw key bytes.
func (f *FileKeyStore) Get(ctx context.Context, id string) ([]byte, error) {
	_, p, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return data, nil
}

// Add stores data and returns its id. Adding a key that is already
// present is a no-op.
func (f *FileKeyStore) Add(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("key data is empty")
	}
	id := KeyID(data)
	filePath := filepath.Join(f.dir, id+keyFileExt)

	f.cacheLock.Lock()
	defer f.cacheLock.Unlock()

	if existing, err := os.ReadFile(filePath); err == nil {
		same := crypto.Equal(existing, data)
		crypto.ZeroBytes(existing)
		if !same {
			return "", fmt.Errorf("%w: %s", ErrKeyExists, id)
		}
		f.cache[id] = filePath
		return id, nil
	}

	if err := fsutil.MkdirAll(f.dir); err != nil {
		return "", fmt.Errorf("failed to create keyring directory: %w", err)
	}
	if err := fsutil.WriteFileAtomic(filePath, data); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}
	f.cache[id] = filePath
	return id, nil
}

// Delete removes a key from the store
func (f *FileKeyStore) Delete(ctx context.Context, id string) error {
	norm, _, err := f.lookup(id)
	if err != nil {
		return err
	}

	f.cacheLock.Lock()
	p, exists := f.cache[norm]
	if !exists {
		f.cacheLock.Unlock()
		return fmt.Errorf("%w: %s", ErrKeyNotFound, norm)
	}
	delete(f.cache, norm)
	f.cacheLock.Unlock()

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key file: %w", err)
	}
	return nil
}

// Type returns the storage backend type
func (f *FileKeyStore) Type() string {
	return "file"
}

// Location reports where the store lives for transfer labelling.
func (f *FileKeyStore) Location() transfer.Location {
	return f.location
}

// Export writes a bundle holding the keys named by ids to w.
// No ids writes nothing.
func (f *FileKeyStore) Export(ctx context.Context, ids []string, w io.Writer) error {
	if len(ids) == 0 {
		return nil
	}

	bundle := Bundle{Version: BundleVersion}
	defer bundle.zero()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := f.Get(ctx, id)
		if err != nil {
			return err
		}
		bundle.Keys = append(bundle.Keys, BundleKey{ID: KeyID(data), Data: data})
	}

	return EncodeBundle(w, &bundle)
}

// Import reads a bundle from r and stores its keys. Empty input imports
// nothing. The ids of stored keys are returned in bundle order.
func (f *FileKeyStore) Import(ctx context.Context, r io.Reader) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	defer crypto.ZeroBytes(raw)

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if IsSealed(raw) {
		return nil, ErrSealed
	}

	bundle, err := DecodeBundle(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer bundle.zero()

	imported := make([]string, 0, len(bundle.Keys))
	for _, k := range bundle.Keys {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		id, err := f.Add(ctx, k.Data)
		if err != nil {
			return imported, err
		}
		imported = append(imported, id)
	}
	return imported, nil
}

// Compile-time interface checks
var (
	_ KeyStore        = (*FileKeyStore)(nil)
	_ transfer.Source = (*FileKeyStore)(nil)
)
