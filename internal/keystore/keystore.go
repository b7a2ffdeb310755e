// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package keystore provides key storage interfaces and implementations.
//
// Keys are opaque byte blobs identified by a short BLAKE3 fingerprint.
// The file-based store keeps one file per key and can export and import
// CBOR bundles, optionally sealed under a passphrase with age.
package keystore

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// Common keystore errors
var (
	// ErrKeyNotFound indicates the requested key does not exist
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists indicates a different key already uses the id
	ErrKeyExists = errors.New("key already exists")

	// ErrInvalidPassphrase indicates a sealed bundle could not be opened
	ErrInvalidPassphrase = errors.New("invalid passphrase")

	// ErrInvalidBundle indicates a bundle that cannot be decoded or fails verification
	ErrInvalidBundle = errors.New("invalid key bundle")

	// ErrSealed indicates a sealed bundle was passed where plain data was expected
	ErrSealed = errors.New("bundle is sealed")
)

// KeyIDLength is the number of hex characters in a key id.
const KeyIDLength = 16

// KeyMetadata contains non-sensitive information about a stored key
type KeyMetadata struct {
	ID        string
	Size      int
	CreatedAt time.Time

	// FilePath is the path to the key file (file backend only)
	FilePath string
}

// KeyStore abstracts key storage and retrieval operations.
// Implementations must be safe for concurrent use.
type KeyStore interface {
	// List returns metadata for all keys, sorted by id.
	List(ctx context.Context) ([]KeyMetadata, error)

	// Get returns the raw key bytes. Callers should zero them after use.
	Get(ctx context.Context, id string) ([]byte, error)

	// Add stores a key and returns its id.
	Add(ctx context.Context, data []byte) (string, error)

	// Delete removes a key. Returns ErrKeyNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// Type returns the storage backend type
	Type() string
}

// KeyID returns the fingerprint used to identify data: the first
// KeyIDLength upper-case hex characters of its BLAKE3 digest.
func KeyID(data []byte) string {
	sum := blake3.Sum256(data)
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:KeyIDLength]
}

// NormalizeID upper-cases id and reports whether it is well formed.
func NormalizeID(id string) (string, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if len(id) != KeyIDLength {
		return "", false
	}
	if _, err := hex.DecodeString(id); err != nil {
		return "", false
	}
	return id, true
}
