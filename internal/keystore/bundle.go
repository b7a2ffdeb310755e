// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package keystore

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/seahorse-keys/seahorse/internal/crypto"
)

// BundleVersion is the only bundle format version understood.
const BundleVersion = 1

// maxBundleKeys bounds decoding of untrusted input.
const maxBundleKeys = 4096

// Bundle is the export format moved between key stores.
type Bundle struct {
	Version uint        `cbor:"version"`
	Keys    []BundleKey `cbor:"keys"`
}

// BundleKey is one key inside a bundle.
type BundleKey struct {
	ID   string `cbor:"id"`
	Data []byte `cbor:"data"`
}

func (b *Bundle) zero() {
	for i := range b.Keys {
		crypto.ZeroBytes(b.Keys[i].Data)
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("keystore: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: maxBundleKeys,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("keystore: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeBundle writes b to w with deterministic CBOR encoding.
func EncodeBundle(w io.Writer, b *Bundle) error {
	if err := encMode.NewEncoder(w).Encode(b); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return nil
}

// DecodeBundle reads a bundle from r and verifies that every key id
// matches the fingerprint of its data.
func DecodeBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := decMode.NewDecoder(r).Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrInvalidBundle)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if b.Version != BundleVersion {
		b.zero()
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBundle, b.Version)
	}
	for _, k := range b.Keys {
		if len(k.Data) == 0 {
			b.zero()
			return nil, fmt.Errorf("%w: key %s has no data", ErrInvalidBundle, k.ID)
		}
		if id := KeyID(k.Data); id != k.ID {
			b.zero()
			return nil, fmt.Errorf("%w: key %s does not match its fingerprint %s", ErrInvalidBundle, k.ID, id)
		}
	}
	return &b, nil
}
