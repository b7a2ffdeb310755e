// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package keystore

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

// ageHeader starts every age-encrypted file.
const ageHeader = "age-encryption.org/v1\n"

// sealWorkFactor is the scrypt log2(N) used when sealing.
var sealWorkFactor = 18

// IsSealed reports whether data is an age-encrypted bundle.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeader))
}

// SealBundle encrypts bundle to w under passphrase.
func SealBundle(w io.Writer, bundle []byte, passphrase string) error {
	if passphrase == "" {
		return errors.New("passphrase is empty")
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	recipient.SetWorkFactor(sealWorkFactor)

	aw, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := aw.Write(bundle); err != nil {
		return fmt.Errorf("failed to write sealed bundle: %w", err)
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("failed to finish sealed bundle: %w", err)
	}
	return nil
}

// OpenBundle decrypts a sealed bundle from r. A wrong passphrase returns
// ErrInvalidPassphrase.
func OpenBundle(r io.Reader, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	ar, err := age.Decrypt(r, identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, ErrInvalidPassphrase
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	data, err := io.ReadAll(ar)
	if err != nil {
		return nil, fmt.Errorf("failed to read sealed bundle: %w", err)
	}
	return data, nil
}
