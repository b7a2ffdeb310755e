// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package crypto holds helpers for handling passphrases in memory.
package crypto

import (
	"crypto/subtle"
	"runtime"
	"sync"
)

// ZeroBytes overwrites a byte slice with zeros.
// Uses a constant-time copy so the store is not optimized away.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(b)
}

// Equal compares two secrets in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// SecureString holds a passphrase and zeroes it on Destroy.
type SecureString struct {
	data []byte
	lock sync.RWMutex
}

// NewSecureStringFromBytes creates a new SecureString from a byte slice.
// The input bytes are copied, so the caller can safely zero the original.
func NewSecureStringFromBytes(b []byte) *SecureString {
	if b == nil {
		return &SecureString{data: nil}
	}
	data := make([]byte, len(b))
	copy(data, b)
	return &SecureString{data: data}
}

// WithBytes provides scoped access to the underlying bytes.
// The slice must not be retained after fn returns.
func (s *SecureString) WithBytes(fn func([]byte) error) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return fn(s.data)
}

// Destroy zeroes the data. The SecureString is empty afterwards.
func (s *SecureString) Destroy() {
	s.lock.Lock()
	defer s.lock.Unlock()
	ZeroBytes(s.data)
	s.data = nil
}

// IsEmpty returns true if the string is empty or nil
func (s *SecureString) IsEmpty() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.data) == 0
}
