// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package passcache holds passphrases in memory for the agent. Entries are
// sealed under a per-process key so plaintext only exists while a caller
// is using it.
package passcache

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/seahorse-keys/seahorse/internal/crypto"
	"github.com/seahorse-keys/seahorse/internal/util"
)

// DefaultTTL is how long entries live when expiry is enabled.
const DefaultTTL = 15 * time.Minute

// Policy controls whether and for how long passphrases are kept.
type Policy struct {
	Enabled bool
	TTL     time.Duration
	Expire  bool // Entries older than TTL are dropped
}

// DefaultPolicy caches without expiry.
func DefaultPolicy() Policy {
	return Policy{Enabled: true, TTL: DefaultTTL}
}

type entry struct {
	nonce  []byte
	sealed []byte
	stored time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	aead    cipher.AEAD
	entries map[string]entry
	policy  Policy
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache with a fresh sealing key.
func New(policy Policy, opts ...Option) (*Cache, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate cache key: %w", err)
	}
	defer crypto.ZeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache cipher: %w", err)
	}

	c := &Cache{
		aead:    aead,
		entries: make(map[string]entry),
		policy:  policy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Put stores passphrase under id and reports whether it was kept.
// A disabled cache keeps nothing. The caller still owns passphrase.
func (c *Cache) Put(id string, passphrase []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.policy.Enabled {
		return false
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		util.Debug("passphrase cache nonce generation failed", "error", err)
		return false
	}
	c.entries[id] = entry{
		nonce:  nonce,
		sealed: c.aead.Seal(nil, nonce, passphrase, []byte(id)),
		stored: c.now(),
	}
	return true
}

// Get returns a fresh plaintext copy of the passphrase for id. Callers
// should zero it with crypto.ZeroBytes when done.
func (c *Cache) Get(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.policy.Enabled {
		return nil, false
	}
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.expired(e, c.now()) {
		c.drop(id)
		return nil, false
	}

	plain, err := c.aead.Open(nil, e.nonce, e.sealed, []byte(id))
	if err != nil {
		c.drop(id)
		return nil, false
	}
	return plain, true
}

// Remove forgets id and reports whether it was present.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	c.drop(id)
	return ok
}

// Clear forgets every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Policy returns the current policy.
func (c *Cache) Policy() Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy
}

// SetPolicy replaces the policy. Disabling the cache clears it, and
// enabling expiry sweeps immediately.
func (c *Cache) SetPolicy(p Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
	if !p.Enabled {
		c.clearLocked()
		return
	}
	c.sweepLocked(c.now())
}

// Sweep drops expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Run sweeps every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				util.Debug("expired cached passphrases", "count", n)
			}
		}
	}
}

func (c *Cache) expired(e entry, now time.Time) bool {
	return c.policy.Expire && now.Sub(e.stored) >= c.policy.TTL
}

func (c *Cache) sweepLocked(now time.Time) int {
	n := 0
	for id, e := range c.entries {
		if c.expired(e, now) {
			c.drop(id)
			n++
		}
	}
	return n
}

func (c *Cache) clearLocked() {
	for id := range c.entries {
		c.drop(id)
	}
}

// drop must be called with c.mu held.
func (c *Cache) drop(id string) {
	if e, ok := c.entries[id]; ok {
		crypto.ZeroBytes(e.sealed)
		delete(c.entries, id)
	}
}
