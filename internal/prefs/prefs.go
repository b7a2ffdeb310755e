// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package prefs stores the agent cache preferences in a YAML file and
// notifies listeners when they change.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seahorse-keys/seahorse/internal/passcache"
)

// FileName is the preferences file inside the data directory.
const FileName = "prefs.yaml"

// Preference keys.
const (
	KeyCacheEnabled   = "agent/cache_enabled"
	KeyCacheTTL       = "agent/cache_ttl"
	KeyCacheExpire    = "agent/cache_expire"
	KeyCacheAuthorize = "agent/cache_authorize"
)

var (
	ErrUnknownKey   = errors.New("unknown preference")
	ErrWrongType    = errors.New("preference has a different type")
	ErrInvalidValue = errors.New("invalid preference value")
)

// Prefs is the on-disk document.
type Prefs struct {
	Agent AgentPrefs `yaml:"agent"`
}

// AgentPrefs holds the agent's passphrase cache settings.
type AgentPrefs struct {
	CacheEnabled   bool `yaml:"cache_enabled"`
	CacheTTL       int  `yaml:"cache_ttl"` // minutes
	CacheExpire    bool `yaml:"cache_expire"`
	CacheAuthorize bool `yaml:"cache_authorize"`

	// AuthorizeCommand is run before releasing a cached passphrase when
	// CacheAuthorize is set. It must exit 0 to approve.
	AuthorizeCommand []string `yaml:"authorize_command,omitempty"`

	// AuthorizeTimeout bounds AuthorizeCommand, e.g. "30s".
	AuthorizeTimeout string `yaml:"authorize_timeout,omitempty"`
}

// DefaultAuthorizeTimeout applies when AuthorizeTimeout is empty or invalid.
const DefaultAuthorizeTimeout = 30 * time.Second

// Defaults returns the built-in preferences.
func Defaults() Prefs {
	return Prefs{
		Agent: AgentPrefs{
			CacheEnabled: true,
			CacheTTL:     int(passcache.DefaultTTL / time.Minute),
		},
	}
}

// Path returns the preferences file for dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads preferences from path. A missing file yields defaults.
func Load(path string) (Prefs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return Defaults(), fmt.Errorf("failed to read preferences: %w", err)
	}

	// Start with defaults, then overlay file values
	p := Defaults()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("failed to parse preferences: %w", err)
	}
	if p.Agent.CacheTTL <= 0 {
		p.Agent.CacheTTL = Defaults().Agent.CacheTTL
	}
	return p, nil
}

// Policy converts the cache preferences to a passcache policy.
func (p Prefs) Policy() passcache.Policy {
	return passcache.Policy{
		Enabled: p.Agent.CacheEnabled,
		TTL:     time.Duration(p.Agent.CacheTTL) * time.Minute,
		Expire:  p.Agent.CacheExpire,
	}
}

// AuthorizeTimeout parses Agent.AuthorizeTimeout.
func (p Prefs) AuthorizeTimeout() time.Duration {
	if p.Agent.AuthorizeTimeout == "" {
		return DefaultAuthorizeTimeout
	}
	d, err := time.ParseDuration(p.Agent.AuthorizeTimeout)
	if err != nil || d <= 0 {
		return DefaultAuthorizeTimeout
	}
	return d
}

// Kind is the type of a preference value.
type Kind int

const (
	KindBool Kind = iota
	KindInt
)

func (k Kind) String() string {
	if k == KindInt {
		return "int"
	}
	return "bool"
}

// Value is a typed preference value.
type Value struct {
	Key  string
	Kind Kind
	Bool bool
	Int  int
}

func (v Value) String() string {
	if v.Kind == KindInt {
		return strconv.Itoa(v.Int)
	}
	return strconv.FormatBool(v.Bool)
}

// KeyInfo describes a preference key.
type KeyInfo struct {
	Name        string
	Kind        Kind
	Description string
}

type keySpec struct {
	KeyInfo
	get func(*Prefs) Value
	set func(*Prefs, Value) error
}

var specs = []keySpec{
	{
		KeyInfo: KeyInfo{KeyCacheEnabled, KindBool, "cache passphrases in the agent"},
		get:     func(p *Prefs) Value { return Value{Kind: KindBool, Bool: p.Agent.CacheEnabled} },
		set:     func(p *Prefs, v Value) error { p.Agent.CacheEnabled = v.Bool; return nil },
	},
	{
		KeyInfo: KeyInfo{KeyCacheTTL, KindInt, "minutes a cached passphrase lives when expiry is on"},
		get:     func(p *Prefs) Value { return Value{Kind: KindInt, Int: p.Agent.CacheTTL} },
		set: func(p *Prefs, v Value) error {
			if v.Int < 1 {
				return fmt.Errorf("%w: %s must be at least 1", ErrInvalidValue, KeyCacheTTL)
			}
			p.Agent.CacheTTL = v.Int
			return nil
		},
	},
	{
		KeyInfo: KeyInfo{KeyCacheExpire, KindBool, "forget cached passphrases after the ttl"},
		get:     func(p *Prefs) Value { return Value{Kind: KindBool, Bool: p.Agent.CacheExpire} },
		set:     func(p *Prefs, v Value) error { p.Agent.CacheExpire = v.Bool; return nil },
	},
	{
		KeyInfo: KeyInfo{KeyCacheAuthorize, KindBool, "ask before releasing a cached passphrase"},
		get:     func(p *Prefs) Value { return Value{Kind: KindBool, Bool: p.Agent.CacheAuthorize} },
		set:     func(p *Prefs, v Value) error { p.Agent.CacheAuthorize = v.Bool; return nil },
	},
}

func lookupSpec(key string) (*keySpec, error) {
	for i := range specs {
		if specs[i].Name == key {
			return &specs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Keys lists every preference key in display order.
func Keys() []KeyInfo {
	out := make([]KeyInfo, len(specs))
	for i, s := range specs {
		out[i] = s.KeyInfo
	}
	return out
}

// Get returns the value of key.
func (p *Prefs) Get(key string) (Value, error) {
	s, err := lookupSpec(key)
	if err != nil {
		return Value{}, err
	}
	v := s.get(p)
	v.Key = key
	return v, nil
}

// ParseValue converts text to a value of the key's kind.
func ParseValue(key, text string) (Value, error) {
	s, err := lookupSpec(key)
	if err != nil {
		return Value{}, err
	}
	v := Value{Key: key, Kind: s.Kind}
	switch s.Kind {
	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s expects an integer", ErrInvalidValue, key)
		}
		v.Int = n
	default:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true", "yes", "on", "1":
			v.Bool = true
		case "false", "no", "off", "0":
			v.Bool = false
		default:
			return Value{}, fmt.Errorf("%w: %s expects true or false", ErrInvalidValue, key)
		}
	}
	return v, nil
}
