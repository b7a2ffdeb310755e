// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agent

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/seahorse-keys/seahorse/internal/testutil"
)

// fakeOptions is an in-memory OptionFinder.
type fakeOptions struct {
	values map[string]string
	err    error
}

func (f *fakeOptions) FindOption(name string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[name]
	return v, ok, nil
}

// countingProber records the sockets it was asked to probe.
type countingProber struct {
	result Kind
	calls  []string
}

func (c *countingProber) Probe(ctx context.Context, socketPath string) Kind {
	c.calls = append(c.calls, socketPath)
	return c.result
}

func env(values map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}
}

func alwaysAlive(int) bool { return true }

func TestWhichAgentRunning_NothingConfigured(t *testing.T) {
	prober := &countingProber{result: KindMine}
	d := &Detector{
		Options: &fakeOptions{},
		Getenv:  env(nil),
		Alive:   alwaysAlive,
		Prober:  prober,
	}

	st := d.Status(context.Background())
	if st.Kind != KindNone || st.Source != SourceNone {
		t.Errorf("Status() = %+v, want none/none", st)
	}
	if len(prober.calls) != 0 {
		t.Errorf("prober called %d times, want 0", len(prober.calls))
	}
}

func TestWhichAgentRunning_ConfigBeatsEnvironment(t *testing.T) {
	prober := &countingProber{result: KindMine}
	d := &Detector{
		Options: &fakeOptions{values: map[string]string{OptionName: "/conf.sock:10:1"}},
		Getenv:  env(map[string]string{EnvVar: "/env.sock:20:1"}),
		Alive:   alwaysAlive,
		Prober:  prober,
	}

	st := d.Status(context.Background())
	if st.Kind != KindMine {
		t.Errorf("Kind = %v, want KindMine", st.Kind)
	}
	if st.Source != SourceConfig {
		t.Errorf("Source = %v, want %v", st.Source, SourceConfig)
	}
	if len(prober.calls) != 1 || prober.calls[0] != "/conf.sock" {
		t.Errorf("prober calls = %v, want [/conf.sock]", prober.calls)
	}
}

func TestWhichAgentRunning_FallsBackToEnvironment(t *testing.T) {
	for name, opts := range map[string]OptionFinder{
		"no option":    &fakeOptions{},
		"empty option": &fakeOptions{values: map[string]string{OptionName: ""}},
		"read error":   &fakeOptions{err: errors.New("permission denied")},
		"no store":     nil,
	} {
		t.Run(name, func(t *testing.T) {
			prober := &countingProber{result: KindOther}
			d := &Detector{
				Options: opts,
				Getenv:  env(map[string]string{EnvVar: "/env.sock:20:1"}),
				Alive:   alwaysAlive,
				Prober:  prober,
			}

			st := d.Status(context.Background())
			if st.Kind != KindOther || st.Source != SourceEnvironment {
				t.Errorf("Status() = %+v", st)
			}
			if len(prober.calls) != 1 || prober.calls[0] != "/env.sock" {
				t.Errorf("prober calls = %v", prober.calls)
			}
		})
	}
}

func TestWhichAgentRunning_NoSocketIOForBadDescriptors(t *testing.T) {
	tests := []struct {
		name  string
		value string
		alive bool
	}{
		{"wrong version", "/s.sock:10:2", true},
		{"zero pid", "/s.sock:0:1", true},
		{"non-numeric pid", "/s.sock:abc:1", true},
		{"pid wraps pid_t", "/s.sock:4294967297:1", true},
		{"too few fields", "/s.sock:10", true},
		{"garbage", "garbage", true},
		{"dead process", "/s.sock:10:1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := &countingProber{result: KindMine}
			aliveCalls := 0
			d := &Detector{
				Getenv: env(map[string]string{EnvVar: tt.value}),
				Alive: func(int) bool {
					aliveCalls++
					return tt.alive
				},
				Prober: prober,
			}

			if got := d.WhichAgentRunning(context.Background()); got != KindNone {
				t.Errorf("WhichAgentRunning() = %v, want KindNone", got)
			}
			if len(prober.calls) != 0 {
				t.Errorf("prober called for %q", tt.value)
			}
			if tt.alive && aliveCalls != 0 {
				t.Errorf("liveness checked for invalid descriptor %q", tt.value)
			}
		})
	}
}

func TestWhichAgentRunning_EndToEnd(t *testing.T) {
	mock := testutil.NewMockAgent(t, "OK Pleased to meet you", "OK seahorse-agent 2.2.0")

	d := &Detector{
		Getenv: env(map[string]string{EnvVar: NewDescriptor(mock.Path, os.Getpid()).String()}),
		Prober: &Prober{Timeout: time.Second},
	}
	if got := d.WhichAgentRunning(context.Background()); got != KindMine {
		t.Errorf("WhichAgentRunning() = %v, want KindMine", got)
	}
}

func TestWhichAgentRunning_DeadPidSkipsRealSocket(t *testing.T) {
	mock := testutil.NewMockAgent(t, "OK", "OK seahorse-agent")

	d := &Detector{
		Getenv: env(map[string]string{EnvVar: NewDescriptor(mock.Path, 0x7ffffffe).String()}),
		Prober: &Prober{Timeout: time.Second},
	}
	if got := d.WhichAgentRunning(context.Background()); got != KindNone {
		t.Errorf("WhichAgentRunning() = %v, want KindNone", got)
	}
	if mock.Accepted() != 0 {
		t.Errorf("mock agent accepted %d connections, want 0", mock.Accepted())
	}
}
