// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package agent

import "testing"

func TestParseDescriptor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Descriptor
		ok    bool
		valid bool
	}{
		{"well formed", "/run/user/1000/S.seahorse:1234:1", Descriptor{"/run/user/1000/S.seahorse", 1234, 1}, true, true},
		{"surrounding whitespace", " /tmp/s:42:1\n", Descriptor{"/tmp/s", 42, 1}, true, true},
		{"version 2", "/tmp/s:42:2", Descriptor{"/tmp/s", 42, 2}, true, false},
		{"non-numeric pid", "/tmp/s:abc:1", Descriptor{"/tmp/s", 0, 1}, true, false},
		{"non-numeric version", "/tmp/s:42:one", Descriptor{"/tmp/s", 42, 0}, true, false},
		{"extra colons end up in version", "/tmp/s:42:1:extra", Descriptor{"/tmp/s", 42, 0}, true, false},
		{"zero pid", "/tmp/s:0:1", Descriptor{"/tmp/s", 0, 1}, true, false},
		{"negative pid", "/tmp/s:-5:1", Descriptor{"/tmp/s", -5, 1}, true, false},
		{"pid beyond pid_t", "/tmp/s:4294967297:1", Descriptor{"/tmp/s", 0, 1}, true, false},
		{"largest pid_t", "/tmp/s:2147483647:1", Descriptor{"/tmp/s", 2147483647, 1}, true, true},
		{"version beyond 32 bits", "/tmp/s:42:4294967297", Descriptor{"/tmp/s", 42, 0}, true, false},
		{"two fields", "/tmp/s:42", Descriptor{}, false, false},
		{"one field", "/tmp/s", Descriptor{}, false, false},
		{"empty", "", Descriptor{}, false, false},
		{"only colons", "::", Descriptor{}, false, false},
		{"empty socket", ":42:1", Descriptor{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDescriptor(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseDescriptor(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ParseDescriptor(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.Valid() != tt.valid {
				t.Errorf("Valid() = %v, want %v", got.Valid(), tt.valid)
			}
		})
	}
}

func TestDescriptorString(t *testing.T) {
	d := NewDescriptor("/tmp/agent.sock", 99)
	if got := d.String(); got != "/tmp/agent.sock:99:1" {
		t.Errorf("String() = %q", got)
	}

	parsed, ok := ParseDescriptor(d.String())
	if !ok || parsed != d {
		t.Errorf("ParseDescriptor(String()) = %+v, %v", parsed, ok)
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindNone:  "none",
		KindOther: "other",
		KindMine:  "seahorse",
		Kind(42):  "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
