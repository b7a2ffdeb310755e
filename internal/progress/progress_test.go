// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type endpoint struct{ name string }

func TestTracker_BeginEnd(t *testing.T) {
	tr := NewTracker()
	a := endpoint{"a"}

	var events []Event
	tr.Listen(func(ev Event) { events = append(events, ev) })

	tr.Prep(a, "Exporting data")
	tr.Begin(a)
	if tr.Active() != 1 {
		t.Errorf("Active() = %d, want 1", tr.Active())
	}
	if tr.Label(a) != "Exporting data" {
		t.Errorf("Label() = %q", tr.Label(a))
	}
	tr.End(a)
	if tr.Active() != 0 {
		t.Errorf("Active() = %d after End, want 0", tr.Active())
	}
	if tr.Label(a) != "" {
		t.Errorf("Label() = %q after End, want empty", tr.Label(a))
	}

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	wantKinds := []EventKind{EventPrep, EventBegin, EventEnd}
	for i, ev := range events {
		if ev.Kind != wantKinds[i] {
			t.Errorf("event %d kind = %v, want %v", i, ev.Kind, wantKinds[i])
		}
		if ev.Label != "Exporting data" {
			t.Errorf("event %d label = %q", i, ev.Label)
		}
	}
	if events[1].Active != 1 || events[2].Active != 0 {
		t.Errorf("active counts = %d,%d want 1,0", events[1].Active, events[2].Active)
	}
}

func TestTracker_UnbalancedCallsIgnored(t *testing.T) {
	tr := NewTracker()
	a := endpoint{"a"}

	count := 0
	tr.Listen(func(Event) { count++ })

	tr.End(a) // never begun
	tr.Begin(a)
	tr.Begin(a) // duplicate
	tr.End(a)
	tr.End(a) // already ended

	if count != 2 {
		t.Errorf("listener called %d times, want 2", count)
	}
}

func TestTracker_DistinctEndpoints(t *testing.T) {
	tr := NewTracker()
	tr.Begin(endpoint{"from"})
	tr.Begin(endpoint{"to"})
	if tr.Active() != 2 {
		t.Errorf("Active() = %d, want 2", tr.Active())
	}
}

func TestTracker_Unlisten(t *testing.T) {
	tr := NewTracker()
	count := 0
	id := tr.Listen(func(Event) { count++ })
	tr.Begin(endpoint{"a"})
	tr.Unlisten(id)
	tr.Unlisten(999) // unknown ids are ignored
	tr.End(endpoint{"a"})
	if count != 1 {
		t.Errorf("listener called %d times, want 1", count)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := endpoint{strings.Repeat("x", i+1)}
			tr.Prep(e, "label")
			tr.Begin(e)
			tr.End(e)
		}(i)
	}
	wg.Wait()
	if tr.Active() != 0 {
		t.Errorf("Active() = %d, want 0", tr.Active())
	}
}

func TestLogListener(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tr := NewTracker()
	tr.Listen(LogListener(logger))
	tr.Prep(endpoint{"a"}, "Importing data")
	tr.Begin(endpoint{"a"})
	tr.End(endpoint{"a"})

	out := buf.String()
	if strings.Count(out, "Importing data") != 2 {
		t.Errorf("expected begin and end lines, got:\n%s", out)
	}
	if !strings.Contains(out, "progress=begin") || !strings.Contains(out, "progress=end") {
		t.Errorf("missing progress attributes:\n%s", out)
	}
}
