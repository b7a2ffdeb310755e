// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package progress tracks long-running operations by endpoint and fans
// begin/end events out to registered listeners.
package progress

import (
	"log/slog"
	"sync"
	"time"
)

// EventKind identifies what happened to an endpoint.
type EventKind int

const (
	EventPrep EventKind = iota
	EventBegin
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventPrep:
		return "prep"
	case EventBegin:
		return "begin"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners for every state change.
type Event struct {
	Kind     EventKind
	Endpoint any
	Label    string
	Active   int // Endpoints in progress after this event
	At       time.Time
}

// Tracker records progress per endpoint. Endpoints must be comparable.
// Tracker is safe for concurrent use. Listeners are called synchronously,
// outside the tracker lock.
type Tracker struct {
	mu        sync.Mutex
	labels    map[any]string
	active    map[any]bool
	listeners map[int]func(Event)
	nextID    int
	now       func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		labels:    make(map[any]string),
		active:    make(map[any]bool),
		listeners: make(map[int]func(Event)),
		now:       time.Now,
	}
}

// Prep attaches a label to an endpoint before it begins.
func (t *Tracker) Prep(endpoint any, label string) {
	t.mu.Lock()
	t.labels[endpoint] = label
	ev := t.event(EventPrep, endpoint)
	t.mu.Unlock()
	t.emit(ev)
}

// Begin marks the endpoint as in progress. A repeated Begin is ignored.
func (t *Tracker) Begin(endpoint any) {
	t.mu.Lock()
	if t.active[endpoint] {
		t.mu.Unlock()
		return
	}
	t.active[endpoint] = true
	ev := t.event(EventBegin, endpoint)
	t.mu.Unlock()
	t.emit(ev)
}

// End marks the endpoint finished and forgets its label.
// End without a matching Begin is ignored.
func (t *Tracker) End(endpoint any) {
	t.mu.Lock()
	if !t.active[endpoint] {
		t.mu.Unlock()
		return
	}
	delete(t.active, endpoint)
	ev := t.event(EventEnd, endpoint)
	delete(t.labels, endpoint)
	t.mu.Unlock()
	t.emit(ev)
}

// Active returns the number of endpoints currently in progress.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Label returns the label prepped for endpoint.
func (t *Tracker) Label(endpoint any) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.labels[endpoint]
}

// Listen registers fn and returns an id for Unlisten.
func (t *Tracker) Listen(fn func(Event)) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.listeners[t.nextID] = fn
	return t.nextID
}

// Unlisten removes a listener. Unknown ids are ignored.
func (t *Tracker) Unlisten(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.listeners, id)
}

// event must be called with t.mu held.
func (t *Tracker) event(kind EventKind, endpoint any) Event {
	return Event{
		Kind:     kind,
		Endpoint: endpoint,
		Label:    t.labels[endpoint],
		Active:   len(t.active),
		At:       t.now(),
	}
}

func (t *Tracker) emit(ev Event) {
	t.mu.Lock()
	fns := make([]func(Event), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// LogListener returns a listener that logs begin and end events.
func LogListener(logger *slog.Logger) func(Event) {
	return func(ev Event) {
		if ev.Kind == EventPrep {
			return
		}
		logger.Info(ev.Label, "progress", ev.Kind.String(), "active", ev.Active)
	}
}
