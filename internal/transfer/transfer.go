// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Seahorse Authors

// Package transfer moves keys between two key sources by exporting from
// one into memory and importing the result into the other. Each transfer
// runs on its own goroutine and reports progress per endpoint.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/seahorse-keys/seahorse/internal/util"
)

// Location says whether a source lives on this machine or elsewhere.
type Location int

const (
	LocationLocal Location = iota
	LocationRemote
)

func (l Location) String() string {
	if l == LocationRemote {
		return "remote"
	}
	return "local"
}

// Source is a key store that can export and import key bundles.
type Source interface {
	Location() Location
	Export(ctx context.Context, keyIDs []string, w io.Writer) error
	Import(ctx context.Context, r io.Reader) ([]string, error)
}

// Progress receives begin/end signals keyed by endpoint.
type Progress interface {
	Prep(endpoint any, label string)
	Begin(endpoint any)
	End(endpoint any)
}

// Role distinguishes the two endpoints of a transfer.
type Role string

const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
)

// Endpoint is the progress key for one side of one operation.
type Endpoint struct {
	Operation string
	Role      Role
}

// Progress labels.
const (
	LabelRetrieving = "Retrieving data"
	LabelExporting  = "Exporting data"
	LabelImporting  = "Importing data"
	LabelSending    = "Sending data"
)

// State of an operation.
type State int

const (
	StatePending State = iota
	StateExporting
	StateImporting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExporting:
		return "exporting"
	case StateImporting:
		return "importing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names the step that failed.
type Stage string

const (
	StageExport Stage = "export"
	StageImport Stage = "import"
)

// StageError wraps the error from a failed stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Option configures an operation.
type Option func(*Operation)

// WithProgress sets the progress sink.
func WithProgress(p Progress) Option {
	return func(op *Operation) { op.progress = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(op *Operation) { op.logger = l }
}

type nopProgress struct{}

func (nopProgress) Prep(any, string) {}
func (nopProgress) Begin(any)        {}
func (nopProgress) End(any)          {}

// Operation is a running or finished transfer.
type Operation struct {
	id       string
	from     Source
	to       Source
	keyIDs   []string
	progress Progress
	logger   *slog.Logger
	done     chan struct{}

	mu       sync.Mutex
	state    State
	err      error
	imported []string
}

// Start begins transferring keyIDs from one source to another and returns
// immediately. With no key ids the operation is already complete and
// neither source is touched.
func Start(ctx context.Context, from, to Source, keyIDs []string, opts ...Option) *Operation {
	op := &Operation{
		id:       uuid.NewString(),
		from:     from,
		to:       to,
		keyIDs:   append([]string(nil), keyIDs...),
		progress: nopProgress{},
		logger:   util.Logger,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(op)
	}

	if len(op.keyIDs) == 0 {
		op.finish(nil)
		return op
	}

	go op.run(ctx)
	return op
}

// Transfer runs a transfer to completion.
func Transfer(ctx context.Context, from, to Source, keyIDs []string, opts ...Option) error {
	return Start(ctx, from, to, keyIDs, opts...).Wait()
}

func (op *Operation) endpoint(role Role) Endpoint {
	return Endpoint{Operation: op.id, Role: role}
}

// begin labels an endpoint and marks it in progress. Labels are attached
// only to endpoints that will see an End, so a failed stage leaves no
// label behind for the endpoint after it.
func (op *Operation) begin(role Role) Endpoint {
	e := op.endpoint(role)
	op.progress.Prep(e, op.label(role))
	op.progress.Begin(e)
	return e
}

func (op *Operation) label(role Role) string {
	if role == RoleSource {
		if op.from.Location() == LocationRemote {
			return LabelRetrieving
		}
		return LabelExporting
	}
	if op.to.Location() == LocationRemote {
		return LabelImporting
	}
	return LabelSending
}

func (op *Operation) run(ctx context.Context) {
	log := op.logger.With("op", op.id)

	if err := ctx.Err(); err != nil {
		op.finish(&StageError{Stage: StageExport, Err: err})
		return
	}

	op.setState(StateExporting)
	log.Debug("exporting keys", "count", len(op.keyIDs), "from", op.from.Location())

	var buf bytes.Buffer
	src := op.begin(RoleSource)
	err := op.from.Export(ctx, op.keyIDs, &buf)
	op.progress.End(src)

	if err != nil {
		op.finish(&StageError{Stage: StageExport, Err: err})
		return
	}
	if err := ctx.Err(); err != nil {
		op.finish(err)
		return
	}

	op.setState(StateImporting)
	dst := op.begin(RoleDestination)

	if buf.Len() == 0 {
		log.Debug("export produced no data, skipping import")
		op.progress.End(dst)
		op.finish(nil)
		return
	}

	log.Debug("importing keys", "bytes", buf.Len(), "to", op.to.Location())
	imported, err := op.to.Import(ctx, bytes.NewReader(buf.Bytes()))
	op.progress.End(dst)

	if err != nil {
		op.finish(&StageError{Stage: StageImport, Err: err})
		return
	}
	if err := ctx.Err(); err != nil {
		op.finish(err)
		return
	}

	op.mu.Lock()
	op.imported = imported
	op.mu.Unlock()
	op.finish(nil)
}

func (op *Operation) setState(s State) {
	op.mu.Lock()
	op.state = s
	op.mu.Unlock()
}

func (op *Operation) finish(err error) {
	op.mu.Lock()
	op.err = err
	if err != nil {
		op.state = StateFailed
	} else {
		op.state = StateDone
	}
	op.mu.Unlock()

	if err != nil {
		op.logger.Debug("transfer failed", "op", op.id, "error", err)
	}
	close(op.done)
}

// ID returns the operation's unique id.
func (op *Operation) ID() string { return op.id }

// Done is closed when the operation finishes.
func (op *Operation) Done() <-chan struct{} { return op.done }

// Wait blocks until the operation finishes and returns its error.
func (op *Operation) Wait() error {
	<-op.done
	return op.Err()
}

// Err returns the terminal error, or nil while running or on success.
func (op *Operation) Err() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.err
}

// State returns the current state.
func (op *Operation) State() State {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// Imported returns the ids reported by the destination after a successful import.
func (op *Operation) Imported() []string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return append([]string(nil), op.imported...)
}
