package handlers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/arnavshah/roster-planner-go/pkg/database"
	"github.com/arnavshah/roster-planner-go/pkg/models"
	"github.com/arnavshah/roster-planner-go/pkg/roster"
)

// Persister stores snapshots and solver statistics
type Persister interface {
	Save(ctx context.Context, snap models.Snapshot) error
	RecordRun(ctx context.Context, date string, written, notes int) error
	ListRuns(ctx context.Context, limit int) ([]database.SolverRun, error)
}

// Workspace owns the single current roster state. Every mutation swaps the whole value,
// so readers always see a consistent state.
type Workspace struct {
	mu      sync.Mutex
	state   roster.State
	running bool
	store   Persister
	log     *zap.Logger
}

// NewWorkspace creates a workspace around an initial state. store may be nil, in which
// case nothing is persisted.
func NewWorkspace(initial roster.State, store Persister, log *zap.Logger) *Workspace {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workspace{state: initial, store: store, log: log}
}

// Current returns the state as of now
func (w *Workspace) Current() roster.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Apply runs op against the current state. When op changes the state the result is
// persisted and becomes current; a no-op leaves everything untouched and reports false.
func (w *Workspace) Apply(ctx context.Context, name string, op func(roster.State) roster.State) (roster.State, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := op(w.state)
	if next.Revision() == w.state.Revision() {
		w.log.Debug("roster unchanged", zap.String("op", name))
		return w.state, false, nil
	}
	if err := w.persist(ctx, next); err != nil {
		return w.state, false, err
	}
	w.state = next
	w.log.Debug("roster updated", zap.String("op", name), zap.Uint64("revision", next.Revision()))
	return next, true, nil
}

// Replace installs a freshly loaded state. Its revision continues from the current one.
func (w *Workspace) Replace(ctx context.Context, s roster.State) (roster.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s = s.Succeeding(w.state)
	if err := w.persist(ctx, s); err != nil {
		return w.state, err
	}
	w.state = s
	w.log.Info("roster replaced",
		zap.Int("rows", len(s.Rows)),
		zap.Int("clinicians", len(s.Clinicians)),
		zap.Int("assignments", s.Assignments.Len()),
		zap.Uint64("revision", s.Revision()))
	return s, nil
}

// BeginRun claims the planning slot; at most one automated run may be in flight
func (w *Workspace) BeginRun() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrSolverBusy
	}
	w.running = true
	return nil
}

// EndRun releases the planning slot
func (w *Workspace) EndRun() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// RecordRun stores statistics of a finished run
func (w *Workspace) RecordRun(ctx context.Context, date string, written, notes int) {
	if w.store == nil {
		return
	}
	if err := w.store.RecordRun(ctx, date, written, notes); err != nil {
		w.log.Error("failed to record solver run", zap.Error(err))
	}
}

// Runs lists recent solver statistics
func (w *Workspace) Runs(ctx context.Context, limit int) ([]database.SolverRun, error) {
	if w.store == nil {
		return nil, nil
	}
	return w.store.ListRuns(ctx, limit)
}

func (w *Workspace) persist(ctx context.Context, s roster.State) error {
	if w.store == nil {
		return nil
	}
	if err := w.store.Save(ctx, s.Snapshot()); err != nil {
		w.log.Error("failed to persist roster", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
