package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/taskflow/internal/ir"
	"github.com/roach88/taskflow/internal/store"
)

// Engine is the workflow core. It is safe for concurrent use; the store
// serializes writes and graphMu orders prerequisite edge insertion.
type Engine struct {
	store    *store.Store
	clock    Clock
	ids      IDGenerator
	notifier Notifier
	logger   *slog.Logger

	// enforcePrerequisites gates in_progress and completed on resolved prerequisites.
	enforcePrerequisites bool

	// graphMu is held across cycle detection and edge insertion so two
	// concurrent insertions cannot jointly close a cycle.
	graphMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithNotifier sets the notification dispatcher. Default: LogNotifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithPrerequisiteGate enables or disables blocking in_progress and completed
// transitions on unresolved prerequisites. Default: enabled.
func WithPrerequisiteGate(enabled bool) Option {
	return func(e *Engine) {
		e.enforcePrerequisites = enabled
	}
}

// New creates an Engine backed by st.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:                st,
		clock:                SystemClock{},
		ids:                  UUIDv7Generator{},
		enforcePrerequisites: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.notifier == nil {
		e.notifier = &LogNotifier{Logger: e.logger}
	}
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Now returns the engine clock's current instant in UTC.
func (e *Engine) Now() time.Time {
	return e.clock.Now().UTC()
}

// Today returns the engine clock's current calendar date.
func (e *Engine) Today() ir.Date {
	return ir.DateOf(e.Now())
}

// taskReader is satisfied by *store.Store and *store.Tx.
type taskReader interface {
	GetTask(ctx context.Context, id string) (*ir.Task, error)
}

// loadTask reads a task visible to actor. Tasks in other organizations are
// reported as not found.
func loadTask(ctx context.Context, r taskReader, actor ir.Actor, id string) (*ir.Task, error) {
	t, err := r.GetTask(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "task", id)
	}
	if t.OrganizationID != actor.OrganizationID {
		return nil, newNotFoundError("task", id)
	}
	return t, nil
}

// checkVersion compares a caller-supplied version against the stored one.
// Zero means the caller did not ask for a check.
func checkVersion(t *ir.Task, expected int64) error {
	if expected != 0 && expected != t.Version {
		return newConflictError(t.ID, expected, t.Version)
	}
	return nil
}

// saveTask writes t guarded by the version it was read at.
func saveTask(ctx context.Context, tx *store.Tx, t *ir.Task) error {
	return mapStoreError(tx.UpdateTask(ctx, t, t.Version), "task", t.ID)
}

// record appends one history entry inside tx.
func (e *Engine) record(ctx context.Context, tx *store.Tx, taskID, actorID string, action ir.Action, description string, at time.Time) error {
	if actorID == "" {
		actorID = ir.SystemMemberID
	}
	_, err := tx.AppendHistory(ctx, ir.HistoryEntry{
		ID:          e.ids.Generate(),
		TaskID:      taskID,
		Actor:       actorID,
		Action:      action,
		Description: description,
		CreatedAt:   at,
	})
	return err
}

func validateActor(actor ir.Actor) error {
	if actor.OrganizationID == "" {
		return newValidationError("organization_id", "actor organization is required")
	}
	if actor.MemberID == "" {
		return newValidationError("member_id", "actor member is required")
	}
	return nil
}
