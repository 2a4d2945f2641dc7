// Package pipeline provides the high-level orchestration of resume tailoring: job description
// analysis, the optional strategy pass, the tailor and regenerate runs, post-processing and
// reconciliation of exclusion state.
package pipeline

import (
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/storage"
)

// State is a step of the tailoring state machine.
type State string

// Tailoring states, in the order a run passes through them.
const (
	StateIdle           State = "idle"
	StateAnalyzingJD    State = "analyzing_jd"
	StateStrategizing   State = "strategizing"
	StateTailoring      State = "tailoring"
	StatePostProcessing State = "post_processing"
	StateReconciling    State = "reconciling"
	StateDone           State = "done"
	StateError          State = "error"
)

// ProgressEvent represents a progress update during a run.
type ProgressEvent struct {
	State    State  `json:"state"`
	Action   Action `json:"action"`
	Message  string `json:"message"`
	ActionID string `json:"action_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when run progress occurs.
type ProgressCallback func(event ProgressEvent)

// Orchestrator runs tailoring actions against a workspace store.
type Orchestrator struct {
	gen      llm.Generator
	session  *storage.Session
	history  *storage.History
	guard    *Guard
	flight   singleflight.Group
	logger   *slog.Logger
	actionID func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithHistory replaces the version history, e.g. to inject a clock.
func WithHistory(h *storage.History) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithActionIDs replaces the action id generator.
func WithActionIDs(next func() string) Option {
	return func(o *Orchestrator) { o.actionID = next }
}

// WithGuard shares an in-flight guard between orchestrators.
func WithGuard(g *Guard) Option {
	return func(o *Orchestrator) { o.guard = g }
}

// New returns an orchestrator that calls gen and persists into store.
func New(gen llm.Generator, store storage.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:      gen,
		session:  storage.NewSession(store),
		history:  storage.NewHistory(store),
		guard:    NewGuard(),
		logger:   slog.Default(),
		actionID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Session exposes the typed view of the workspace store.
func (o *Orchestrator) Session() *storage.Session {
	return o.session
}

// History exposes the version history.
func (o *Orchestrator) History() *storage.History {
	return o.history
}

// Guard exposes the in-flight guard.
func (o *Orchestrator) Guard() *Guard {
	return o.guard
}

// emitProgress calls the progress callback if configured
func emitProgress(cb ProgressCallback, action Action, actionID string, state State, message string, content any) {
	if cb != nil {
		cb(ProgressEvent{
			State:    state,
			Action:   action,
			Message:  message,
			ActionID: actionID,
			Content:  content,
		})
	}
}
