package pipeline

import "sync"

// Action names a user-triggered operation guarded against overlapping runs.
type Action string

// Guarded actions.
const (
	ActionTailor     Action = "tailor"
	ActionRegenerate Action = "regenerate"
	ActionAnalyze    Action = "analyze"
	ActionAsk        Action = "ask"
	ActionImport     Action = "import"
)

// Guard allows at most one in-flight run per action. A second attempt while one is running is
// rejected rather than queued.
type Guard struct {
	mu       sync.Mutex
	inFlight map[Action]bool
}

// NewGuard returns an idle guard.
func NewGuard() *Guard {
	return &Guard{inFlight: map[Action]bool{}}
}

// TryAcquire marks action as running. It returns a release func, or false when the action is
// already running.
func (g *Guard) TryAcquire(a Action) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[a] {
		return nil, false
	}
	g.inFlight[a] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, a)
			g.mu.Unlock()
		})
	}, true
}

// Running reports whether action is in flight.
func (g *Guard) Running(a Action) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[a]
}
