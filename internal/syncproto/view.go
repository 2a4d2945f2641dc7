package syncproto

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// LivenessWindow is how long a view stays connected without hearing from anyone.
const LivenessWindow = 30 * time.Second

// Status is the connection state a view shows.
type Status string

// View statuses.
const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// View is the receive-side filter of one view instance. It drops its own messages, drops
// content it has already applied and tracks liveness.
type View struct {
	id     string
	now    func() time.Time
	window time.Duration

	mu          sync.Mutex
	lastContact time.Time
	lastHash    map[string]string
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithClock replaces the clock.
func WithClock(now func() time.Time) ViewOption {
	return func(v *View) { v.now = now }
}

// WithLivenessWindow replaces the 30 second window.
func WithLivenessWindow(d time.Duration) ViewOption {
	return func(v *View) { v.window = d }
}

// NewView creates a view. An empty id gets a random one.
func NewView(id string, opts ...ViewOption) *View {
	if id == "" {
		id = uuid.NewString()
	}
	v := &View{id: id, now: time.Now, window: LivenessWindow, lastHash: map[string]string{}}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ID is the sender id the view stamps on its messages.
func (v *View) ID() string {
	return v.id
}

// Accept reports whether env should be applied. Any message from another sender counts as
// contact. Content whose hash equals the last applied hash of the same kind is dropped.
func (v *View) Accept(env Envelope) bool {
	if env.Sender != "" && env.Sender == v.id {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastContact = v.now()

	if !env.Type.HasContent() {
		return true
	}
	ch := env.Type.channel()
	if env.Hash != "" && v.lastHash[ch] == env.Hash {
		return false
	}
	v.lastHash[ch] = env.Hash
	return true
}

// Applied records content the view produced itself so an echo of it is not re-applied.
func (v *View) Applied(env Envelope) {
	if !env.Type.HasContent() || env.Hash == "" {
		return
	}
	v.mu.Lock()
	v.lastHash[env.Type.channel()] = env.Hash
	v.mu.Unlock()
}

// Touch records contact without a message, e.g. a transport-level pong.
func (v *View) Touch() {
	v.mu.Lock()
	v.lastContact = v.now()
	v.mu.Unlock()
}

// Live reports whether contact was observed within the liveness window.
func (v *View) Live() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.lastContact.IsZero() && v.now().Sub(v.lastContact) <= v.window
}

// Status is Live as a display state.
func (v *View) Status() Status {
	if v.Live() {
		return StatusConnected
	}
	return StatusDisconnected
}

// presenceRetention is how long a silent view is still reported before it is forgotten.
const presenceRetention = 10 * LivenessWindow

// Presence is the hub side of liveness: it remembers when each remote view was last heard from
// and reports the status that view would show.
type Presence struct {
	now    func() time.Time
	window time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewPresence creates an empty tracker. WithClock and WithLivenessWindow apply as for a View.
func NewPresence(opts ...ViewOption) *Presence {
	v := &View{now: time.Now, window: LivenessWindow}
	for _, opt := range opts {
		opt(v)
	}
	return &Presence{now: v.now, window: v.window, lastSeen: map[string]time.Time{}}
}

// Seen records contact from sender. An empty sender is ignored.
func (p *Presence) Seen(sender string) {
	if sender == "" {
		return
	}
	p.mu.Lock()
	p.lastSeen[sender] = p.now()
	p.mu.Unlock()
}

// Statuses returns the status of every view heard from recently, keyed by sender id.
func (p *Presence) Statuses() map[string]Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	out := make(map[string]Status, len(p.lastSeen))
	for sender, at := range p.lastSeen {
		age := now.Sub(at)
		switch {
		case age > presenceRetention:
			delete(p.lastSeen, sender)
		case age <= p.window:
			out[sender] = StatusConnected
		default:
			out[sender] = StatusDisconnected
		}
	}
	return out
}
