// Package registry keeps the live sessions served over HTTP and drives their
// exam timers.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/casesim/internal/model"
	"github.com/pavelanni/casesim/internal/session"
)

// Entry is one live session.
type Entry struct {
	ID        string
	StartedAt time.Time

	mu       sync.Mutex
	ctrl     *session.Controller
	lastTick time.Time
	onDone   func(*Entry)
}

// Do runs fn with exclusive access to the session's controller. If the session
// is completed afterwards, the registry's completion hook runs.
func (e *Entry) Do(fn func(*session.Controller)) {
	e.do(func(c *session.Controller) bool {
		fn(c)
		return true
	})
}

// View runs fn with exclusive access to the controller. fn must not mutate the
// session.
func (e *Entry) View(fn func(*session.Controller)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.ctrl)
}

// do runs fn under the lock; fn reports whether it changed the session.
func (e *Entry) do(fn func(*session.Controller) bool) {
	if e.apply(fn) {
		e.onDone(e)
	}
}

func (e *Entry) apply(fn func(*session.Controller) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := fn(e.ctrl)
	return changed && e.onDone != nil && e.ctrl.Completed()
}

// tick advances the controller by the whole seconds elapsed since the last tick.
func (e *Entry) tick(now time.Time) {
	e.do(func(c *session.Controller) bool {
		if c.TimeLimit() == nil || c.Expired() {
			e.lastTick = now
			return false
		}
		secs := int(now.Sub(e.lastTick) / time.Second)
		if secs <= 0 {
			return false
		}
		e.lastTick = e.lastTick.Add(time.Duration(secs) * time.Second)
		if !c.Tick(secs) {
			return false
		}
		slog.Info("session time expired", "session_id", e.ID, "case_id", c.Case().ID)
		return true
	})
}

// Registry is a concurrency-safe set of live sessions.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	now        func() time.Time
	onComplete func(*Entry)
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// OnComplete registers fn to run after every mutation that leaves a session on
// its terminal index, whether it got there by answering every step or by
// expiring. fn runs without the entry's lock held.
func OnComplete(fn func(*Entry)) Option {
	return func(r *Registry) { r.onComplete = fn }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start opens a new session over c.
func (r *Registry) Start(c model.Case) *Entry {
	now := r.now()
	e := &Entry{
		ID:        uuid.NewString(),
		StartedAt: now,
		ctrl:      session.New(c),
		lastTick:  now,
		onDone:    r.onComplete,
	}
	r.mu.Lock()
	r.entries[e.ID] = e
	r.mu.Unlock()
	slog.Info("session started", "session_id", e.ID, "case_id", c.ID)
	return e
}

// Get returns the live session with the given id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Remove forgets a session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Touch brings one session's clock up to date, so that a request never sees a
// session that should already have expired.
func (r *Registry) Touch(e *Entry) {
	e.tick(r.now())
}

// Sweep brings every live session's clock up to date.
func (r *Registry) Sweep() {
	r.mu.RLock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	now := r.now()
	for _, e := range entries {
		e.tick(now)
	}
}

// Run sweeps every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
