package browse

import (
	"context"
	"sync"
	"time"

	"github.com/indieinfra/clipvault/logging"
)

// Registry tracks live sessions and reaps the ones that went idle. Sessions
// are keyed by their id; a closed session stays retrievable until the reaper
// drops it so late interactions get ErrClosed instead of a lookup miss.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	log      logging.Logger
	now      func() time.Time
}

func NewRegistry(log logging.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		log:      log,
		now:      time.Now,
	}
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
}

// Get returns the session with the given id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Reap closes idle sessions and drops closed ones. Returns how many were
// removed.
func (r *Registry) Reap() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.Expired(now) {
			s.Close()
		}

		if s.Closed() {
			delete(r.sessions, id)
			removed++
		}
	}

	return removed
}

// Run reaps on the given interval until the context is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Reap(); n > 0 {
				r.log.Debug(ctx, "reaped idle sessions", "count", n)
			}
		}
	}
}
