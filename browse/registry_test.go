package browse

import (
	"testing"
	"time"

	"github.com/indieinfra/clipvault/logging"
)

func TestRegistry_AddAndGet(t *testing.T) {
	r := NewRegistry(logging.Discard())
	s, _, _ := newTestSession(t, 3, 10)

	r.Add(s)

	if got := r.Get(s.ID()); got != s {
		t.Fatalf("expected session back from registry")
	}

	if got := r.Get("nope"); got != nil {
		t.Fatalf("expected nil for unknown id, got %v", got)
	}
}

func TestRegistry_ReapClosesIdleAndDropsClosed(t *testing.T) {
	r := NewRegistry(logging.Discard())

	idle, _, _ := newTestSession(t, 3, 10)
	fresh, _, _ := newTestSession(t, 3, 10)
	closed, _, _ := newTestSession(t, 3, 10)
	closed.Close()

	r.Add(idle)
	r.Add(fresh)
	r.Add(closed)

	now := time.Now()
	idle.lastActive = now.Add(-time.Hour)
	r.now = func() time.Time { return now }

	removed := r.Reap()
	if removed != 2 {
		t.Fatalf("expected 2 sessions reaped, got %d", removed)
	}

	if !idle.Closed() {
		t.Fatalf("idle session should have been closed")
	}

	if r.Get(idle.ID()) != nil || r.Get(closed.ID()) != nil {
		t.Fatalf("reaped sessions must leave the registry")
	}

	if r.Get(fresh.ID()) != fresh {
		t.Fatalf("fresh session must survive the reap")
	}
}
