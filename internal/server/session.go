package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/csvlens/internal/dataset"
)

const sessionCookie = "csvlens_session"

// Sessions maps browser sessions to their loaded dataset. Datasets are never
// mutated after load, so only the map itself needs the lock.
type Sessions struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]*entry

	// OnEvict, when set, is called with the number of sessions each sweep removed.
	OnEvict func(n int)
}

type entry struct {
	ds   *dataset.Dataset
	seen time.Time
}

// NewSessions returns a registry that forgets sessions idle for longer than ttl.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{ttl: ttl, now: time.Now, items: map[string]*entry{}}
}

// Get returns the dataset for id and refreshes its idle timer.
func (s *Sessions) Get(id string) (*dataset.Dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return nil, false
	}
	e.seen = s.now()
	return e.ds, true
}

// Put replaces the dataset held by id.
func (s *Sessions) Put(id string, ds *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = &entry{ds: ds, seen: s.now()}
}

// Delete drops id; unknown ids are ignored.
func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Len reports how many sessions hold a dataset.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes sessions idle past the TTL and returns how many it removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, e := range s.items {
		if e.seen.Before(cutoff) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// Janitor sweeps every interval until ctx is done.
func (s *Sessions) Janitor(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := s.Sweep(); n > 0 && s.OnEvict != nil {
				s.OnEvict(n)
			}
		}
	}
}

// sessionID returns the caller's session id, issuing a new cookie when the
// request has none or a malformed one.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
