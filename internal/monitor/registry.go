package monitor

import (
	"sort"
	"sync"

	"github.com/fleetvis-io/fleetvis/pkg/vda5050"
)

// Registry holds the live sessions keyed by vehicle identity.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	onChange func(*Session)
}

// NewRegistry creates an empty session registry. onChange, when non-nil, is
// handed to every session it creates and fires after each applied fold.
func NewRegistry(onChange func(*Session)) *Registry {
	return &Registry{
		sessions: map[string]*Session{},
		onChange: onChange,
	}
}

// Ensure returns the session for id, creating it when absent. The second
// return reports whether a new session was created. Ensuring an existing
// vehicle never resets its state.
func (r *Registry) Ensure(id vda5050.AgvId) (*Session, bool) {
	key := id.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[key]; ok {
		return sess, false
	}

	sess := newSession(id, r.onChange)
	r.sessions[key] = sess
	return sess, true
}

// Get looks up the session for id.
func (r *Registry) Get(id vda5050.AgvId) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id.Key()]
	return sess, ok
}

// Remove drops the session for id and reports whether one existed. The
// broker subscriptions are shared by all vehicles and stay untouched; a
// removed vehicle that keeps publishing simply gets a fresh session on its
// next connection message.
func (r *Registry) Remove(id vda5050.AgvId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.Key()
	if _, ok := r.sessions[key]; !ok {
		return false
	}
	delete(r.sessions, key)
	return true
}

// List returns all sessions ordered by vehicle key.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.sessions))
	for key := range r.sessions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]*Session, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.sessions[key])
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
