package session

import (
	"sync"

	"github.com/ofcored/controller/of"
)

// Store is the process-wide map of attached switches' sessions (spec.md §3
// "Lifecycles": "a switch session is created on SwitchUp and destroyed on
// SwitchDown"). Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[of.SwitchId]*Session
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[of.SwitchId]*Session)}
}

// Add registers s under its switch id, replacing any prior session for the
// same id (a reconnect without an intervening SwitchDown, which a real
// wire codec should prevent but the store does not assume).
func (st *Store) Add(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.Id()] = s
}

// Remove drops the session for sw, if any.
func (st *Store) Remove(sw of.SwitchId) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, sw)
}

// Get returns the session for sw, or nil if none is attached.
func (st *Store) Get(sw of.SwitchId) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[sw]
}

// All returns every currently attached session, used to fan updates out
// across the fleet (spec.md §4.5, §4.6: "For every switch in parallel").
func (st *Store) All() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// Len reports how many switches are currently attached.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
