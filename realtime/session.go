package realtime

import (
	"sync"

	"github.com/somo-lms/somo/core/user"
)

// SessionRegistry maps an active connection to its authenticated identity.
// Entries are added on a successful connect and removed on disconnect; no
// anonymous entry ever exists.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]user.User // connID -> identity cached at connect time
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]user.User)}
}

func (r *SessionRegistry) Add(connID string, usr user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = usr
}

func (r *SessionRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connID)
}

// Get returns the identity bound to connID, if any.
func (r *SessionRegistry) Get(connID string) (user.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	usr, ok := r.sessions[connID]
	return usr, ok
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
