package hub

import (
	"cmp"
	"slices"
	"sync"

	domainerrors "chat/internal/domain/errors"
	"chat/internal/errors"
)

type registryEntry struct {
	session *Session
	seq     uint64
}

// Registry holds every authenticated live session. Insert, Remove and
// Snapshot exclude each other, so a snapshot never sees a half-applied change.
type Registry struct {
	mu      sync.RWMutex
	seq     uint64
	entries map[string]registryEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Insert adds s. A session id may be present at most once.
func (r *Registry) Insert(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[s.ID()]; exists {
		return errors.Wrapf(domainerrors.ErrDuplicateSession, "session %s", s.ID())
	}
	r.seq++
	r.entries[s.ID()] = registryEntry{session: s, seq: r.seq}

	return nil
}

// Remove deletes the session with id and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; !exists {
		return false
	}
	delete(r.entries, id)

	return true
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[id]

	return exists
}

// Snapshot returns the registered sessions in join order.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	entries := make([]registryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b registryEntry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	sessions := make([]*Session, 0, len(entries))
	for _, entry := range entries {
		sessions = append(sessions, entry.session)
	}

	return sessions
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// UserCount returns the number of distinct users with at least one session.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make(map[int64]struct{}, len(r.entries))
	for _, entry := range r.entries {
		if userID, _, ok := entry.session.Identity(); ok {
			users[userID] = struct{}{}
		}
	}

	return len(users)
}
