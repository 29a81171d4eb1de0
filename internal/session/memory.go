package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is a map-backed repo for dev mode and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryRepository creates an empty in-memory repo.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]Session)}
}

// Create stores a new session.
func (r *MemoryRepository) Create(_ context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return s, nil
}

// Get returns a session by id, or ErrNotFound.
func (r *MemoryRepository) Get(_ context.Context, id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// SetActive updates only the active flag.
func (r *MemoryRepository) SetActive(_ context.Context, id string, active bool) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.IsActive = active
	r.sessions[id] = s
	return s, nil
}
