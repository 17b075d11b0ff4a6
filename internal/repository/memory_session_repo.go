package repository

import (
	"context"
	"sync"

	"tax-advisor/internal/domain"
)

// MemorySessionRepository guarda sesiones en memoria del proceso. Sin TTL.
type MemorySessionRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{items: make(map[string]domain.Session)}
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *MemorySessionRepository) Put(_ context.Context, session domain.Session, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current int64
	if existing, ok := r.items[session.ID]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return domain.ErrConcurrentUpdate
	}
	r.items[session.ID] = session.Clone()
	return nil
}

// Len devuelve la cantidad de sesiones guardadas.
func (r *MemorySessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
