// Package store implements the persistence contract for the
// application registry and the outcome history.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/core"
)

// MemoryStore is an in-memory implementation of the RegistryStore
// interface.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*core.ApplicationEntry
	history []*core.ProcessingOutcome
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*core.ApplicationEntry),
		logger:  logger,
	}
}

// LoadRegistry loads every known application entry.
func (s *MemoryStore) LoadRegistry(_ context.Context) (map[string]*core.ApplicationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*core.ApplicationEntry, len(s.entries))
	for key, entry := range s.entries {
		out[key] = entry.Clone()
	}
	return out, nil
}

// SaveRegistry persists the full registry map.
func (s *MemoryStore) SaveRegistry(_ context.Context, entries map[string]*core.ApplicationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*core.ApplicationEntry, len(entries))
	for key, entry := range entries {
		s.entries[key] = entry.Clone()
	}
	return nil
}

// AppendHistory records one processing outcome.
func (s *MemoryStore) AppendHistory(_ context.Context, outcome *core.ProcessingOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *outcome
	s.history = append(s.history, &cp)
	return nil
}

// LoadHistory returns up to limit outcomes, most recent first.
func (s *MemoryStore) LoadHistory(_ context.Context, limit int) ([]*core.ProcessingOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]*core.ProcessingOutcome, 0, limit)
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.history[i]
		out = append(out, &cp)
	}
	return out, nil
}
