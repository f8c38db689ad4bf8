package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry is the in-memory map of known applications, backed by a
// RegistryStore. The orchestrator is the only concurrent mutator;
// running two orchestrators against one Registry is unsupported.
type Registry struct {
	entries map[string]*ApplicationEntry
	mu      sync.RWMutex
	store   RegistryStore
	logger  *zap.Logger
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(store RegistryStore, logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*ApplicationEntry),
		store:   store,
		logger:  logger,
	}
}

// Load replaces the in-memory map with the persisted one.
func (r *Registry) Load(ctx context.Context) error {
	entries, err := r.store.LoadRegistry(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*ApplicationEntry, len(entries))
	for key, entry := range entries {
		r.entries[key] = entry.Clone()
	}
	r.logger.Debug("Registry loaded", zap.Int("entries", len(entries)))
	return nil
}

// Flush persists the current map through the store.
func (r *Registry) Flush(ctx context.Context) error {
	return r.store.SaveRegistry(ctx, r.Snapshot())
}

// Upsert creates the entry for key on first sight, or counts one more
// matching email on a repeat. It returns true when the entry was
// created by this call.
func (r *Registry) Upsert(key string, rec *JobRecord, ts time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[key]; ok {
		entry.EmailCount++
		entry.LastUpdated = time.Now()
		r.logger.Debug("Matched existing application",
			zap.String("key", key),
			zap.Int("email_count", entry.EmailCount))
		return false
	}

	r.entries[key] = &ApplicationEntry{
		Key:           key,
		CompanyName:   rec.CompanyName,
		Title:         rec.Title,
		FirstSeen:     ts,
		StatusHistory: []ApplicationStatus{StatusApplied},
		CurrentStatus: StatusApplied,
		EmailCount:    1,
		LastUpdated:   time.Now(),
	}
	r.logger.Info("New application detected",
		zap.String("key", key),
		zap.String("company", rec.CompanyName),
		zap.String("title", rec.Title))
	return true
}

// AppendStatus records a status transition for key. A missing key is a
// soft no-op reported as ErrKeyMissing. A determination that matches
// the current status is not a transition and leaves the history alone.
func (r *Registry) AppendStatus(key string, status ApplicationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		return ErrKeyMissing
	}
	if entry.CurrentStatus == status {
		entry.LastUpdated = time.Now()
		return nil
	}
	entry.StatusHistory = append(entry.StatusHistory, status)
	entry.CurrentStatus = status
	entry.LastUpdated = time.Now()
	return nil
}

// Get returns a copy of the entry for key, if present.
func (r *Registry) Get(key string) (*ApplicationEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Snapshot returns a deep copy of the full map.
func (r *Registry) Snapshot() map[string]*ApplicationEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*ApplicationEntry, len(r.entries))
	for key, entry := range r.entries {
		out[key] = entry.Clone()
	}
	return out
}

// Len returns the number of known applications.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
