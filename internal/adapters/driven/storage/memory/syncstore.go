package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/stratus-sync/internal/core/domain"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore is an in-memory implementation of driven.SyncStateStore.
// It mirrors the warehouse transition semantics and is used by tests and
// dry runs.
type SyncStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.SyncState
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{
		states: make(map[string]domain.SyncState),
	}
}

// Get retrieves sync state for a domain.
func (s *SyncStateStore) Get(_ context.Context, name string) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// All returns every state ordered by domain name.
func (s *SyncStateStore) All(_ context.Context) ([]domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]domain.SyncState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Domain < states[j].Domain })
	return states, nil
}

// GetLastSync returns the high-water mark of the last successful run.
func (s *SyncStateStore) GetLastSync(_ context.Context, name string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[name]
	if !ok || state.LastSyncedAt == nil {
		return nil, nil
	}
	t := *state.LastSyncedAt
	return &t, nil
}

// MarkRunning flips the status, keeping error count and high-water mark.
func (s *SyncStateStore) MarkRunning(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.getOrCreateLocked(name)
	state.Status = domain.StatusRunning
	state.UpdatedAt = time.Now().UTC()
	s.states[name] = state
	return nil
}

// MarkSuccess records the new high-water mark and resets the error count.
func (s *SyncStateStore) MarkSuccess(_ context.Context, name string, at time.Time, cursor string, meta domain.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.getOrCreateLocked(name)
	t := at
	state.LastSyncedAt = &t
	state.LastSyncKey = cursor
	state.Status = domain.StatusSuccess
	state.ErrorCount = 0
	state.ErrorMessage = ""
	state.Metadata = meta
	state.UpdatedAt = time.Now().UTC()
	s.states[name] = state
	return nil
}

// MarkError increments the error count and keeps the high-water mark.
func (s *SyncStateStore) MarkError(_ context.Context, name string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.getOrCreateLocked(name)
	state.Status = domain.StatusError
	state.ErrorCount++
	state.ErrorMessage = message
	state.UpdatedAt = time.Now().UTC()
	s.states[name] = state
	return nil
}

// IsHealthy reports whether the last run succeeded within maxAge.
func (s *SyncStateStore) IsHealthy(_ context.Context, name string, maxAge time.Duration) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[name]
	if !ok {
		return false, nil
	}
	return state.Healthy(time.Now().UTC(), maxAge), nil
}

// CleanupErrors drops error states untouched for longer than horizon.
func (s *SyncStateStore) CleanupErrors(_ context.Context, horizon time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-horizon)
	removed := 0
	for name, state := range s.states {
		if state.Status == domain.StatusError && state.UpdatedAt.Before(cutoff) {
			delete(s.states, name)
			removed++
		}
	}
	return removed, nil
}

func (s *SyncStateStore) getOrCreateLocked(name string) domain.SyncState {
	state, ok := s.states[name]
	if !ok {
		state = domain.SyncState{Domain: name, CreatedAt: time.Now().UTC()}
	}
	return state
}
