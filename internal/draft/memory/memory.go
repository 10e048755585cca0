// Package memory is an ephemeral draft store used in tests and when the
// terminal runs without any durable backend.
package memory

import (
	"context"
	"sync"

	"bidacafe/terminal/internal/domain"
	"bidacafe/terminal/internal/draft"
)

type Store struct {
	mu      sync.RWMutex
	entries map[int64]domain.DraftEntry
}

func New() *Store {
	return &Store{entries: make(map[int64]domain.DraftEntry)}
}

func (s *Store) Get(_ context.Context, tableID int64) (domain.DraftEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[tableID]
	return entry, ok
}

func (s *Store) Put(_ context.Context, tableID int64, entry domain.DraftEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !draft.Meaningful(entry) {
		delete(s.entries, tableID)
		return
	}
	s.entries[tableID] = entry
}

func (s *Store) Clear(_ context.Context, tableID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, tableID)
}

func (s *Store) All(_ context.Context) map[int64]domain.DraftEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]domain.DraftEntry, len(s.entries))
	for id, entry := range s.entries {
		out[id] = entry
	}
	return out
}
