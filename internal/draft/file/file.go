// Package file persists the draft mapping as one JSON file on local disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"bidacafe/terminal/internal/domain"
	"bidacafe/terminal/internal/draft"
)

type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func New(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger.Named("draft-file")}
}

func (s *Store) Get(_ context.Context, tableID int64) (domain.DraftEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.read()[key(tableID)]
	return entry, ok
}

func (s *Store) Put(_ context.Context, tableID int64, entry domain.DraftEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read()
	if !draft.Meaningful(entry) {
		if _, ok := all[key(tableID)]; !ok {
			return
		}
		delete(all, key(tableID))
		s.write(all)
		return
	}
	all[key(tableID)] = entry
	s.write(all)
}

func (s *Store) Clear(_ context.Context, tableID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read()
	if _, ok := all[key(tableID)]; !ok {
		return
	}
	delete(all, key(tableID))
	s.write(all)
}

func (s *Store) All(_ context.Context) map[int64]domain.DraftEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64]domain.DraftEntry)
	for k, entry := range s.read() {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out[id] = entry
	}
	return out
}

// read loads the whole blob. A missing file is an empty mapping; a corrupt
// one degrades to empty with a log line, never an error to the caller.
func (s *Store) read() map[string]domain.DraftEntry {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cannot read draft state, treating as empty", zap.String("path", s.path), zap.Error(err))
		}
		return map[string]domain.DraftEntry{}
	}

	var all map[string]domain.DraftEntry
	if err := json.Unmarshal(raw, &all); err != nil {
		s.logger.Warn("draft state is corrupt, treating as empty", zap.String("path", s.path), zap.Error(err))
		return map[string]domain.DraftEntry{}
	}
	if all == nil {
		return map[string]domain.DraftEntry{}
	}
	return all
}

func (s *Store) write(all map[string]domain.DraftEntry) {
	payload, err := json.Marshal(all)
	if err != nil {
		s.logger.Warn("cannot encode draft state", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		s.logger.Warn("cannot write draft state", zap.String("path", s.path), zap.Error(err))
	}
}

func key(tableID int64) string {
	return strconv.FormatInt(tableID, 10)
}
