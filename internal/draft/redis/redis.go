// Package redis keeps the draft mapping as one JSON blob under a single
// redis key, so several terminals behind the same counter can share drafts.
// Concurrent writers are last-writer-wins, same as the file backend.
package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bidacafe/terminal/internal/domain"
	"bidacafe/terminal/internal/draft"
)

type Store struct {
	client *redis.Client
	logger *zap.Logger
	mu     sync.Mutex
}

func New(addr string, password string, db int, logger *zap.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client, logger: logger.Named("draft-redis")}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, tableID int64) (domain.DraftEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.read(ctx)[key(tableID)]
	return entry, ok
}

func (s *Store) Put(ctx context.Context, tableID int64, entry domain.DraftEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read(ctx)
	if !draft.Meaningful(entry) {
		if _, ok := all[key(tableID)]; !ok {
			return
		}
		delete(all, key(tableID))
		s.write(ctx, all)
		return
	}
	all[key(tableID)] = entry
	s.write(ctx, all)
}

func (s *Store) Clear(ctx context.Context, tableID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read(ctx)
	if _, ok := all[key(tableID)]; !ok {
		return
	}
	delete(all, key(tableID))
	s.write(ctx, all)
}

func (s *Store) All(ctx context.Context) map[int64]domain.DraftEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64]domain.DraftEntry)
	for k, entry := range s.read(ctx) {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out[id] = entry
	}
	return out
}

func (s *Store) read(ctx context.Context) map[string]domain.DraftEntry {
	raw, err := s.client.Get(ctx, draft.StorageKey).Result()
	if err == redis.Nil {
		return map[string]domain.DraftEntry{}
	}
	if err != nil {
		s.logger.Warn("cannot read draft state, treating as empty", zap.Error(err))
		return map[string]domain.DraftEntry{}
	}

	var all map[string]domain.DraftEntry
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		s.logger.Warn("draft state is corrupt, treating as empty", zap.Error(err))
		return map[string]domain.DraftEntry{}
	}
	if all == nil {
		return map[string]domain.DraftEntry{}
	}
	return all
}

func (s *Store) write(ctx context.Context, all map[string]domain.DraftEntry) {
	payload, err := json.Marshal(all)
	if err != nil {
		s.logger.Warn("cannot encode draft state", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, draft.StorageKey, payload, 0).Err(); err != nil {
		s.logger.Warn("cannot write draft state", zap.Error(err))
	}
}

func key(tableID int64) string {
	return strconv.FormatInt(tableID, 10)
}
