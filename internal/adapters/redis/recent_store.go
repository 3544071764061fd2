// Package redis stores per-client recent searches in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/samirrijal/campusride/internal/core/domain"
)

const recentKeyPrefix = "campusride:recent:"

// Connect returns a client for addr, or nil when addr is empty.
func Connect(addr, password string, db int) *goredis.Client {
	if addr == "" {
		return nil
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RecentStore implements ports.RecentSearchRepository. Each client's list is
// one JSON value whose expiry is refreshed on every save.
type RecentStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRecentStore creates a store whose lists expire ttl after their last save.
func NewRecentStore(client *goredis.Client, ttl time.Duration) *RecentStore {
	return &RecentStore{client: client, ttl: ttl}
}

// Load returns the stored list, or an empty one when the client has none.
func (s *RecentStore) Load(ctx context.Context, clientID string) ([]domain.RecentSearch, error) {
	data, err := s.client.Get(ctx, recentKeyPrefix+clientID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return []domain.RecentSearch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var list []domain.RecentSearch
	if err := json.Unmarshal(data, &list); err != nil {
		// unreadable entries are treated as empty and overwritten on the next save
		return []domain.RecentSearch{}, nil
	}
	return list, nil
}

// Save replaces the client's list.
func (s *RecentStore) Save(ctx context.Context, clientID string, searches []domain.RecentSearch) error {
	data, err := json.Marshal(searches)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, recentKeyPrefix+clientID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
