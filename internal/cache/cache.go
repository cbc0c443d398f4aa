package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Collection keys used by the loaders.
const (
	KeySessions = "sessions"
	KeyStations = "stations"
)

// envelope wraps a cached collection with the time it was written, so the
// loaders can decide whether a silent background refresh is due.
type envelope struct {
	SavedAt time.Time       `json:"saved_at"`
	Payload json.RawMessage `json:"payload"`
}

// Store caches whole collections in redis as JSON blobs keyed by logical
// collection name. A hit that is older than staleAfter still serves, but
// reports itself stale.
type Store struct {
	client     *redis.Client
	ttl        time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// NewStore returns redis-backed collection cache.
func NewStore(client *redis.Client, ttl, staleAfter time.Duration) *Store {
	return &Store{
		client:     client,
		ttl:        ttl,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (s *Store) key(name string) string {
	return fmt.Sprintf("pos:cache:%s", name)
}

// Set stores a collection with a fresh timestamp.
func (s *Store) Set(ctx context.Context, name string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", name, err)
	}
	data, err := json.Marshal(envelope{SavedAt: s.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("cache: encode envelope %s: %w", name, err)
	}
	return s.client.Set(ctx, s.key(name), data, s.ttl).Err()
}

// Get decodes a cached collection into out. The second return reports
// whether the collection was present at all.
func (s *Store) Get(ctx context.Context, name string, out interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("cache: decode envelope %s: %w", name, err)
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", name, err)
	}
	return true, nil
}

// IsStale reports whether the cached collection is missing or older than the
// staleness threshold.
func (s *Store) IsStale(ctx context.Context, name string) bool {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		return true
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return true
	}
	return s.now().Sub(env.SavedAt) > s.staleAfter
}

// Invalidate drops the cached collection.
func (s *Store) Invalidate(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.key(name)).Err()
}
