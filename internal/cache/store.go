package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Load(_ context.Context, resource string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[resource]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) Save(_ context.Context, resource string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[resource] = entry
	return nil
}

const defaultKeyPrefix = "freelance-advisor:cache:"

// RedisStore shares entries between agent replicas. Keys expire after the
// configured retention so stale data can still be served for a while.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, retention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, retention: retention}
}

// NewRedisClient parses url and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func (s *RedisStore) key(resource string) string {
	return s.prefix + resource
}

func (s *RedisStore) Load(ctx context.Context, resource string) (*Entry, error) {
	raw, err := s.client.Get(ctx, s.key(resource)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", resource, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var e Entry
	if err := dec.Decode(&e); err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", resource, err)
	}
	return &e, nil
}

func (s *RedisStore) Save(ctx context.Context, resource string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode %s: %w", resource, err)
	}
	if err := s.client.Set(ctx, s.key(resource), raw, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", resource, err)
	}
	return nil
}
