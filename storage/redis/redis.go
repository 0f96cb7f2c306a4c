// Package redis provides a Redis-backed implementation of the storage
// interface, for servers whose session state must survive restarts or be
// shared across nodes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tersePrompts/fastMCP4J-sub002/storage"
)

// Config configures the Redis store.
type Config struct {
	// Client is the Redis client instance. Required.
	Client *redis.Client

	// KeyPrefix prefixes all keys. Default "fastmcp:storage:".
	KeyPrefix string
}

// Store implements storage.Interface on Redis.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// storedItem is the JSON document written to Redis.
type storedItem struct {
	Data      []byte     `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New creates a Redis-backed store.
func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "fastmcp:storage:"
	}
	return &Store{client: cfg.Client, keyPrefix: cfg.KeyPrefix}, nil
}

func (s *Store) Get(ctx context.Context, key string, opts ...storage.Option) (*storage.Item, error) {
	o := storage.Apply(opts)
	raw, err := s.client.Get(ctx, s.buildKey(o.SessionID, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var doc storedItem
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("redis get: decode stored item: %w", err)
	}
	item := &storage.Item{Data: doc.Data, CreatedAt: doc.CreatedAt, ExpiresAt: doc.ExpiresAt}
	if item.IsExpired() {
		// Redis TTL should have evicted it already; treat as absent.
		return nil, nil
	}
	return item, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	o := storage.Apply(opts)
	now := time.Now()
	doc := storedItem{Data: data, CreatedAt: now}
	var ttl time.Duration
	if o.TTL != nil {
		exp := now.Add(*o.TTL)
		doc.ExpiresAt = &exp
		ttl = *o.TTL
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redis set: encode stored item: %w", err)
	}
	if err := s.client.Set(ctx, s.buildKey(o.SessionID, key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, opts ...storage.Option) error {
	o := storage.Apply(opts)
	if o.Key != nil {
		if err := s.client.Del(ctx, s.buildKey(o.SessionID, *o.Key)).Err(); err != nil {
			return fmt.Errorf("redis delete: %w", err)
		}
		return nil
	}
	return s.deleteByPattern(ctx, s.namespacePrefix(o.SessionID)+"*")
}

func (s *Store) Keys(ctx context.Context, prefix string, opts ...storage.Option) ([]string, error) {
	o := storage.Apply(opts)
	nsPrefix := s.namespacePrefix(o.SessionID)
	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, nsPrefix+prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis keys: %w", err)
		}
		for _, k := range keys {
			out = append(out, k[len(nsPrefix):])
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis delete namespace: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete namespace: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *Store) buildKey(sessionID, key string) string {
	return s.namespacePrefix(sessionID) + key
}

func (s *Store) namespacePrefix(sessionID string) string {
	if sessionID == "" {
		return s.keyPrefix + "global:"
	}
	return s.keyPrefix + "session:" + sessionID + ":"
}
