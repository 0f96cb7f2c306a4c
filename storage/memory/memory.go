// Package memory provides the in-process implementation of the storage
// interface. Suitable for stdio servers and tests; state does not survive
// the process.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tersePrompts/fastMCP4J-sub002/storage"
)

// Store implements storage.Interface with a mutex-guarded map.
type Store struct {
	mu     sync.RWMutex
	items  map[string]*storage.Item
	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{items: make(map[string]*storage.Item)}
}

func (s *Store) Get(ctx context.Context, key string, opts ...storage.Option) (*storage.Item, error) {
	o := storage.Apply(opts)
	full := buildKey(o.SessionID, key)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrClosed
	}
	item, ok := s.items[full]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if item.IsExpired() {
		s.mu.Lock()
		delete(s.items, full)
		s.mu.Unlock()
		return nil, nil
	}
	return item, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	o := storage.Apply(opts)
	now := time.Now()
	item := &storage.Item{Data: append([]byte(nil), data...), CreatedAt: now}
	if o.TTL != nil {
		exp := now.Add(*o.TTL)
		item.ExpiresAt = &exp
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.items[buildKey(o.SessionID, key)] = item
	return nil
}

func (s *Store) Delete(ctx context.Context, opts ...storage.Option) error {
	o := storage.Apply(opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	if o.Key != nil {
		delete(s.items, buildKey(o.SessionID, *o.Key))
		return nil
	}
	prefix := namespacePrefix(o.SessionID)
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			delete(s.items, k)
		}
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, prefix string, opts ...storage.Option) ([]string, error) {
	o := storage.Apply(opts)
	nsPrefix := namespacePrefix(o.SessionID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	var out []string
	for k, item := range s.items {
		if !strings.HasPrefix(k, nsPrefix) || item.IsExpired() {
			continue
		}
		key := strings.TrimPrefix(k, nsPrefix)
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	return nil
}

func buildKey(sessionID, key string) string {
	return namespacePrefix(sessionID) + key
}

func namespacePrefix(sessionID string) string {
	if sessionID == "" {
		return "global:"
	}
	return "session:" + sessionID + ":"
}
