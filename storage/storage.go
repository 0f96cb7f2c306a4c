// Package storage defines the namespaced key-value interface backing
// session state and the bundled toolsets. Backends exist for process memory
// and Redis.
package storage

import (
	"context"
	"errors"
	"time"
)

// Interface is the storage contract. Keys live in a namespace: session
// scoped when WithSession is supplied, global otherwise.
type Interface interface {
	// Get retrieves the item for key, nil when absent or expired. Errors
	// indicate storage failures only.
	Get(ctx context.Context, key string, opts ...Option) (*Item, error)

	// Set stores data under key.
	Set(ctx context.Context, key string, data []byte, opts ...Option) error

	// Delete removes the key given via WithKey, or the entire namespace
	// when no key is specified.
	Delete(ctx context.Context, opts ...Option) error

	// Keys lists the keys in the namespace, optionally filtered by prefix.
	Keys(ctx context.Context, prefix string, opts ...Option) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Item is one stored value with metadata.
type Item struct {
	Data      []byte
	CreatedAt time.Time
	ExpiresAt *time.Time // nil = no expiration
}

// IsExpired reports whether the item has expired.
func (it *Item) IsExpired() bool {
	return it.ExpiresAt != nil && time.Now().After(*it.ExpiresAt)
}

// Options configures one storage operation.
type Options struct {
	SessionID string         // empty = global namespace
	Key       *string        // for Delete
	TTL       *time.Duration // optional time-to-live
}

// Option configures storage operations.
type Option func(*Options)

// WithSession scopes the operation to one session's namespace.
func WithSession(sessionID string) Option {
	return func(o *Options) { o.SessionID = sessionID }
}

// WithKey selects a specific key for Delete. Without it, Delete removes the
// whole namespace.
func WithKey(key string) Option {
	return func(o *Options) { o.Key = &key }
}

// WithTTL sets a time-to-live for the stored data.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) { o.TTL = &ttl }
}

// Apply folds opts into an Options value.
func Apply(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ErrClosed is returned for operations on a closed backend.
var ErrClosed = errors.New("storage: backend closed")
