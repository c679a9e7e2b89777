// Package storage defines the key/value backend shared by the session store
// and the upstream response cache. Backends live in the memory and redis
// subpackages.
package storage

import (
	"context"
	"errors"
	"time"
)

// Storage is a namespaced key/value store with optional per-item expiry.
type Storage interface {
	// Get retrieves data for a key within the namespace selected by opts.
	// It returns a nil item and a nil error if the key is absent or expired.
	// Errors are reserved for backend failures.
	Get(ctx context.Context, key string, opts ...Option) (*StorageItem, error)

	// Set stores data for a key within the namespace selected by opts.
	Set(ctx context.Context, key string, data []byte, opts ...Option) error

	// Delete removes a single key when WithKey is given, otherwise every key
	// of the selected namespace.
	Delete(ctx context.Context, opts ...Option) error

	// Close releases backend resources.
	Close() error
}

// StorageItem represents a stored piece of data with metadata
type StorageItem struct {
	Data      []byte     // The stored data
	CreatedAt time.Time  // When the item was created
	ExpiresAt *time.Time // When the item expires (nil = no expiration)
}

// IsExpired checks if the item has expired
func (si *StorageItem) IsExpired() bool {
	return si.ExpiresAt != nil && time.Now().After(*si.ExpiresAt)
}

// Option configures storage operations
type Option func(*Options)

// Options contains configuration for storage operations
type Options struct {
	Namespace Namespace      // nil selects the global namespace
	Key       *string        // Delete target; nil deletes the whole namespace
	TTL       *time.Duration // Optional time-to-live for Set
}

// Apply folds opts into a fresh Options value.
func Apply(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Namespace partitions the key space. Only the types declared in this
// package implement it.
type Namespace interface {
	namespace()
}

// SessionNamespace holds state owned by one MCP session.
type SessionNamespace struct {
	SessionID string
}

func (SessionNamespace) namespace() {}

// CacheNamespace holds cached upstream payloads for one bucket (for example
// the operation name).
type CacheNamespace struct {
	Bucket string
}

func (CacheNamespace) namespace() {}

// WithSession selects the namespace of a single session.
func WithSession(sessionID string) Option {
	return func(opts *Options) {
		opts.Namespace = SessionNamespace{SessionID: sessionID}
	}
}

// WithCache selects a cache bucket namespace.
func WithCache(bucket string) Option {
	return func(opts *Options) {
		opts.Namespace = CacheNamespace{Bucket: bucket}
	}
}

// WithKey specifies a specific key for Delete operations
// If not provided, Delete removes the entire namespace
func WithKey(key string) Option {
	return func(opts *Options) {
		opts.Key = &key
	}
}

// WithTTL sets a time-to-live for the stored data
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = &ttl
	}
}

// ErrInvalidOptions is returned when incompatible options are provided.
var ErrInvalidOptions = errors.New("storage: invalid option combination")
