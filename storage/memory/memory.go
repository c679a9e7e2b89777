// Package memory provides an in-process storage.Storage backed by a bounded
// LRU (github.com/hashicorp/golang-lru/v2) with TTL support.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/storage"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSweepInterval is how often expired items are purged in the background.
const DefaultSweepInterval = 5 * time.Minute

// Storage implements the storage.Storage interface using in-memory storage
type Storage struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *storage.StorageItem]

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates an in-memory storage holding at most maxItems entries. The
// least recently used entry is evicted once the bound is reached.
func New(maxItems int) (*Storage, error) {
	cache, err := lru.New[string, *storage.StorageItem](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	s := &Storage{
		cache: cache,
		stop:  make(chan struct{}),
	}

	go s.sweep(DefaultSweepInterval)

	return s, nil
}

// Get retrieves data for a specific key within the given namespace
func (s *Storage) Get(ctx context.Context, key string, opts ...storage.Option) (*storage.StorageItem, error) {
	options := storage.Apply(opts...)
	storageKey := buildKey(options.Namespace, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cache.Get(storageKey)
	if !ok {
		return nil, nil
	}
	if item.IsExpired() {
		s.cache.Remove(storageKey)
		return nil, nil
	}

	return item, nil
}

// Set stores data for a specific key within the given namespace
func (s *Storage) Set(ctx context.Context, key string, data []byte, opts ...storage.Option) error {
	if key == "" {
		return storage.ErrInvalidOptions
	}
	options := storage.Apply(opts...)
	storageKey := buildKey(options.Namespace, key)

	now := time.Now()
	item := &storage.StorageItem{
		Data:      make([]byte, len(data)),
		CreatedAt: now,
	}
	copy(item.Data, data)

	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		item.ExpiresAt = &expiresAt
	}

	s.mu.Lock()
	s.cache.Add(storageKey, item)
	s.mu.Unlock()

	return nil
}

// Delete removes data within the given namespace
func (s *Storage) Delete(ctx context.Context, opts ...storage.Option) error {
	options := storage.Apply(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if options.Key != nil {
		s.cache.Remove(buildKey(options.Namespace, *options.Key))
		return nil
	}

	// LRU offers no prefix iteration; namespace deletes walk every key.
	prefix := namespacePrefix(options.Namespace)
	for _, k := range s.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Remove(k)
		}
	}

	return nil
}

// Close stops the background sweeper and drops all entries.
func (s *Storage) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	s.cache.Purge()
	s.mu.Unlock()
	return nil
}

// Len reports the number of entries currently held, expired or not.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

func buildKey(namespace storage.Namespace, key string) string {
	return namespacePrefix(namespace) + "key:" + key
}

func namespacePrefix(namespace storage.Namespace) string {
	switch ns := namespace.(type) {
	case storage.SessionNamespace:
		return fmt.Sprintf("session:%s:", ns.SessionID)
	case storage.CacheNamespace:
		return fmt.Sprintf("cache:%s:", ns.Bucket)
	default:
		return "global:"
	}
}

func (s *Storage) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.purgeExpired()
		}
	}
}

func (s *Storage) purgeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, key := range s.cache.Keys() {
		if item, ok := s.cache.Peek(key); ok {
			if item.ExpiresAt != nil && now.After(*item.ExpiresAt) {
				s.cache.Remove(key)
			}
		}
	}
}

var _ storage.Storage = (*Storage)(nil)
