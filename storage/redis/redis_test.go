package redis

import (
	"context"
	"testing"
	"time"

	"github.com/ayushjaipuriyar/leetcode-mcpserver/storage"
	"github.com/redis/go-redis/v9"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   2,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available: %v", err)
	}

	s, err := New(Config{Client: client, KeyPrefix: "leetcode-mcp-test:"})
	if err != nil {
		t.Fatalf("Failed to create Redis storage: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Delete(ctx)
		_ = s.Delete(ctx, storage.WithCache("problem"))
		_ = s.Delete(ctx, storage.WithSession("s1"))
		_ = s.Close()
	})
	return s
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without client")
	}
}

func TestBuildKey(t *testing.T) {
	s := &Storage{keyPrefix: DefaultKeyPrefix}
	cases := map[string]string{
		s.buildKey(nil, "k"): "leetcode-mcp:global:k",
		s.buildKey(storage.SessionNamespace{SessionID: "abc"}, "k"): "leetcode-mcp:session:abc:k",
		s.buildKey(storage.CacheNamespace{Bucket: "tags"}, "k"):     "leetcode-mcp:cache:tags:k",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("buildKey = %q, want %q", got, want)
		}
	}
}

func TestRedisStorage(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := s.Set(ctx, "k", []byte("v"), storage.WithCache("problem")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		item, err := s.Get(ctx, "k", storage.WithCache("problem"))
		if err != nil || item == nil {
			t.Fatalf("Get = %v, %v", item, err)
		}
		if string(item.Data) != "v" {
			t.Fatalf("got %q", item.Data)
		}
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		item, err := s.Get(ctx, "missing")
		if err != nil || item != nil {
			t.Fatalf("expected nil, nil; got %v, %v", item, err)
		}
	})

	t.Run("TTL", func(t *testing.T) {
		if err := s.Set(ctx, "ttl", []byte("v"), storage.WithTTL(100*time.Millisecond)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		time.Sleep(200 * time.Millisecond)
		if item, _ := s.Get(ctx, "ttl"); item != nil {
			t.Fatal("expected item to expire")
		}
	})

	t.Run("DeleteNamespace", func(t *testing.T) {
		_ = s.Set(ctx, "a", []byte("1"), storage.WithSession("s1"))
		_ = s.Set(ctx, "b", []byte("2"), storage.WithSession("s1"))
		if err := s.Delete(ctx, storage.WithSession("s1")); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if item, _ := s.Get(ctx, "a", storage.WithSession("s1")); item != nil {
			t.Fatal("expected namespace to be cleared")
		}
	})
}
