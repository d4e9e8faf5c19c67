package redis_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
	transferredis "github.com/wyfcoding/fundstransfer/internal/transfer/infrastructure/persistence/redis"
)

// fakeCacheStore JSON 读写语义的内存后端
type fakeCacheStore struct {
	entries map[string][]byte
	getErr  error
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: make(map[string][]byte)}
}

func (s *fakeCacheStore) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.getErr != nil {
		return false, s.getErr
	}
	data, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *fakeCacheStore) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = data
	return nil
}

func (s *fakeCacheStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func TestAccountCache(t *testing.T) {
	t.Run("miss returns nil without error", func(t *testing.T) {
		cache := transferredis.NewAccountCache(newFakeCacheStore())

		account, err := cache.Get(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if account != nil {
			t.Errorf("expected nil on miss, got %+v", account)
		}
	})

	t.Run("set then get round-trips the account", func(t *testing.T) {
		store := newFakeCacheStore()
		cache := transferredis.NewAccountCache(store)

		account := domain.NewAccount("alice", "USD", decimal.RequireFromString("250.50"))
		account.ID = 7
		if err := cache.Set(context.Background(), account); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := store.entries["account:7"]; !ok {
			t.Fatal("expected entry under account:7")
		}

		got, err := cache.Get(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || !got.Balance.Equal(account.Balance) || got.Currency != "USD" {
			t.Errorf("unexpected cached account: %+v", got)
		}
	})

	t.Run("nil account set is a no-op", func(t *testing.T) {
		store := newFakeCacheStore()
		cache := transferredis.NewAccountCache(store)

		if err := cache.Set(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.entries) != 0 {
			t.Error("expected no entries written")
		}
	})

	t.Run("invalidate removes the entry", func(t *testing.T) {
		store := newFakeCacheStore()
		cache := transferredis.NewAccountCache(store)

		account := domain.NewAccount("alice", "USD", decimal.NewFromInt(10))
		account.ID = 7
		if err := cache.Set(context.Background(), account); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := cache.Invalidate(context.Background(), 7); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := cache.Get(context.Background(), 7)
		if err != nil || got != nil {
			t.Errorf("expected miss after invalidation, got %+v, %v", got, err)
		}
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		store := newFakeCacheStore()
		store.getErr = errors.New("redis unreachable")
		cache := transferredis.NewAccountCache(store)

		if _, err := cache.Get(context.Background(), 1); err == nil {
			t.Fatal("expected store error to surface")
		}
	})
}
