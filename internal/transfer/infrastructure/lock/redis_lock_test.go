package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
	"github.com/wyfcoding/fundstransfer/internal/transfer/infrastructure/lock"
)

// fakeLockStore 模拟 SetNX 与比较删除脚本语义的内存后端
type fakeLockStore struct {
	mu       sync.Mutex
	values   map[string]string
	expires  map[string]time.Time
	setNXErr error
	evalErr  error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

func (s *fakeLockStore) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if s.setNXErr != nil {
		return false, s.setNXErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok && s.expires[key].After(time.Now()) {
		return false, nil
	}
	s.values[key] = value.(string)
	s.expires[key] = time.Now().Add(expiration)
	return true, nil
}

func (s *fakeLockStore) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	if s.evalErr != nil {
		return nil, s.evalErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := keys[0]
	if s.values[key] == args[0].(string) {
		delete(s.values, key)
		delete(s.expires, key)
		return int64(1), nil
	}
	return int64(0), nil
}

func (s *fakeLockStore) holder(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func TestRedisLockManagerAcquire(t *testing.T) {
	t.Run("acquires and releases via the store", func(t *testing.T) {
		store := newFakeLockStore()
		manager := lock.NewRedisLockManager(store, 50*time.Millisecond)

		held, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.holder("transfer:lock:1:2") == "" {
			t.Fatal("expected token stored under lock key")
		}

		if err := held.Release(context.Background()); err != nil {
			t.Fatalf("unexpected release error: %v", err)
		}
		if store.holder("transfer:lock:1:2") != "" {
			t.Error("expected lock key removed after release")
		}
	})

	t.Run("held key blocks until wait expires", func(t *testing.T) {
		store := newFakeLockStore()
		manager := lock.NewRedisLockManager(store, 30*time.Millisecond)

		held, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer held.Release(context.Background())

		_, err = manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if !errors.Is(err, domain.ErrLockUnavailable) {
			t.Fatalf("expected ErrLockUnavailable, got %v", err)
		}
	})

	t.Run("expired lease can be reacquired", func(t *testing.T) {
		store := newFakeLockStore()
		manager := lock.NewRedisLockManager(store, 300*time.Millisecond)

		if _, err := manager.Acquire(context.Background(), "transfer:lock:1:2", 10*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		held, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("expected acquire after lease expiry, got %v", err)
		}
		held.Release(context.Background())
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		store := newFakeLockStore()
		store.setNXErr = errors.New("redis unreachable")
		manager := lock.NewRedisLockManager(store, 30*time.Millisecond)

		_, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err == nil || errors.Is(err, domain.ErrLockUnavailable) {
			t.Fatalf("expected store error to surface as-is, got %v", err)
		}
	})
}

func TestRedisLockRelease(t *testing.T) {
	t.Run("stale token does not free successor", func(t *testing.T) {
		store := newFakeLockStore()
		manager := lock.NewRedisLockManager(store, 300*time.Millisecond)

		stale, err := manager.Acquire(context.Background(), "transfer:lock:1:2", 10*time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		current, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer current.Release(context.Background())

		if err := stale.Release(context.Background()); err != nil {
			t.Fatalf("stale release must be a no-op, got %v", err)
		}
		if store.holder("transfer:lock:1:2") == "" {
			t.Error("expected successor token to survive stale release")
		}
	})

	t.Run("release failure surfaces", func(t *testing.T) {
		store := newFakeLockStore()
		manager := lock.NewRedisLockManager(store, 30*time.Millisecond)

		held, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		store.evalErr = errors.New("redis unreachable")
		if err := held.Release(context.Background()); err == nil {
			t.Fatal("expected release error to surface")
		}
	})
}
