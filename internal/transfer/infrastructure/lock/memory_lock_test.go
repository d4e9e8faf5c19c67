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

func TestMemoryLockManagerAcquire(t *testing.T) {
	t.Run("acquires free lock", func(t *testing.T) {
		manager := lock.NewMemoryLockManager(50 * time.Millisecond)

		held, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := held.Release(context.Background()); err != nil {
			t.Fatalf("unexpected release error: %v", err)
		}
	})

	t.Run("held lock blocks until wait expires", func(t *testing.T) {
		manager := lock.NewMemoryLockManager(30 * time.Millisecond)

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

	t.Run("disjoint keys do not contend", func(t *testing.T) {
		manager := lock.NewMemoryLockManager(30 * time.Millisecond)

		first, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer first.Release(context.Background())

		second, err := manager.Acquire(context.Background(), "transfer:lock:3:4", time.Minute)
		if err != nil {
			t.Fatalf("expected disjoint key to acquire, got %v", err)
		}
		defer second.Release(context.Background())
	})

	t.Run("release unblocks waiting acquirer", func(t *testing.T) {
		manager := lock.NewMemoryLockManager(time.Second)

		held, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(20 * time.Millisecond)
			held.Release(context.Background())
		}()

		second, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("expected acquire after release, got %v", err)
		}
		second.Release(context.Background())
		wg.Wait()
	})

	t.Run("expired lease can be reacquired", func(t *testing.T) {
		manager := lock.NewMemoryLockManager(200 * time.Millisecond)

		if _, err := manager.Acquire(context.Background(), "transfer:lock:1:2", 10*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		held, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("expected acquire after lease expiry, got %v", err)
		}
		held.Release(context.Background())
	})

	t.Run("cancelled context aborts wait", func(t *testing.T) {
		manager := lock.NewMemoryLockManager(time.Minute)

		held, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer held.Release(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err = manager.Acquire(ctx, "transfer:lock:1:2", time.Minute)
		if !errors.Is(err, domain.ErrLockUnavailable) {
			t.Fatalf("expected ErrLockUnavailable, got %v", err)
		}
	})
}

func TestMemoryLockRelease(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		manager := lock.NewMemoryLockManager(30 * time.Millisecond)

		held, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := held.Release(context.Background()); err != nil {
			t.Fatalf("unexpected release error: %v", err)
		}
		if err := held.Release(context.Background()); err != nil {
			t.Fatalf("second release should be a no-op, got %v", err)
		}
	})

	t.Run("stale holder cannot release successor", func(t *testing.T) {
		manager := lock.NewMemoryLockManager(200 * time.Millisecond)

		stale, err := manager.Acquire(context.Background(), "transfer:lock:1:2", 10*time.Millisecond)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		current, err := manager.Acquire(context.Background(), "transfer:lock:1:2", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer current.Release(context.Background())

		// The expired holder's release must not free the new holder's lock.
		stale.Release(context.Background())

		done := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err := manager.Acquire(ctx, "transfer:lock:1:2", time.Minute)
			done <- err
		}()

		if err := <-done; !errors.Is(err, domain.ErrLockUnavailable) {
			t.Fatalf("expected lock still held after stale release, got %v", err)
		}
	})
}
