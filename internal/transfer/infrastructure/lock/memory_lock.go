package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
)

// MemoryLockManager 进程内互斥 map 锁管理器
// 测试与单实例部署用，语义与 Redis 实现一致：命名锁、租约到期自动失效、幂等释放
type MemoryLockManager struct {
	mu      sync.Mutex
	held    map[string]*memoryEntry
	wait    time.Duration
	counter uint64
}

type memoryEntry struct {
	token    uint64
	expireAt time.Time
}

// NewMemoryLockManager 创建进程内锁管理器
func NewMemoryLockManager(wait time.Duration) *MemoryLockManager {
	return &MemoryLockManager{
		held: make(map[string]*memoryEntry),
		wait: wait,
	}
}

// Acquire 阻塞式获取锁，轮询直至等待上限
func (m *MemoryLockManager) Acquire(ctx context.Context, key string, lease time.Duration) (domain.Lock, error) {
	deadline := time.Now().Add(m.wait)

	for {
		if token, ok := m.tryAcquire(key, lease); ok {
			return &memoryLock{manager: m, key: key, token: token}, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLockUnavailable, key)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrLockUnavailable, key, ctx.Err())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (m *MemoryLockManager) tryAcquire(key string, lease time.Duration) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if entry, ok := m.held[key]; ok && entry.expireAt.After(now) {
		return 0, false
	}

	m.counter++
	m.held[key] = &memoryEntry{token: m.counter, expireAt: now.Add(lease)}
	return m.counter, true
}

func (m *MemoryLockManager) release(key string, token uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.held[key]; ok && entry.token == token {
		delete(m.held, key)
	}
}

// memoryLock 持有的进程内锁
type memoryLock struct {
	manager *MemoryLockManager
	key     string
	token   uint64
}

// Release 释放锁，幂等
func (l *memoryLock) Release(_ context.Context) error {
	l.manager.release(l.key, l.token)
	return nil
}
