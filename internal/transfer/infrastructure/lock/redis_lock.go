// Package lock 分布式锁实现
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
)

// releaseScript 比较 token 后删除，防止释放他人持有的锁
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Store 锁后端需要的 Redis 原语，由 pkg/cache 的封装提供
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisLockManager 基于 Redis SET NX 的分布式锁管理器
type RedisLockManager struct {
	store   Store
	wait    time.Duration
	backoff time.Duration
}

// NewRedisLockManager 创建 Redis 锁管理器
// wait 是阻塞等待获取锁的上限，超过即返回 ErrLockUnavailable
func NewRedisLockManager(store Store, wait time.Duration) *RedisLockManager {
	return &RedisLockManager{
		store:   store,
		wait:    wait,
		backoff: 50 * time.Millisecond,
	}
}

// Acquire 阻塞式获取锁，指数退避轮询直至等待上限
func (m *RedisLockManager) Acquire(ctx context.Context, key string, lease time.Duration) (domain.Lock, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(m.wait)
	backoff := m.backoff

	for {
		ok, err := m.store.SetNX(ctx, key, token, lease)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return &redisLock{store: m.store, key: key, token: token}, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLockUnavailable, key)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrLockUnavailable, key, ctx.Err())
		case <-time.After(backoff):
		}

		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}
}

// redisLock 持有的 Redis 锁租约
type redisLock struct {
	store Store
	key   string
	token string
}

// Release 释放锁，幂等：锁已过期或已释放时脚本返回 0，为空操作
func (l *redisLock) Release(ctx context.Context) error {
	if _, err := l.store.Eval(ctx, releaseScript, []string{l.key}, l.token); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}

// newToken 生成随机锁持有者标识
func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
