package domain

import (
	"context"
	"time"
)

// Lock 已持有的互斥锁租约
type Lock interface {
	// Release 释放锁，幂等，任何退出路径都必须调用
	Release(ctx context.Context) error
}

// LockManager 分布式锁管理器
// 实现可替换：测试用进程内互斥 map，生产用 Redis
type LockManager interface {
	// Acquire 阻塞式获取命名锁，租约到期自动失效
	// 在等待上限内未获得锁时返回 ErrLockUnavailable
	Acquire(ctx context.Context, key string, lease time.Duration) (Lock, error)
}
