// Package redis 转账服务 Redis 读缓存实现
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
)

// Store 缓存实现需要的 Redis 原语，由 pkg/cache 的封装提供
type Store interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// accountCache 账户读缓存实现
// 缓存失效发生在事务提交之后，提交与失效之间其他读方可能命中旧值；
// 权威数据永远以数据库行为准，临界区内的加载不经过本缓存
type accountCache struct {
	store  Store
	prefix string
	ttl    time.Duration
}

// NewAccountCache 创建账户读缓存
func NewAccountCache(store Store) domain.AccountCache {
	return &accountCache{
		store:  store,
		prefix: "account:",
		ttl:    time.Hour,
	}
}

func (c *accountCache) Get(ctx context.Context, id uint) (*domain.Account, error) {
	var account domain.Account
	ok, err := c.store.GetJSON(ctx, c.key(id), &account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &account, nil
}

func (c *accountCache) Set(ctx context.Context, account *domain.Account) error {
	if account == nil {
		return nil
	}
	return c.store.SetJSON(ctx, c.key(account.ID), account, c.ttl)
}

func (c *accountCache) Invalidate(ctx context.Context, id uint) error {
	return c.store.Delete(ctx, c.key(id))
}

func (c *accountCache) key(id uint) string {
	return fmt.Sprintf("%s%d", c.prefix, id)
}
