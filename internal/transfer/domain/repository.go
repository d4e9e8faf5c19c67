package domain

import "context"

// AccountRepository 账户仓储接口
type AccountRepository interface {
	// Create 创建账户
	Create(ctx context.Context, account *Account) error
	// Get 根据 ID 获取账户，不存在时返回 (nil, nil)
	Get(ctx context.Context, id uint) (*Account, error)
	// GetWithLock 悲观锁获取（SELECT ... FOR UPDATE），不存在时返回 (nil, nil)
	GetWithLock(ctx context.Context, id uint) (*Account, error)
	// Save 保存账户余额变更，版本号 +1；版本不匹配时返回 ErrVersionConflict
	Save(ctx context.Context, account *Account) error
}

// TransferRepository 转账记录仓储接口
type TransferRepository interface {
	// Create 持久化转账记录
	Create(ctx context.Context, transfer *Transfer) error
	// Get 根据 ID 获取转账记录，不存在时返回 (nil, nil)
	Get(ctx context.Context, id uint) (*Transfer, error)
	// ListByAccount 按账户分页列出相关转账
	ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]*Transfer, int64, error)
}

// TxManager 事务管理器，回调返回错误时回滚，否则提交
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountCache 账户读缓存
// 失效发生在事务提交之后而非提交的同时，提交与失效之间存在
// 一个已知的短暂窗口，期间其他读方可能命中旧值
type AccountCache interface {
	Get(ctx context.Context, id uint) (*Account, error)
	Set(ctx context.Context, account *Account) error
	Invalidate(ctx context.Context, id uint) error
}

// NotificationPublisher 转账完成通知发布，fire-and-forget，至少一次
type NotificationPublisher interface {
	PublishTransferCompleted(ctx context.Context, transferID uint) error
}
