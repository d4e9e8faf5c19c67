// Package mysql 转账服务 MySQL 持久化实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
	"github.com/wyfcoding/fundstransfer/pkg/contextx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository 账户仓储实现
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository 创建账户仓储
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

// Create 创建账户
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.getDB(ctx).WithContext(ctx).Create(account).Error
}

// Get 根据 ID 获取账户
func (r *accountRepository) Get(ctx context.Context, id uint) (*domain.Account, error) {
	var account domain.Account
	if err := r.getDB(ctx).WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetWithLock 悲观锁获取
func (r *accountRepository) GetWithLock(ctx context.Context, id uint) (*domain.Account, error) {
	var account domain.Account
	// SELECT * FROM accounts WHERE id = ? FOR UPDATE
	err := r.getDB(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock account %d: %w", id, err)
	}
	return &account, nil
}

// Save 保存账户（带乐观锁，版本号 +1）
// 悲观行锁已经串行化了并发写，这里的版本条件是第二道防线
func (r *accountRepository) Save(ctx context.Context, account *domain.Account) error {
	currentVersion := account.Version
	result := r.getDB(ctx).WithContext(ctx).Model(&domain.Account{}).
		Where("id = ? AND version = ?", account.ID, currentVersion).
		Updates(map[string]any{
			"balance": account.Balance,
			"version": currentVersion + 1,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}

	account.Version = currentVersion + 1
	account.UpdatedAt = time.Now()
	return nil
}

func (r *accountRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}
