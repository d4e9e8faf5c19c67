package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
	"github.com/wyfcoding/fundstransfer/pkg/contextx"
	"gorm.io/gorm"
)

// transferRepository 转账记录仓储实现
type transferRepository struct {
	db *gorm.DB
}

// NewTransferRepository 创建转账仓储
func NewTransferRepository(db *gorm.DB) domain.TransferRepository {
	return &transferRepository{db: db}
}

// Create 持久化转账记录
func (r *transferRepository) Create(ctx context.Context, transfer *domain.Transfer) error {
	return r.getDB(ctx).WithContext(ctx).Create(transfer).Error
}

// Get 根据 ID 获取转账记录
func (r *transferRepository) Get(ctx context.Context, id uint) (*domain.Transfer, error) {
	var transfer domain.Transfer
	if err := r.getDB(ctx).WithContext(ctx).First(&transfer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transfer, nil
}

// ListByAccount 按账户分页列出转账记录（转入或转出）
func (r *transferRepository) ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]*domain.Transfer, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Transfer{}).
		Where("from_account_id = ? OR to_account_id = ?", accountID, accountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transfers []*domain.Transfer
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&transfers).Error; err != nil {
		return nil, 0, err
	}

	return transfers, total, nil
}

func (r *transferRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// txManager 基于 GORM 的事务管理器
type txManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) domain.TxManager {
	return &txManager{db: db}
}

// Transaction 在同一事务上下文中执行回调，回调报错时回滚
func (m *txManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}
