package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferStatus 转账状态
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
)

// IsFinal 是否为终态
func (s TransferStatus) IsFinal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed
}

// Transfer 转账聚合根
// 状态机：pending → completed | failed，终态不可逆
type Transfer struct {
	gorm.Model
	// 转出账户 ID
	FromAccountID uint `gorm:"column:from_account_id;index;not null" json:"from_account_id"`
	// 转入账户 ID
	ToAccountID uint `gorm:"column:to_account_id;index;not null" json:"to_account_id"`
	// 金额（scale=2，> 0）
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(15,2);not null" json:"amount"`
	// 货币，必须与两个账户一致
	Currency string `gorm:"column:currency;type:char(3);not null" json:"currency"`
	// 状态
	Status TransferStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	// 失败原因，仅 failed 时有值
	Error string `gorm:"column:error;type:varchar(255)" json:"error,omitempty"`
	// 处理完成时间，进入终态时设置且仅设置一次
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

// TableName 表名
func (Transfer) TableName() string {
	return "transfers"
}

// NewFailedTransfer 直接以 failed 终态重建转账记录
// 用于事务提交失败后原对象已标记 completed 时的审计留痕
func NewFailedTransfer(fromAccountID, toAccountID uint, amount decimal.Decimal, currency, reason string) *Transfer {
	now := time.Now()
	return &Transfer{
		FromAccountID: fromAccountID,
		ToAccountID:   toAccountID,
		Amount:        amount,
		Currency:      currency,
		Status:        TransferStatusFailed,
		Error:         reason,
		ProcessedAt:   &now,
	}
}

// NewTransfer 创建 pending 状态的转账记录（尚未持久化）
func NewTransfer(fromAccountID, toAccountID uint, amount decimal.Decimal, currency string) *Transfer {
	return &Transfer{
		FromAccountID: fromAccountID,
		ToAccountID:   toAccountID,
		Amount:        amount,
		Currency:      currency,
		Status:        TransferStatusPending,
	}
}

// MarkCompleted 标记完成，仅允许从 pending 转换
func (t *Transfer) MarkCompleted() error {
	if t.Status != TransferStatusPending {
		return ErrInvalidStateTransition
	}
	now := time.Now()
	t.Status = TransferStatusCompleted
	t.ProcessedAt = &now
	return nil
}

// MarkFailed 标记失败并记录原因，仅允许从 pending 转换
func (t *Transfer) MarkFailed(reason string) error {
	if t.Status != TransferStatusPending {
		return ErrInvalidStateTransition
	}
	now := time.Now()
	t.Status = TransferStatusFailed
	t.Error = reason
	t.ProcessedAt = &now
	return nil
}
