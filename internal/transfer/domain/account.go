// Package domain 转账服务领域层
package domain

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account 账本账户聚合根
// 余额使用定点小数（scale=2），禁止浮点运算
type Account struct {
	gorm.Model
	// 账户持有人
	Owner string `gorm:"column:owner;type:varchar(255);not null" json:"owner"`
	// 余额，任何已提交的变更之后不为负
	Balance decimal.Decimal `gorm:"column:balance;type:decimal(15,2);not null;default:0" json:"balance"`
	// 货币（ISO 风格 3 位大写字母）
	Currency string `gorm:"column:currency;type:char(3);not null" json:"currency"`
	// 乐观锁版本号，每次余额变更递增
	Version int64 `gorm:"column:version;not null;default:1" json:"version"`
}

// TableName 表名
func (Account) TableName() string {
	return "accounts"
}

// NewAccount 创建账户，未指定初始余额时为 0.00
func NewAccount(owner, currency string, initial decimal.Decimal) *Account {
	return &Account{
		Owner:    owner,
		Balance:  initial,
		Currency: currency,
		Version:  1,
	}
}

// Debit 扣减余额，余额不足时不改变状态
func (a *Account) Debit(amount decimal.Decimal) error {
	if a.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Credit 增加余额，金额已在上层校验为正
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}
