package domain

import "errors"

var (
	// ErrInvalidTransfer 调用方入参错误：同账户转账、金额或货币格式非法
	ErrInvalidTransfer = errors.New("transfer: invalid transfer request")
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("transfer: account not found")
	// ErrTransferNotFound 转账记录不存在
	ErrTransferNotFound = errors.New("transfer: transfer not found")
	// ErrCurrencyMismatch 账户货币与请求货币不一致
	ErrCurrencyMismatch = errors.New("transfer: currency mismatch")
	// ErrInsufficientFunds 余额不足
	ErrInsufficientFunds = errors.New("transfer: insufficient funds")
	// ErrLockUnavailable 分布式锁获取失败（竞争，瞬态）
	ErrLockUnavailable = errors.New("transfer: could not acquire lock")
	// ErrTransferFailed 临界区内的非预期错误
	ErrTransferFailed = errors.New("transfer: transfer failed")
	// ErrInvalidStateTransition 转账状态机非法转换（编程错误）
	ErrInvalidStateTransition = errors.New("transfer: invalid state transition")
	// ErrVersionConflict 乐观锁冲突，账户已被其他事务修改
	ErrVersionConflict = errors.New("transfer: account modified by another transaction")
)
