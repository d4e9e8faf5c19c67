// Package application 转账服务应用层
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
)

// currencyPattern 货币必须为 3 位大写字母
var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// TransferService 转账协调器
// 负责锁获取、事务内账户变更、转账状态流转与失败恢复
type TransferService struct {
	accounts  domain.AccountRepository
	transfers domain.TransferRepository
	txm       domain.TxManager
	locks     domain.LockManager
	cache     domain.AccountCache
	publisher domain.NotificationPublisher
	lease     time.Duration
	logger    *slog.Logger
}

// NewTransferService 创建转账协调器
func NewTransferService(
	accounts domain.AccountRepository,
	transfers domain.TransferRepository,
	txm domain.TxManager,
	locks domain.LockManager,
	cache domain.AccountCache,
	publisher domain.NotificationPublisher,
	lease time.Duration,
	logger *slog.Logger,
) *TransferService {
	return &TransferService{
		accounts:  accounts,
		transfers: transfers,
		txm:       txm,
		locks:     locks,
		cache:     cache,
		publisher: publisher,
		lease:     lease,
		logger:    logger.With("module", "transfer_service"),
	}
}

// CreateAccountCommand 创建账户命令
type CreateAccountCommand struct {
	Owner    string
	Currency string
	Balance  decimal.Decimal
}

// CreateAccount 创建账户，未指定初始余额时为 0.00
func (s *TransferService) CreateAccount(ctx context.Context, cmd CreateAccountCommand) (*domain.Account, error) {
	if len(cmd.Owner) < 3 || len(cmd.Owner) > 255 {
		return nil, fmt.Errorf("%w: owner must be 3-255 characters", domain.ErrInvalidTransfer)
	}
	if !currencyPattern.MatchString(cmd.Currency) {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrInvalidTransfer)
	}
	if cmd.Balance.Sign() < 0 || cmd.Balance.Exponent() < -2 {
		return nil, fmt.Errorf("%w: balance must be a non-negative 2-decimal value", domain.ErrInvalidTransfer)
	}

	account := domain.NewAccount(cmd.Owner, cmd.Currency, cmd.Balance)
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account created",
		"account_id", account.ID,
		"owner", account.Owner,
		"currency", account.Currency)
	return account, nil
}

// Execute 执行转账
//
// 算法：入参校验 → 规范配对锁 → 事务 → 锁序加载两账户 → 业务校验 →
// 借记/贷记 → 持久化账户与转账记录 → 提交 → 发布通知 → 释放锁。
// 临界区内任何失败都会回滚，并尽力持久化 failed 转账作为审计记录。
func (s *TransferService) Execute(ctx context.Context, fromID, toID uint, amount decimal.Decimal, currency string) (*domain.Transfer, error) {
	if err := validateRequest(fromID, toID, amount, currency); err != nil {
		return nil, err
	}

	transfer := domain.NewTransfer(fromID, toID, amount, currency)

	// A→B 与 B→A 竞争同一把锁
	key := domain.PairLockKey(fromID, toID)
	lock, err := s.locks.Acquire(ctx, key, s.lease)
	if err != nil {
		// 锁未获得，转账记录不落库
		return nil, err
	}
	defer func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.logger.ErrorContext(ctx, "failed to release transfer lock", "key", key, "error", releaseErr)
		}
	}()

	txErr := s.txm.Transaction(ctx, func(txCtx context.Context) error {
		fromAccount, toAccount, err := s.loadAccountsLocked(txCtx, fromID, toID)
		if err != nil {
			return err
		}

		if err := validateAccounts(fromAccount, toAccount, amount, currency); err != nil {
			return err
		}

		if err := fromAccount.Debit(amount); err != nil {
			return err
		}
		toAccount.Credit(amount)

		if err := s.accounts.Save(txCtx, fromAccount); err != nil {
			return err
		}
		if err := s.accounts.Save(txCtx, toAccount); err != nil {
			return err
		}

		if err := transfer.MarkCompleted(); err != nil {
			return err
		}
		return s.transfers.Create(txCtx, transfer)
	})
	if txErr != nil {
		return nil, s.failTransfer(ctx, transfer, txErr)
	}

	// 失效发生在提交之后，存在短暂的陈旧读窗口
	s.invalidateAccounts(ctx, fromID, toID)

	s.logger.InfoContext(ctx, "transfer completed",
		"transfer_id", transfer.ID,
		"from_account", fromID,
		"to_account", toID,
		"amount", amount.StringFixed(2),
		"currency", currency)

	// 发布失败不回滚已提交的转账
	if err := s.publisher.PublishTransferCompleted(ctx, transfer.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish transfer notification",
			"transfer_id", transfer.ID, "error", err)
	}

	return transfer, nil
}

// loadAccountsLocked 按规范顺序对两个账户加行锁并加载
// 与分布式锁键使用同一排序，避免存储层二次死锁
func (s *TransferService) loadAccountsLocked(ctx context.Context, fromID, toID uint) (*domain.Account, *domain.Account, error) {
	firstID, secondID := domain.OrderedPair(fromID, toID)

	first, err := s.accounts.GetWithLock(ctx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.accounts.GetWithLock(ctx, secondID)
	if err != nil {
		return nil, nil, err
	}
	if first == nil || second == nil {
		return nil, nil, domain.ErrAccountNotFound
	}

	if firstID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

// failTransfer 失败处理：事务已回滚，标记失败并尽力落库审计记录，
// 二次持久化失败只记日志不上抛，最后将原始错误映射后返回
func (s *TransferService) failTransfer(ctx context.Context, transfer *domain.Transfer, cause error) error {
	reason := truncateReason(cause.Error())

	audit := transfer
	if markErr := transfer.MarkFailed(reason); markErr != nil {
		// 提交本身失败：原对象已在内存中标记 completed，
		// 重建一条 failed 记录保证终态仍可追溯
		s.logger.ErrorContext(ctx, "transfer failed after completion mark",
			"from_account", transfer.FromAccountID,
			"to_account", transfer.ToAccountID,
			"error", cause)
		audit = domain.NewFailedTransfer(transfer.FromAccountID, transfer.ToAccountID,
			transfer.Amount, transfer.Currency, reason)
	}
	if saveErr := s.transfers.Create(ctx, audit); saveErr != nil {
		s.logger.ErrorContext(ctx, "failed to save failed transfer",
			"from_account", audit.FromAccountID,
			"to_account", audit.ToAccountID,
			"error", saveErr)
	}

	s.logger.ErrorContext(ctx, "transfer failed",
		"transfer_id", transfer.ID,
		"from_account", transfer.FromAccountID,
		"to_account", transfer.ToAccountID,
		"error", cause)

	return classify(cause)
}

// invalidateAccounts 提交后尽力失效两个账户的读缓存
func (s *TransferService) invalidateAccounts(ctx context.Context, ids ...uint) {
	for _, id := range ids {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate account cache",
				"account_id", id, "error", err)
		}
	}
}

// truncateReason 失败原因截断到 error 列宽
// 按 rune 边界截断，避免把多字节字符切成非法序列
func truncateReason(reason string) string {
	const maxRunes = 255
	runes := []rune(reason)
	if len(runes) <= maxRunes {
		return reason
	}
	return string(runes[:maxRunes])
}

// validateRequest 前置校验，失败时不触碰锁与事务
func validateRequest(fromID, toID uint, amount decimal.Decimal, currency string) error {
	if fromID == 0 || toID == 0 {
		return fmt.Errorf("%w: account ids must be positive", domain.ErrInvalidTransfer)
	}
	if fromID == toID {
		return fmt.Errorf("%w: cannot transfer to the same account", domain.ErrInvalidTransfer)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidTransfer)
	}
	if amount.Exponent() < -2 {
		return fmt.Errorf("%w: amount must have at most 2 decimal places", domain.ErrInvalidTransfer)
	}
	if !currencyPattern.MatchString(currency) {
		return fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrInvalidTransfer)
	}
	return nil
}

// validateAccounts 临界区内的业务校验
func validateAccounts(fromAccount, toAccount *domain.Account, amount decimal.Decimal, currency string) error {
	// 防御性复查
	if fromAccount.ID == toAccount.ID {
		return fmt.Errorf("%w: cannot transfer to the same account", domain.ErrInvalidTransfer)
	}
	if fromAccount.Currency != currency || toAccount.Currency != currency {
		return domain.ErrCurrencyMismatch
	}
	if fromAccount.Balance.Cmp(amount) < 0 {
		return domain.ErrInsufficientFunds
	}
	return nil
}

// classify 已知业务错误按原类型上抛，其余包装为 ErrTransferFailed
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrInvalidTransfer),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrInsufficientFunds):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
}
