package application

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
)

// QueryService 转账服务查询端
type QueryService struct {
	accounts  domain.AccountRepository
	transfers domain.TransferRepository
	cache     domain.AccountCache
	logger    *slog.Logger
}

// NewQueryService 创建查询服务
func NewQueryService(
	accounts domain.AccountRepository,
	transfers domain.TransferRepository,
	cache domain.AccountCache,
	logger *slog.Logger,
) *QueryService {
	return &QueryService{
		accounts:  accounts,
		transfers: transfers,
		cache:     cache,
		logger:    logger.With("module", "transfer_query"),
	}
}

// GetAccount 读取账户，优先命中读缓存
func (s *QueryService) GetAccount(ctx context.Context, id uint) (*domain.Account, error) {
	cached, err := s.cache.Get(ctx, id)
	if err != nil {
		// 缓存故障降级为直查数据库
		s.logger.WarnContext(ctx, "account cache read failed", "account_id", id, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	if err := s.cache.Set(ctx, account); err != nil {
		s.logger.WarnContext(ctx, "account cache write failed", "account_id", id, "error", err)
	}
	return account, nil
}

// GetTransfer 读取转账记录
func (s *QueryService) GetTransfer(ctx context.Context, id uint) (*domain.Transfer, error) {
	transfer, err := s.transfers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, domain.ErrTransferNotFound
	}
	return transfer, nil
}

// ListTransfers 按账户分页列出转账记录
func (s *QueryService) ListTransfers(ctx context.Context, accountID uint, limit, offset int) ([]*domain.Transfer, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.transfers.ListByAccount(ctx, accountID, limit, offset)
}
