// Package consumer 转账完成事件消费端
package consumer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
	"github.com/wyfcoding/fundstransfer/internal/transfer/infrastructure/messaging"
	"github.com/wyfcoding/fundstransfer/pkg/mq"
)

// NotificationHandler 转账完成通知处理器
// at-least-once 消费：按 transfer_id 回查记录，重复消息无副作用
type NotificationHandler struct {
	transfers domain.TransferRepository
	consumer  *mq.KafkaConsumer
	logger    *slog.Logger
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(
	transfers domain.TransferRepository,
	consumer *mq.KafkaConsumer,
	logger *slog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		transfers: transfers,
		consumer:  consumer,
		logger:    logger.With("module", "transfer_notification"),
	}
}

// Run 消费循环，直到 ctx 取消
func (h *NotificationHandler) Run(ctx context.Context) error {
	for {
		msg, err := h.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			h.logger.ErrorContext(ctx, "failed to read notification message", "error", err)
			continue
		}

		var event messaging.TransferCompletedEvent
		if err := msg.UnmarshalPayload(&event); err != nil {
			h.logger.ErrorContext(ctx, "failed to decode notification message",
				"offset", msg.Offset, "error", err)
			continue
		}

		h.handle(ctx, event)
	}
}

// handle 加载转账记录并记录通知
func (h *NotificationHandler) handle(ctx context.Context, event messaging.TransferCompletedEvent) {
	transfer, err := h.transfers.Get(ctx, event.TransferID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load transfer for notification",
			"transfer_id", event.TransferID, "error", err)
		return
	}
	if transfer == nil {
		h.logger.WarnContext(ctx, "notification for unknown transfer",
			"transfer_id", event.TransferID)
		return
	}

	h.logger.InfoContext(ctx, "processing transfer notification",
		"transfer_id", transfer.ID,
		"amount", transfer.Amount.StringFixed(2),
		"currency", transfer.Currency)
	// 通知渠道（邮件、短信等）在此接入
}
