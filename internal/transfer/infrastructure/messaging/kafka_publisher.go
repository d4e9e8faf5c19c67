// Package messaging 转账服务消息发布实现
package messaging

import (
	"context"
	"strconv"
	"time"

	"github.com/wyfcoding/fundstransfer/internal/transfer/domain"
	"github.com/wyfcoding/fundstransfer/pkg/mq"
)

// TransferCompletedEvent 转账完成事件
type TransferCompletedEvent struct {
	TransferID uint      `json:"transfer_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// kafkaPublisher 基于 Kafka 的通知发布实现
// at-least-once：消费端按 transfer_id 回查记录，重复投递无副作用
type kafkaPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaPublisher 创建 Kafka 通知发布器
func NewKafkaPublisher(producer *mq.KafkaProducer, topic string) domain.NotificationPublisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    topic,
	}
}

// PublishTransferCompleted 发布转账完成事件，以 transfer_id 作为分区键
func (p *kafkaPublisher) PublishTransferCompleted(ctx context.Context, transferID uint) error {
	event := TransferCompletedEvent{
		TransferID: transferID,
		OccurredAt: time.Now(),
	}
	key := strconv.FormatUint(uint64(transferID), 10)
	return p.producer.SendMessage(ctx, p.topic, key, event)
}
