// internal/service/order/infrastructure/adapter/event_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"dispatch/internal/pkg/mq"
	"dispatch/internal/service/order/domain"
	"dispatch/internal/service/order/domain/port"
)

// KafkaEventPublisher 把订单事件写入 Kafka，以订单 ID 为 key 保证同单有序。
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

func NewKafkaEventPublisher(writer *kafka.Writer) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: writer}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event *domain.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, p.writer, []byte(event.OrderID), payload)
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// NoopEventPublisher 用于未配置 Kafka 的部署形态（比如纯内存模式）。
type NoopEventPublisher struct{}

var _ port.EventPublisher = (*NoopEventPublisher)(nil)

func (NoopEventPublisher) Publish(context.Context, *domain.OrderEvent) error { return nil }
