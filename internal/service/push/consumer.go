// internal/service/push/consumer.go
package push

import (
	"context"
	"errors"
	"io"

	"dispatch/internal/pkg/logger"
	"dispatch/internal/pkg/mq"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Consumer 消费订单事件 topic，把每条事件转发给 Hub。
// 消息以订单 ID 为 key，无需解开消息体就能完成路由。
type Consumer struct {
	reader *kafka.Reader
	hub    *Hub
	tracer trace.Tracer
}

func NewConsumer(reader *kafka.Reader, hub *Hub, tracer trace.Tracer) *Consumer {
	return &Consumer{reader: reader, hub: hub, tracer: tracer}
}

// Run 阻塞消费直到 ctx 取消。单条消息的失败只记日志，不中断循环。
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			logger.Logger().Error().Err(err).Msg("failed to read order event")
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	// 接续生产端注入的链路
	carrier := mq.KafkaHeaderCarrier(msg.Headers)
	ctx = otel.GetTextMapPropagator().Extract(ctx, &carrier)
	ctx, span := c.tracer.Start(ctx, "push.DispatchOrderEvent", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	orderID := string(msg.Key)
	if orderID == "" {
		logger.Ctx(ctx).Warn().Msg("dropping order event without key")
		return
	}
	span.SetAttributes(attribute.String("order.id", orderID))

	c.hub.Push(orderID, msg.Value)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
