// internal/service/order/domain/port/events.go
package port

import (
	"context"

	"dispatch/internal/service/order/domain"
)

// EventPublisher 是订单生命周期事件的出站端口。
// 发布失败不应影响主流程——调用方记日志后继续。
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.OrderEvent) error
}
