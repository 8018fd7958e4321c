// internal/service/order/domain/port/courier.go
package port

import (
	"context"

	"dispatch/internal/service/order/domain"
)

// CourierPool 是骑手池服务的出站端口。
type CourierPool interface {
	// AssignNext 请求指派一名可用骑手。
	// 没有可用骑手时返回 (nil, nil)——这是正常情况，不是错误。
	AssignNext(ctx context.Context) (*domain.CourierSnapshot, error)

	// Free 释放骑手。对已可用的骑手调用是幂等的。
	Free(ctx context.Context, courierID string) error
}
