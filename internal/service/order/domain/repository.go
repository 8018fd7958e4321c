// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// MonthlyCount 是按月聚合的一行统计结果。
type MonthlyCount struct {
	Key   string // 骑手 ID 或餐厅 ID
	Count int64
}

// OrderRepository 定义了订单台账的持久化接口。
// 台账是订单状态的唯一事实来源。
type OrderRepository interface {
	// Save 保存订单聚合（创建或整体更新，含行项目）。
	Save(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找订单。
	FindByID(ctx context.Context, id string) (*Order, error)

	// AttachCourier 是条件更新：仅当订单仍是 created 且没有骑手时
	// 才写入快照并置为 assigned，否则 no-op 返回 false。
	// 创建流程和对账任务可能同时尝试指派，这个条件写保证只有一方生效。
	AttachCourier(ctx context.Context, orderID string, snapshot CourierSnapshot) (bool, error)

	// FindUnassigned 返回所有还没有骑手的 created 订单，供对账任务扫描。
	FindUnassigned(ctx context.Context) ([]*Order, error)

	// CountByCourier / CountByRestaurant 是月度只读聚合。
	CountByCourier(ctx context.Context, month time.Time) ([]MonthlyCount, error)
	CountByRestaurant(ctx context.Context, month time.Time) ([]MonthlyCount, error)
}
