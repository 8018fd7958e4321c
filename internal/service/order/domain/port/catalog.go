// internal/service/order/domain/port/catalog.go
package port

import "context"

// MenuStock 是预检用的菜单条目视图。
type MenuStock struct {
	ItemID string
	Name   string
	Price  float64
	Stock  int
}

// ReservedItem 是一次库存预留成功后返回的条目快照。
type ReservedItem struct {
	ItemID string
	Name   string
	Price  float64
	// Remaining 是扣减后的剩余库存
	Remaining int
}

// CatalogService 是目录/库存服务的出站端口。
type CatalogService interface {
	// GetMenu 拉取餐厅菜单的当前库存视图，仅用于预检。
	GetMenu(ctx context.Context, restaurantID string) ([]MenuStock, error)

	// Reserve 预留库存。库存不足映射为 domain.ErrInsufficientStock，
	// 条目不存在映射为 domain.ErrItemNotFound，
	// 服务不可达映射为 domain.ErrReservationFailed。
	Reserve(ctx context.Context, restaurantID, itemID string, quantity int) (*ReservedItem, error)

	// Release 是 Reserve 的补偿操作。
	Release(ctx context.Context, restaurantID, itemID string, quantity int) error
}
