// internal/service/catalog/domain/repository.go
package domain

import "context"

// CatalogRepository 定义了餐厅目录与库存的持久化接口。
// Reserve/Release 是库存的唯一修改入口。
type CatalogRepository interface {
	CreateRestaurant(ctx context.Context, r *Restaurant) error
	GetRestaurant(ctx context.Context, id string) (*Restaurant, error)
	ListRestaurants(ctx context.Context) ([]*Restaurant, error)

	CreateMenuItem(ctx context.Context, item *MenuItem) error
	// GetMenu 返回某餐厅的全部菜单项（含库存快照）。
	GetMenu(ctx context.Context, restaurantID string) ([]*MenuItem, error)

	// Reserve 原子地检查并扣减库存。锁必须覆盖从读到写的整个临界区，
	// 否则并发下会超卖。库存不足返回 ErrOutOfStock，条目不存在返回 ErrItemNotFound。
	// 成功时返回扣减后的条目快照。
	Reserve(ctx context.Context, restaurantID, itemID string, quantity int) (*MenuItem, error)

	// Release 归还此前预留的库存。调用方保证每次成功的 Reserve
	// 至多对应一次 Release——重复调用会重复加库存。
	Release(ctx context.Context, restaurantID, itemID string, quantity int) (*MenuItem, error)
}
