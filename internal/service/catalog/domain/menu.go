// internal/service/catalog/domain/menu.go
package domain

// Restaurant 是餐厅聚合的根实体，菜单项挂在它下面。
type Restaurant struct {
	ID          string
	Name        string
	Address     string
	Description string
	Rating      float64
}

// MenuItem 是一个可售卖的菜单项，Stock 是当前可预留的库存量。
// 库存的一致性约束（永不为负）由仓储的 Reserve/Release 保证。
type MenuItem struct {
	ID           string
	RestaurantID string
	Name         string
	Price        float64
	Stock        int
}
