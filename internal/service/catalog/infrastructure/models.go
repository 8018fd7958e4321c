// internal/service/catalog/infrastructure/models.go
package infrastructure

import "dispatch/internal/service/catalog/domain"

// RestaurantModel 对应数据库中的 restaurants 表
type RestaurantModel struct {
	ID          string  `gorm:"primaryKey;size:64"`
	Name        string  `gorm:"size:255;not null"`
	Address     string  `gorm:"size:255"`
	Description string  `gorm:"type:text"`
	Rating      float64 `gorm:"type:decimal(3,1)"`

	Menu []MenuItemModel `gorm:"foreignKey:RestaurantID"`
}

func (RestaurantModel) TableName() string {
	return "restaurants"
}

// MenuItemModel 对应数据库中的 menu_items 表
type MenuItemModel struct {
	ID           string  `gorm:"primaryKey;size:64"`
	RestaurantID string  `gorm:"size:64;index;not null"`
	Name         string  `gorm:"size:255;not null"`
	Price        float64 `gorm:"type:decimal(10,2);not null"`
	Stock        int     `gorm:"not null;default:0"`
}

func (MenuItemModel) TableName() string {
	return "menu_items"
}

func toDomainRestaurant(m *RestaurantModel) *domain.Restaurant {
	return &domain.Restaurant{
		ID:          m.ID,
		Name:        m.Name,
		Address:     m.Address,
		Description: m.Description,
		Rating:      m.Rating,
	}
}

func toDomainMenuItem(m *MenuItemModel) *domain.MenuItem {
	return &domain.MenuItem{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Price:        m.Price,
		Stock:        m.Stock,
	}
}
