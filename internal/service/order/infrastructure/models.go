// internal/service/order/infrastructure/models.go
package infrastructure

import (
	"time"

	"dispatch/internal/service/order/domain"
)

// OrderModel 对应数据库中的 orders 表。
// 骑手快照直接内联成三列——它是按值拷贝的历史记录，不是外键。
type OrderModel struct {
	ID            string  `gorm:"primaryKey;size:36"`
	RestaurantID  string  `gorm:"size:64;index;not null"`
	CustomerEmail string  `gorm:"size:255"`
	Address       string  `gorm:"size:255;not null"`
	State         string  `gorm:"size:16;not null;index"`
	CourierID     *string `gorm:"size:64;index"`
	CourierName   *string `gorm:"size:255"`
	CourierPhone  *string `gorm:"size:32"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应数据库中的 order_items 表。
// 名称与单价是下单时刻的快照。
type OrderItemModel struct {
	ID       uint    `gorm:"primaryKey;autoIncrement"`
	OrderID  string  `gorm:"size:36;index;not null"`
	ItemID   string  `gorm:"size:64;not null"`
	Name     string  `gorm:"size:255;not null"`
	Price    float64 `gorm:"type:decimal(10,2);not null"`
	Quantity int     `gorm:"not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

func toModel(o *domain.Order) *OrderModel {
	m := &OrderModel{
		ID:            o.ID,
		RestaurantID:  o.RestaurantID,
		CustomerEmail: o.CustomerEmail,
		Address:       o.Address,
		State:         string(o.State),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.Courier != nil {
		m.CourierID = ptr(o.Courier.ID)
		m.CourierName = ptr(o.Courier.Name)
		m.CourierPhone = ptr(o.Courier.Phone)
	}
	for _, it := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			OrderID:  o.ID,
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	return m
}

func toDomain(m *OrderModel) *domain.Order {
	o := &domain.Order{
		ID:            m.ID,
		RestaurantID:  m.RestaurantID,
		CustomerEmail: m.CustomerEmail,
		Address:       m.Address,
		State:         domain.State(m.State),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.CourierID != nil {
		o.Courier = &domain.CourierSnapshot{
			ID:    deref(m.CourierID),
			Name:  deref(m.CourierName),
			Phone: deref(m.CourierPhone),
		}
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, domain.LineItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	return o
}

func ptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
