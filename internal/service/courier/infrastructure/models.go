// internal/service/courier/infrastructure/models.go
package infrastructure

import "dispatch/internal/service/courier/domain"

// CourierModel 对应数据库中的 couriers 表
type CourierModel struct {
	ID     string `gorm:"primaryKey;size:64"`
	Name   string `gorm:"size:255;not null"`
	Phone  string `gorm:"size:32"`
	Status string `gorm:"size:16;not null;default:available;index"`
}

func (CourierModel) TableName() string {
	return "couriers"
}

func toDomainCourier(m *CourierModel) *domain.Courier {
	return &domain.Courier{
		ID:     m.ID,
		Name:   m.Name,
		Phone:  m.Phone,
		Status: domain.Status(m.Status),
	}
}
