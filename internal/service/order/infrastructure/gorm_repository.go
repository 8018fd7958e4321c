// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/service/order/domain"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository 是订单台账的 GORM/MySQL 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderItemModel{})
}

// Save 创建或整体更新订单。行项目在创建后不再变化，更新时跳过。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := toModel(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(model).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&OrderItemModel{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 && len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return pkgerrors.Wrap(err, "save order")
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find order")
	}
	return toDomain(&model), nil
}

// AttachCourier 是一条条件 UPDATE：订单已被指派或已完成时影响 0 行。
// 创建流程与对账任务竞争同一订单时，只有一方能写进去。
func (r *GormOrderRepository) AttachCourier(ctx context.Context, orderID string, snapshot domain.CourierSnapshot) (bool, error) {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND state = ? AND courier_id IS NULL", orderID, string(domain.StateCreated)).
		Updates(map[string]interface{}{
			"state":         string(domain.StateAssigned),
			"courier_id":    snapshot.ID,
			"courier_name":  snapshot.Name,
			"courier_phone": snapshot.Phone,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(res.Error, "attach courier")
	}
	return res.RowsAffected > 0, nil
}

func (r *GormOrderRepository) FindUnassigned(ctx context.Context) ([]*domain.Order, error) {
	var models []OrderModel
	err := r.db.WithContext(ctx).Preload("Items").
		Where("state = ? AND courier_id IS NULL", string(domain.StateCreated)).
		Order("created_at").
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find unassigned orders")
	}
	out := make([]*domain.Order, 0, len(models))
	for i := range models {
		out = append(out, toDomain(&models[i]))
	}
	return out, nil
}

func (r *GormOrderRepository) CountByCourier(ctx context.Context, month time.Time) ([]domain.MonthlyCount, error) {
	return r.countGrouped(ctx, month, "courier_id", "courier_id IS NOT NULL")
}

func (r *GormOrderRepository) CountByRestaurant(ctx context.Context, month time.Time) ([]domain.MonthlyCount, error) {
	return r.countGrouped(ctx, month, "restaurant_id", "")
}

func (r *GormOrderRepository) countGrouped(ctx context.Context, month time.Time, column, filter string) ([]domain.MonthlyCount, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	end := start.AddDate(0, 1, 0)

	q := r.db.WithContext(ctx).Model(&OrderModel{}).
		Select(column+" AS `key`, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group(column).
		Order("count DESC")
	if filter != "" {
		q = q.Where(filter)
	}

	var rows []domain.MonthlyCount
	if err := q.Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "monthly order stats")
	}
	return rows, nil
}
