// internal/service/courier/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"dispatch/internal/service/courier/domain"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCourierRepository 是 CourierRepository 的 GORM/MySQL 实现。
// AssignNext 依赖 MySQL 8 的 FOR UPDATE SKIP LOCKED：
// 被并发事务锁住的行直接跳过，保证每个调用方拿到不同的骑手，
// 且在还有空闲骑手时不会互相等锁。
type GormCourierRepository struct {
	db *gorm.DB
}

func NewGormCourierRepository(db *gorm.DB) *GormCourierRepository {
	return &GormCourierRepository{db: db}
}

func (r *GormCourierRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&CourierModel{})
}

// Seed 在骑手表为空时写入一批默认骑手，方便演示环境开箱即用。
func (r *GormCourierRepository) Seed(ctx context.Context, defaults []*domain.Courier) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&CourierModel{}).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(err, "count couriers")
	}
	if count > 0 {
		return nil
	}
	for _, c := range defaults {
		if err := r.Create(ctx, c); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}

func (r *GormCourierRepository) Create(ctx context.Context, c *domain.Courier) error {
	if c.Status == "" {
		c.Status = domain.StatusAvailable
	}
	model := CourierModel{ID: c.ID, Name: c.Name, Phone: c.Phone, Status: string(c.Status)}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAlreadyExists
	}
	return pkgerrors.Wrap(err, "create courier")
}

func (r *GormCourierRepository) Get(ctx context.Context, id string) (*domain.Courier, error) {
	var model CourierModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCourierNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "get courier")
	}
	return toDomainCourier(&model), nil
}

func (r *GormCourierRepository) List(ctx context.Context) ([]*domain.Courier, error) {
	var models []CourierModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list couriers")
	}
	out := make([]*domain.Courier, 0, len(models))
	for i := range models {
		out = append(out, toDomainCourier(&models[i]))
	}
	return out, nil
}

// AssignNext 的临界区：SELECT ... FOR UPDATE SKIP LOCKED 挑一行，置 busy，提交。
// 查不到行有两种含义（全忙 / 全被别人锁着），两种都对应“当前没有可分配的骑手”。
func (r *GormCourierRepository) AssignNext(ctx context.Context) (*domain.Courier, error) {
	var assigned *domain.Courier
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model CourierModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", string(domain.StatusAvailable)).
			Order("id").
			Limit(1).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // 没有可用骑手，不算错误
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&CourierModel{}).Where("id = ?", model.ID).
			Update("status", string(domain.StatusBusy)).Error; err != nil {
			return err
		}
		model.Status = string(domain.StatusBusy)
		assigned = toDomainCourier(&model)
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "assign next courier")
	}
	return assigned, nil
}

func (r *GormCourierRepository) Assign(ctx context.Context, id string) (*domain.Courier, error) {
	var assigned *domain.Courier
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model CourierModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrCourierNotFound
		}
		if err != nil {
			return err
		}
		if model.Status == string(domain.StatusBusy) {
			return domain.ErrCourierBusy
		}
		if err := tx.Model(&CourierModel{}).Where("id = ?", model.ID).
			Update("status", string(domain.StatusBusy)).Error; err != nil {
			return err
		}
		model.Status = string(domain.StatusBusy)
		assigned = toDomainCourier(&model)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCourierNotFound) || errors.Is(err, domain.ErrCourierBusy) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, "assign courier")
	}
	return assigned, nil
}

// Free 无条件置回 available。对已可用骑手重复调用是安全的 no-op。
func (r *GormCourierRepository) Free(ctx context.Context, id string) (*domain.Courier, error) {
	res := r.db.WithContext(ctx).Model(&CourierModel{}).
		Where("id = ?", id).
		Update("status", string(domain.StatusAvailable))
	if res.Error != nil {
		return nil, pkgerrors.Wrap(res.Error, "free courier")
	}
	if res.RowsAffected == 0 {
		// Update 不区分“行不存在”和“值未变化”，这里需要回查确认
		var model CourierModel
		err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCourierNotFound
		}
		if err != nil {
			return nil, pkgerrors.Wrap(err, "free courier")
		}
		return toDomainCourier(&model), nil
	}
	return r.Get(ctx, id)
}
