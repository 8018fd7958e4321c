// internal/service/catalog/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"dispatch/internal/service/catalog/domain"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCatalogRepository 是 CatalogRepository 的 GORM/MySQL 实现。
// 库存操作依赖 InnoDB 的行锁（SELECT ... FOR UPDATE）。
type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// AutoMigrate 建表。演示环境由服务启动时调用，生产环境应交给迁移工具。
func (r *GormCatalogRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&RestaurantModel{}, &MenuItemModel{})
}

func (r *GormCatalogRepository) CreateRestaurant(ctx context.Context, rest *domain.Restaurant) error {
	model := RestaurantModel{
		ID:          rest.ID,
		Name:        rest.Name,
		Address:     rest.Address,
		Description: rest.Description,
		Rating:      rest.Rating,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAlreadyExists
	}
	return pkgerrors.Wrap(err, "create restaurant")
}

func (r *GormCatalogRepository) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	var model RestaurantModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRestaurantNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "get restaurant")
	}
	return toDomainRestaurant(&model), nil
}

func (r *GormCatalogRepository) ListRestaurants(ctx context.Context) ([]*domain.Restaurant, error) {
	var models []RestaurantModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list restaurants")
	}
	out := make([]*domain.Restaurant, 0, len(models))
	for i := range models {
		out = append(out, toDomainRestaurant(&models[i]))
	}
	return out, nil
}

func (r *GormCatalogRepository) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	model := MenuItemModel{
		ID:           item.ID,
		RestaurantID: item.RestaurantID,
		Name:         item.Name,
		Price:        item.Price,
		Stock:        item.Stock,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAlreadyExists
	}
	return pkgerrors.Wrap(err, "create menu item")
}

func (r *GormCatalogRepository) GetMenu(ctx context.Context, restaurantID string) ([]*domain.MenuItem, error) {
	var models []MenuItemModel
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "get menu")
	}
	out := make([]*domain.MenuItem, 0, len(models))
	for i := range models {
		out = append(out, toDomainMenuItem(&models[i]))
	}
	return out, nil
}

// Reserve 在一个事务里锁行、校验、扣减。
// FOR UPDATE 从读取一直持有到提交，并发调用会在这里排队，因此不会超卖。
func (r *GormCatalogRepository) Reserve(ctx context.Context, restaurantID, itemID string, quantity int) (*domain.MenuItem, error) {
	var item *domain.MenuItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model MenuItemModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrItemNotFound
		}
		if err != nil {
			return err
		}
		if model.Stock < quantity {
			return domain.ErrOutOfStock
		}
		model.Stock -= quantity
		if err := tx.Model(&MenuItemModel{}).Where("id = ?", model.ID).
			Update("stock", model.Stock).Error; err != nil {
			return err
		}
		item = toDomainMenuItem(&model)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) || errors.Is(err, domain.ErrOutOfStock) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, "reserve stock")
	}
	return item, nil
}

// Release 归还库存。自增用表达式完成，天然原子，无需显式行锁。
func (r *GormCatalogRepository) Release(ctx context.Context, restaurantID, itemID string, quantity int) (*domain.MenuItem, error) {
	res := r.db.WithContext(ctx).Model(&MenuItemModel{}).
		Where("id = ? AND restaurant_id = ?", itemID, restaurantID).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return nil, pkgerrors.Wrap(res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrItemNotFound
	}

	var model MenuItemModel
	if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&model).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "reload released item")
	}
	return toDomainMenuItem(&model), nil
}
