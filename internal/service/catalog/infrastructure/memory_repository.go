// internal/service/catalog/infrastructure/memory_repository.go
package infrastructure

import (
	"context"
	"sort"
	"sync"

	"dispatch/internal/service/catalog/domain"
)

// MemoryCatalogRepository 是 CatalogRepository 的进程内实现，
// 用于本地开发和测试。库存操作用一把互斥锁覆盖整个检查-修改临界区，
// 与 MySQL 实现的行锁提供相同的不超卖保证。
type MemoryCatalogRepository struct {
	mu          sync.Mutex
	restaurants map[string]*domain.Restaurant
	items       map[string]*domain.MenuItem // key: itemID
}

func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		restaurants: make(map[string]*domain.Restaurant),
		items:       make(map[string]*domain.MenuItem),
	}
}

func (r *MemoryCatalogRepository) CreateRestaurant(ctx context.Context, rest *domain.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.restaurants[rest.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *rest
	r.restaurants[rest.ID] = &cp
	return nil
}

func (r *MemoryCatalogRepository) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rest, ok := r.restaurants[id]
	if !ok {
		return nil, domain.ErrRestaurantNotFound
	}
	cp := *rest
	return &cp, nil
}

func (r *MemoryCatalogRepository) ListRestaurants(ctx context.Context) ([]*domain.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Restaurant, 0, len(r.restaurants))
	for _, rest := range r.restaurants {
		cp := *rest
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryCatalogRepository) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *MemoryCatalogRepository) GetMenu(ctx context.Context, restaurantID string) ([]*domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.MenuItem
	for _, item := range r.items {
		if item.RestaurantID == restaurantID {
			cp := *item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryCatalogRepository) Reserve(ctx context.Context, restaurantID, itemID string, quantity int) (*domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok || item.RestaurantID != restaurantID {
		return nil, domain.ErrItemNotFound
	}
	if item.Stock < quantity {
		return nil, domain.ErrOutOfStock
	}
	item.Stock -= quantity
	cp := *item
	return &cp, nil
}

func (r *MemoryCatalogRepository) Release(ctx context.Context, restaurantID, itemID string, quantity int) (*domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok || item.RestaurantID != restaurantID {
		return nil, domain.ErrItemNotFound
	}
	item.Stock += quantity
	cp := *item
	return &cp, nil
}
