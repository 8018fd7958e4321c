// internal/service/order/infrastructure/memory_repository.go
package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"dispatch/internal/service/order/domain"
)

// MemoryOrderRepository 是订单台账的进程内实现，用于本地开发和测试。
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*domain.Order)}
}

func (r *MemoryOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *MemoryOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryOrderRepository) AttachCourier(ctx context.Context, orderID string, snapshot domain.CourierSnapshot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	// 条件写：已指派或已完成时 no-op
	return o.AttachCourier(snapshot), nil
}

func (r *MemoryOrderRepository) FindUnassigned(ctx context.Context) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.Unassigned() {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryOrderRepository) CountByCourier(ctx context.Context, month time.Time) ([]domain.MonthlyCount, error) {
	return r.count(month, func(o *domain.Order) (string, bool) {
		if o.Courier == nil {
			return "", false
		}
		return o.Courier.ID, true
	})
}

func (r *MemoryOrderRepository) CountByRestaurant(ctx context.Context, month time.Time) ([]domain.MonthlyCount, error) {
	return r.count(month, func(o *domain.Order) (string, bool) {
		return o.RestaurantID, true
	})
}

func (r *MemoryOrderRepository) count(month time.Time, keyOf func(*domain.Order) (string, bool)) ([]domain.MonthlyCount, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	end := start.AddDate(0, 1, 0)

	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, o := range r.orders {
		if o.CreatedAt.Before(start) || !o.CreatedAt.Before(end) {
			continue
		}
		if key, ok := keyOf(o); ok {
			counts[key]++
		}
	}
	out := make([]domain.MonthlyCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, domain.MonthlyCount{Key: key, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	if o.Courier != nil {
		c := *o.Courier
		cp.Courier = &c
	}
	return &cp
}
