// internal/service/courier/infrastructure/memory_repository.go
package infrastructure

import (
	"context"
	"sort"
	"sync"

	"dispatch/internal/service/courier/domain"
)

// MemoryCourierRepository 是 CourierRepository 的进程内实现。
// 一把互斥锁覆盖“挑选+翻转状态”的整个临界区，
// 等价于 SKIP LOCKED 提供的“每个调用方拿到不同骑手”语义。
type MemoryCourierRepository struct {
	mu       sync.Mutex
	couriers map[string]*domain.Courier
}

func NewMemoryCourierRepository() *MemoryCourierRepository {
	return &MemoryCourierRepository{couriers: make(map[string]*domain.Courier)}
}

// Seed 在池为空时写入默认骑手。
func (r *MemoryCourierRepository) Seed(ctx context.Context, defaults []*domain.Courier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.couriers) > 0 {
		return nil
	}
	for _, c := range defaults {
		cp := *c
		if cp.Status == "" {
			cp.Status = domain.StatusAvailable
		}
		r.couriers[cp.ID] = &cp
	}
	return nil
}

func (r *MemoryCourierRepository) Create(ctx context.Context, c *domain.Courier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.couriers[c.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *c
	if cp.Status == "" {
		cp.Status = domain.StatusAvailable
	}
	r.couriers[c.ID] = &cp
	return nil
}

func (r *MemoryCourierRepository) Get(ctx context.Context, id string) (*domain.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.couriers[id]
	if !ok {
		return nil, domain.ErrCourierNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryCourierRepository) List(ctx context.Context) ([]*domain.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Courier, 0, len(r.couriers))
	for _, c := range r.couriers {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryCourierRepository) AssignNext(ctx context.Context) (*domain.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.couriers))
	for id := range r.couriers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := r.couriers[id]
		if c.Status == domain.StatusAvailable {
			c.Status = domain.StatusBusy
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryCourierRepository) Assign(ctx context.Context, id string) (*domain.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.couriers[id]
	if !ok {
		return nil, domain.ErrCourierNotFound
	}
	if c.Status == domain.StatusBusy {
		return nil, domain.ErrCourierBusy
	}
	c.Status = domain.StatusBusy
	cp := *c
	return &cp, nil
}

func (r *MemoryCourierRepository) Free(ctx context.Context, id string) (*domain.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.couriers[id]
	if !ok {
		return nil, domain.ErrCourierNotFound
	}
	c.Status = domain.StatusAvailable
	cp := *c
	return &cp, nil
}
