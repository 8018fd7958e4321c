package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dispatch/internal/service/courier/domain"
)

func newPool(t *testing.T, n int) *MemoryCourierRepository {
	t.Helper()
	repo := NewMemoryCourierRepository()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		c := &domain.Courier{ID: string(rune('a' + i)), Name: "courier"}
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	return repo
}

func TestAssignNextPicksAvailable(t *testing.T) {
	repo := newPool(t, 2)
	ctx := context.Background()

	c, err := repo.AssignNext(ctx)
	if err != nil {
		t.Fatalf("AssignNext: %v", err)
	}
	if c == nil {
		t.Fatal("AssignNext returned nil with available couriers")
	}
	if c.Status != domain.StatusBusy {
		t.Fatalf("assigned courier status = %s, want busy", c.Status)
	}
}

func TestAssignNextEmptyPoolIsNotAnError(t *testing.T) {
	repo := newPool(t, 1)
	ctx := context.Background()

	if _, err := repo.AssignNext(ctx); err != nil {
		t.Fatalf("AssignNext: %v", err)
	}
	c, err := repo.AssignNext(ctx)
	if err != nil {
		t.Fatalf("AssignNext on empty pool: err = %v, want nil", err)
	}
	if c != nil {
		t.Fatalf("AssignNext on empty pool = %+v, want nil", c)
	}
}

// TestConcurrentAssignNextNoDoubleAssign 校验并发申请拿到的骑手互不相同：
// K 名可用骑手面对 J 个并发调用，恰好 K 个成功且 ID 两两不同。
func TestConcurrentAssignNextNoDoubleAssign(t *testing.T) {
	const poolSize = 5
	const callers = 20

	repo := newPool(t, poolSize)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	assigned := make(map[string]int)
	var none int
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := repo.AssignNext(ctx)
			if err != nil {
				t.Errorf("AssignNext: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if c == nil {
				none++
				return
			}
			assigned[c.ID]++
		}()
	}
	wg.Wait()

	if len(assigned) != poolSize {
		t.Fatalf("distinct couriers assigned = %d, want %d", len(assigned), poolSize)
	}
	for id, n := range assigned {
		if n != 1 {
			t.Fatalf("courier %s assigned %d times", id, n)
		}
	}
	if none != callers-poolSize {
		t.Fatalf("callers told none-available = %d, want %d", none, callers-poolSize)
	}
}

func TestAssignBusyCourier(t *testing.T) {
	repo := newPool(t, 1)
	ctx := context.Background()

	if _, err := repo.Assign(ctx, "a"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := repo.Assign(ctx, "a"); !errors.Is(err, domain.ErrCourierBusy) {
		t.Fatalf("Assign busy courier: err = %v, want ErrCourierBusy", err)
	}
	if _, err := repo.Assign(ctx, "zzz"); !errors.Is(err, domain.ErrCourierNotFound) {
		t.Fatalf("Assign unknown courier: err = %v, want ErrCourierNotFound", err)
	}
}

func TestFreeIsIdempotent(t *testing.T) {
	repo := newPool(t, 1)
	ctx := context.Background()

	if _, err := repo.Assign(ctx, "a"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	for i := 0; i < 2; i++ {
		c, err := repo.Free(ctx, "a")
		if err != nil {
			t.Fatalf("Free #%d: %v", i+1, err)
		}
		if c.Status != domain.StatusAvailable {
			t.Fatalf("Free #%d: status = %s, want available", i+1, c.Status)
		}
	}
	// 释放后可以再次被指派
	c, err := repo.AssignNext(ctx)
	if err != nil || c == nil || c.ID != "a" {
		t.Fatalf("AssignNext after free = (%+v, %v), want courier a", c, err)
	}
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	repo := NewMemoryCourierRepository()
	ctx := context.Background()
	defaults := []*domain.Courier{{ID: "c1", Name: "one"}, {ID: "c2", Name: "two"}}

	if err := repo.Seed(ctx, defaults); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("pool size after seed = %d, want 2", len(list))
	}
	if list[0].Status != domain.StatusAvailable {
		t.Fatalf("seeded courier status = %s, want available", list[0].Status)
	}

	// 已有数据时 Seed 是 no-op
	if err := repo.Seed(ctx, []*domain.Courier{{ID: "c3"}}); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	list, _ = repo.List(ctx)
	if len(list) != 2 {
		t.Fatalf("pool size after second seed = %d, want 2", len(list))
	}
}
