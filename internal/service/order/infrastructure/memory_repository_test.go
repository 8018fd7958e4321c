package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"dispatch/internal/service/order/domain"
)

func TestSaveAndFindByID(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	o := domain.NewOrder("rest-1", "a@b.com", "somewhere", []domain.LineItem{{ItemID: "item-1", Quantity: 2}})
	if err := repo.Save(ctx, o); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.FindByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.RestaurantID != "rest-1" || len(got.Items) != 1 {
		t.Fatalf("FindByID = %+v", got)
	}

	// 返回的是快照，改动不能影响台账
	got.Items[0].Quantity = 99
	again, _ := repo.FindByID(ctx, o.ID)
	if again.Items[0].Quantity != 2 {
		t.Fatalf("ledger mutated through returned snapshot: %+v", again.Items[0])
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

// TestAttachCourierExactlyOnce 并发地往同一单上挂骑手，只能有一个成功。
func TestAttachCourierExactlyOnce(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	o := domain.NewOrder("rest-1", "", "somewhere", nil)
	if err := repo.Save(ctx, o); err != nil {
		t.Fatalf("Save: %v", err)
	}

	const racers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins int
	for i := 0; i < racers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			attached, err := repo.AttachCourier(ctx, o.ID, domain.CourierSnapshot{ID: fmt.Sprintf("courier-%d", i)})
			if err != nil {
				t.Errorf("AttachCourier: %v", err)
				return
			}
			if attached {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	got, _ := repo.FindByID(ctx, o.ID)
	if got.State != domain.StateAssigned || got.Courier == nil {
		t.Fatalf("order after race: state=%s courier=%+v", got.State, got.Courier)
	}
}

func TestAttachCourierUnknownOrder(t *testing.T) {
	repo := NewMemoryOrderRepository()
	if _, err := repo.AttachCourier(context.Background(), "missing", domain.CourierSnapshot{ID: "c"}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestFindUnassignedSkipsAssignedAndCompleted(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	pending := domain.NewOrder("rest-1", "", "somewhere", nil)
	assigned := domain.NewOrder("rest-1", "", "somewhere", nil)
	assigned.AttachCourier(domain.CourierSnapshot{ID: "courier-1"})
	completed := domain.NewOrder("rest-1", "", "somewhere", nil)
	completed.Complete()

	for _, o := range []*domain.Order{pending, assigned, completed} {
		if err := repo.Save(ctx, o); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := repo.FindUnassigned(ctx)
	if err != nil {
		t.Fatalf("FindUnassigned: %v", err)
	}
	if len(got) != 1 || got[0].ID != pending.ID {
		t.Fatalf("FindUnassigned = %+v, want only the pending order", got)
	}
}
