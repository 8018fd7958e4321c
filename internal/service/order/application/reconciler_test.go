package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/internal/service/order/domain"
	"dispatch/internal/service/order/infrastructure"

	"go.opentelemetry.io/otel"
)

func newTestReconciler(repo domain.OrderRepository, couriers *fakeCouriers, lock TickLock) *Reconciler {
	return NewReconciler(repo, couriers, &capturePublisher{}, otel.Tracer("test"), time.Minute, time.Second, lock)
}

func seedPendingOrders(t *testing.T, repo domain.OrderRepository, n int) []*domain.Order {
	t.Helper()
	orders := make([]*domain.Order, 0, n)
	for i := 0; i < n; i++ {
		o := domain.NewOrder("rest-1", "", "somewhere", []domain.LineItem{{ItemID: "item-1", Quantity: 1}})
		if err := repo.Save(context.Background(), o); err != nil {
			t.Fatalf("Save: %v", err)
		}
		orders = append(orders, o)
	}
	return orders
}

// TestTickAssignsPendingOrders 一轮对账把挤压的 created 订单派出去。
func TestTickAssignsPendingOrders(t *testing.T) {
	repo := infrastructure.NewMemoryOrderRepository()
	seedPendingOrders(t, repo, 2)
	couriers := &fakeCouriers{queue: []domain.CourierSnapshot{{ID: "courier-1"}, {ID: "courier-2"}}}
	r := newTestReconciler(repo, couriers, nil)

	r.tick(context.Background())

	pending, err := repo.FindUnassigned(context.Background())
	if err != nil {
		t.Fatalf("FindUnassigned: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after tick = %d, want 0", len(pending))
	}
}

// TestTickLeavesOrdersWhenPoolEmpty 骑手不够时多出来的订单留到下一轮，
// 不报错也不丢。
func TestTickLeavesOrdersWhenPoolEmpty(t *testing.T) {
	repo := infrastructure.NewMemoryOrderRepository()
	seedPendingOrders(t, repo, 3)
	couriers := &fakeCouriers{queue: []domain.CourierSnapshot{{ID: "courier-1"}}}
	r := newTestReconciler(repo, couriers, nil)

	r.tick(context.Background())

	pending, _ := repo.FindUnassigned(context.Background())
	if len(pending) != 2 {
		t.Fatalf("pending after tick = %d, want 2", len(pending))
	}

	// 骑手补充后，下一轮把剩下的派完
	couriers.mu.Lock()
	couriers.queue = []domain.CourierSnapshot{{ID: "courier-2"}, {ID: "courier-3"}}
	couriers.mu.Unlock()
	r.tick(context.Background())

	pending, _ = repo.FindUnassigned(context.Background())
	if len(pending) != 0 {
		t.Fatalf("pending after second tick = %d, want 0", len(pending))
	}
}

// TestTickFreesCourierWhenOrderAlreadyAssigned 条件写失败时骑手要归还。
func TestTickFreesCourierWhenOrderAlreadyAssigned(t *testing.T) {
	inner := infrastructure.NewMemoryOrderRepository()
	orders := seedPendingOrders(t, inner, 1)
	repo := &rejectingRepo{OrderRepository: inner}
	couriers := &fakeCouriers{queue: []domain.CourierSnapshot{{ID: "courier-1"}}}
	r := newTestReconciler(repo, couriers, nil)

	r.tick(context.Background())

	if len(couriers.freed) != 1 || couriers.freed[0] != "courier-1" {
		t.Fatalf("freed = %v, want [courier-1]", couriers.freed)
	}
	// 订单本身保持原样
	got, _ := inner.FindByID(context.Background(), orders[0].ID)
	if got.State != domain.StateCreated {
		t.Fatalf("order state = %s, want created", got.State)
	}
}

// TestTickIsolatesPerOrderFailures 一单失败不影响同轮其余订单。
func TestTickIsolatesPerOrderFailures(t *testing.T) {
	repo := infrastructure.NewMemoryOrderRepository()
	seedPendingOrders(t, repo, 3)
	couriers := &flakyCouriers{
		fakeCouriers: fakeCouriers{queue: []domain.CourierSnapshot{{ID: "courier-1"}, {ID: "courier-2"}}},
		failOnCall:   2,
	}
	r := NewReconciler(repo, couriers, &capturePublisher{}, otel.Tracer("test"), time.Minute, time.Second, nil)

	r.tick(context.Background())

	pending, _ := repo.FindUnassigned(context.Background())
	if len(pending) != 1 {
		t.Fatalf("pending after tick = %d, want 1 (only the failed one)", len(pending))
	}
}

// flakyCouriers 让第 failOnCall 次 AssignNext 报错。
type flakyCouriers struct {
	fakeCouriers
	calls      int
	failOnCall int
}

func (f *flakyCouriers) AssignNext(ctx context.Context) (*domain.CourierSnapshot, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls == f.failOnCall
	f.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset")
	}
	return f.fakeCouriers.AssignNext(ctx)
}

// TestTickSkippedWhenLockHeld 抢不到分布式锁的副本什么都不做。
func TestTickSkippedWhenLockHeld(t *testing.T) {
	repo := infrastructure.NewMemoryOrderRepository()
	seedPendingOrders(t, repo, 1)
	couriers := &fakeCouriers{queue: []domain.CourierSnapshot{{ID: "courier-1"}}}
	lock := &fakeLock{held: true}
	r := newTestReconciler(repo, couriers, lock)

	r.tick(context.Background())

	pending, _ := repo.FindUnassigned(context.Background())
	if len(pending) != 1 {
		t.Fatal("tick must be a no-op when the lock is held elsewhere")
	}

	// 锁空出来后正常工作，且用完要释放
	lock.held = false
	r.tick(context.Background())
	pending, _ = repo.FindUnassigned(context.Background())
	if len(pending) != 0 {
		t.Fatalf("pending after unlocked tick = %d, want 0", len(pending))
	}
	if !lock.released {
		t.Fatal("lock must be released after the tick")
	}
}

type fakeLock struct {
	held     bool
	released bool
}

func (l *fakeLock) TryAcquire() (bool, error) { return !l.held, nil }
func (l *fakeLock) Release() error            { l.released = true; return nil }

// TestStartStopsOnContextCancel 取消 ctx 后 Wait 必须返回。
func TestStartStopsOnContextCancel(t *testing.T) {
	repo := infrastructure.NewMemoryOrderRepository()
	r := NewReconciler(repo, &fakeCouriers{}, &capturePublisher{}, otel.Tracer("test"), 10*time.Millisecond, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after context cancellation")
	}
}
