package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dispatch/internal/service/catalog/domain"
)

func newSeededRepo(t *testing.T, stock int) *MemoryCatalogRepository {
	t.Helper()
	repo := NewMemoryCatalogRepository()
	ctx := context.Background()
	if err := repo.CreateRestaurant(ctx, &domain.Restaurant{ID: "rest-1", Name: "La Parilla"}); err != nil {
		t.Fatalf("CreateRestaurant: %v", err)
	}
	if err := repo.CreateMenuItem(ctx, &domain.MenuItem{ID: "item-1", RestaurantID: "rest-1", Name: "Milanesa", Price: 12.5, Stock: stock}); err != nil {
		t.Fatalf("CreateMenuItem: %v", err)
	}
	return repo
}

func TestReserveDecrementsStock(t *testing.T) {
	repo := newSeededRepo(t, 5)
	ctx := context.Background()

	item, err := repo.Reserve(ctx, "rest-1", "item-1", 2)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if item.Stock != 3 {
		t.Fatalf("stock after reserve = %d, want 3", item.Stock)
	}
}

func TestReserveRejectsWhenStockShort(t *testing.T) {
	repo := newSeededRepo(t, 1)
	ctx := context.Background()

	if _, err := repo.Reserve(ctx, "rest-1", "item-1", 2); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("Reserve with short stock: err = %v, want ErrOutOfStock", err)
	}
	// 被拒绝的预留不能动库存
	menu, err := repo.GetMenu(ctx, "rest-1")
	if err != nil {
		t.Fatalf("GetMenu: %v", err)
	}
	if menu[0].Stock != 1 {
		t.Fatalf("stock after rejected reserve = %d, want 1", menu[0].Stock)
	}
}

func TestReserveUnknownItem(t *testing.T) {
	repo := newSeededRepo(t, 5)
	ctx := context.Background()

	if _, err := repo.Reserve(ctx, "rest-1", "item-404", 1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("Reserve unknown item: err = %v, want ErrItemNotFound", err)
	}
	// 条目属于别的餐厅也视为不存在
	if _, err := repo.Reserve(ctx, "rest-2", "item-1", 1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("Reserve with wrong restaurant: err = %v, want ErrItemNotFound", err)
	}
}

// TestConcurrentReserveNeverOversells 用远多于库存的并发预留冲击同一个条目，
// 成功的预留数不能超过初始库存。
func TestConcurrentReserveNeverOversells(t *testing.T) {
	const initialStock = 10
	const attempts = 50

	repo := newSeededRepo(t, initialStock)
	ctx := context.Background()

	var wg sync.WaitGroup
	var succeeded, rejected int64
	var mu sync.Mutex
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Reserve(ctx, "rest-1", "item-1", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrOutOfStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != initialStock {
		t.Fatalf("succeeded = %d, want %d", succeeded, initialStock)
	}
	if rejected != attempts-initialStock {
		t.Fatalf("rejected = %d, want %d", rejected, attempts-initialStock)
	}
	menu, err := repo.GetMenu(ctx, "rest-1")
	if err != nil {
		t.Fatalf("GetMenu: %v", err)
	}
	if menu[0].Stock != 0 {
		t.Fatalf("final stock = %d, want 0", menu[0].Stock)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	repo := newSeededRepo(t, 5)
	ctx := context.Background()

	if _, err := repo.Reserve(ctx, "rest-1", "item-1", 3); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	item, err := repo.Release(ctx, "rest-1", "item-1", 3)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if item.Stock != 5 {
		t.Fatalf("stock after release = %d, want 5", item.Stock)
	}
}

func TestCreateDuplicates(t *testing.T) {
	repo := newSeededRepo(t, 5)
	ctx := context.Background()

	if err := repo.CreateRestaurant(ctx, &domain.Restaurant{ID: "rest-1", Name: "dup"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate restaurant: err = %v, want ErrAlreadyExists", err)
	}
	if err := repo.CreateMenuItem(ctx, &domain.MenuItem{ID: "item-1", RestaurantID: "rest-1", Name: "dup"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate item: err = %v, want ErrAlreadyExists", err)
	}
}

func TestGetMenuFiltersByRestaurant(t *testing.T) {
	repo := newSeededRepo(t, 5)
	ctx := context.Background()
	if err := repo.CreateRestaurant(ctx, &domain.Restaurant{ID: "rest-2", Name: "Sushi-Ya"}); err != nil {
		t.Fatalf("CreateRestaurant: %v", err)
	}
	if err := repo.CreateMenuItem(ctx, &domain.MenuItem{ID: "item-2", RestaurantID: "rest-2", Name: "Nigiri", Stock: 3}); err != nil {
		t.Fatalf("CreateMenuItem: %v", err)
	}

	menu, err := repo.GetMenu(ctx, "rest-2")
	if err != nil {
		t.Fatalf("GetMenu: %v", err)
	}
	if len(menu) != 1 || menu[0].ID != "item-2" {
		t.Fatalf("GetMenu(rest-2) = %+v, want only item-2", menu)
	}
}
