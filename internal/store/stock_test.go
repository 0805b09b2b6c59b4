package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/database/dbtest"
	"github.com/shopspring/decimal"
)

func seedMerchandise(t *testing.T, db *sql.DB, name string, price string) int64 {
	t.Helper()
	m, err := CreateMerchandise(context.Background(), db, name, decimal.RequireFromString(price))
	if err != nil {
		t.Fatalf("Create merchandise: %v", err)
	}
	return m.ID
}

func TestTryDecrement(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()

	id := seedMerchandise(t, db, "Tee", "10.00")
	if _, err := SetStock(ctx, db, id, "M", 5); err != nil {
		t.Fatalf("Set stock: %v", err)
	}

	ok, err := TryDecrement(ctx, db, id, "M", 5)
	if err != nil || !ok {
		t.Fatalf("Expected exact decrement to succeed, got ok=%v err=%v", ok, err)
	}

	ok, err = TryDecrement(ctx, db, id, "M", 1)
	if err != nil {
		t.Fatalf("Try decrement: %v", err)
	}
	if ok {
		t.Error("Expected decrement below zero to be refused")
	}

	ok, err = TryDecrement(ctx, db, id, "XL", 1)
	if err != nil {
		t.Fatalf("Try decrement missing size: %v", err)
	}
	if ok {
		t.Error("Expected decrement of missing entry to be refused")
	}

	entry, err := GetStock(ctx, db, id, "M")
	if err != nil {
		t.Fatalf("Get stock: %v", err)
	}
	if entry.InStock != 0 {
		t.Errorf("Expected stock 0, got %d", entry.InStock)
	}
}

func TestConcurrentTryDecrement(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()

	id := seedMerchandise(t, db, "Hoodie", "40.00")
	if _, err := SetStock(ctx, db, id, "L", 10); err != nil {
		t.Fatalf("Set stock: %v", err)
	}

	concurrency := 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var took bool
			err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
				ok, err := TryDecrement(ctx, tx, id, "L", 3)
				took = ok
				return err
			})
			if err != nil {
				t.Errorf("Transaction failed: %v", err)
				return
			}
			if took {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 3 {
		t.Errorf("Expected 3 successful decrements, got %d", successes)
	}

	available, err := AvailableStock(ctx, db, id, "L")
	if err != nil {
		t.Fatalf("Available stock: %v", err)
	}
	if available != 1 {
		t.Errorf("Expected stock 1, got %d", available)
	}
}

func TestSetStock(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()

	id := seedMerchandise(t, db, "Cap", "15.00")

	if _, err := SetStock(ctx, db, id, "OS", 3); err != nil {
		t.Fatalf("Set stock: %v", err)
	}
	entry, err := SetStock(ctx, db, id, "OS", 7)
	if err != nil {
		t.Fatalf("Overwrite stock: %v", err)
	}
	if entry.InStock != 7 {
		t.Errorf("Expected stock 7, got %d", entry.InStock)
	}

	if _, err := SetStock(ctx, db, id, "OS", -1); err == nil {
		t.Error("Expected negative stock to violate the check constraint")
	}

	if _, err := SetStock(ctx, db, 987654, "OS", 1); !errors.Is(err, database.ErrMerchandiseNotFound) {
		t.Errorf("Expected ErrMerchandiseNotFound, got %v", err)
	}

	if _, err := GetStock(ctx, db, id, "XXL"); !errors.Is(err, database.ErrStockEntryNotFound) {
		t.Errorf("Expected ErrStockEntryNotFound, got %v", err)
	}

	available, err := AvailableStock(ctx, db, id, "XXL")
	if err != nil {
		t.Fatalf("Available stock: %v", err)
	}
	if available != 0 {
		t.Errorf("Expected 0 for missing entry, got %d", available)
	}
}

func TestCatalog(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()

	id := seedMerchandise(t, db, "Sticker Pack", "2.50")
	catalog := &Catalog{DB: db}

	price, err := catalog.GetUnitPrice(ctx, id)
	if err != nil {
		t.Fatalf("Get unit price: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("2.50")) {
		t.Errorf("Expected price 2.50, got %s", price)
	}

	name, err := catalog.GetDisplayName(ctx, id)
	if err != nil {
		t.Fatalf("Get display name: %v", err)
	}
	if name != "Sticker Pack" {
		t.Errorf("Expected name Sticker Pack, got %q", name)
	}

	if _, err := catalog.GetUnitPrice(ctx, 987654); !errors.Is(err, database.ErrMerchandiseNotFound) {
		t.Errorf("Expected ErrMerchandiseNotFound, got %v", err)
	}
	if err := UpdateMerchandisePrice(ctx, db, 987654, decimal.NewFromInt(1)); !errors.Is(err, database.ErrMerchandiseNotFound) {
		t.Errorf("Expected ErrMerchandiseNotFound, got %v", err)
	}
}
