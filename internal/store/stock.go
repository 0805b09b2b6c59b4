package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/models"
)

// TryDecrement takes quantity units of (merchandiseID, size) out of stock in a
// single conditional UPDATE. It reports false, with no error, when the entry is
// missing or holds fewer than quantity units; the row count is the check, so
// concurrent callers serialize on the row lock and in_stock never goes negative.
func TryDecrement(ctx context.Context, q database.Querier, merchandiseID int64, size string, quantity int) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE stock_entries
		 SET in_stock = in_stock - $1,
		     updated_at = NOW()
		 WHERE merchandise_id = $2
		   AND size = $3
		   AND in_stock >= $1`,
		quantity, merchandiseID, size)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// AvailableStock returns the current in_stock for an entry, or 0 when the size is
// not stocked at all.
func AvailableStock(ctx context.Context, q database.Querier, merchandiseID int64, size string) (int, error) {
	var inStock int
	err := q.QueryRowContext(ctx,
		`SELECT in_stock FROM stock_entries WHERE merchandise_id = $1 AND size = $2`,
		merchandiseID, size).Scan(&inStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get available stock: %w", err)
	}
	return inStock, nil
}

func GetStock(ctx context.Context, q database.Querier, merchandiseID int64, size string) (*models.StockEntry, error) {
	entry := &models.StockEntry{}

	err := q.QueryRowContext(ctx,
		`SELECT merchandise_id, size, in_stock, updated_at
		 FROM stock_entries
		 WHERE merchandise_id = $1 AND size = $2`,
		merchandiseID, size).Scan(
		&entry.MerchandiseID,
		&entry.Size,
		&entry.InStock,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrStockEntryNotFound
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}

	return entry, nil
}

// SetStock overwrites the counter for an entry, creating it if needed. It is an
// administrative operation; order placement only ever uses TryDecrement.
func SetStock(ctx context.Context, q database.Querier, merchandiseID int64, size string, inStock int) (*models.StockEntry, error) {
	entry := &models.StockEntry{}

	err := q.QueryRowContext(ctx,
		`INSERT INTO stock_entries (merchandise_id, size, in_stock, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (merchandise_id, size)
		 DO UPDATE SET in_stock = EXCLUDED.in_stock, updated_at = NOW()
		 RETURNING merchandise_id, size, in_stock, updated_at`,
		merchandiseID, size, inStock).Scan(
		&entry.MerchandiseID,
		&entry.Size,
		&entry.InStock,
		&entry.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrMerchandiseNotFound
		}
		return nil, fmt.Errorf("set stock: %w", err)
	}

	return entry, nil
}
