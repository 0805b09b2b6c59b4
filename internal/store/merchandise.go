package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/models"
	"github.com/shopspring/decimal"
)

func CreateMerchandise(ctx context.Context, q database.Querier, name string, price decimal.Decimal) (*models.Merchandise, error) {
	m := &models.Merchandise{}

	query := `
		INSERT INTO merchandise (name, price, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, name, price, created_at, updated_at`

	err := q.QueryRowContext(ctx, query, name, price).Scan(
		&m.ID,
		&m.Name,
		&m.Price,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create merchandise: %w", err)
	}

	return m, nil
}

func GetMerchandise(ctx context.Context, q database.Querier, id int64) (*models.Merchandise, error) {
	m := &models.Merchandise{}

	query := `
		SELECT id, name, price, created_at, updated_at
		FROM merchandise
		WHERE id = $1`

	err := q.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.Price,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrMerchandiseNotFound
		}
		return nil, fmt.Errorf("get merchandise: %w", err)
	}

	return m, nil
}

func UpdateMerchandisePrice(ctx context.Context, q database.Querier, id int64, price decimal.Decimal) error {
	result, err := q.ExecContext(ctx,
		`UPDATE merchandise SET price = $1, updated_at = NOW() WHERE id = $2`,
		price, id)
	if err != nil {
		return fmt.Errorf("update merchandise price: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrMerchandiseNotFound
	}

	return nil
}

// Catalog answers price and name lookups from the merchandise table.
type Catalog struct {
	DB database.Querier
}

func (c *Catalog) GetUnitPrice(ctx context.Context, merchandiseID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := c.DB.QueryRowContext(ctx, `SELECT price FROM merchandise WHERE id = $1`, merchandiseID).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, database.ErrMerchandiseNotFound
		}
		return decimal.Zero, fmt.Errorf("get unit price: %w", err)
	}
	return price, nil
}

func (c *Catalog) GetDisplayName(ctx context.Context, merchandiseID int64) (string, error) {
	var name string
	err := c.DB.QueryRowContext(ctx, `SELECT name FROM merchandise WHERE id = $1`, merchandiseID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", database.ErrMerchandiseNotFound
		}
		return "", fmt.Errorf("get display name: %w", err)
	}
	return name, nil
}
