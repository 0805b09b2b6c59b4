package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/models"
	"github.com/shopspring/decimal"
)

var ErrInvalidCursor = errors.New("invalid cursor")

type ListOrdersFilter struct {
	Status        models.OrderStatus
	CustomerEmail string
	Cursor        string
	Limit         int
}

const orderColumns = `id, order_date, total_amount, customer_name, customer_email, customer_address, status, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.OrderDate,
		&order.TotalAmount,
		&order.Name,
		&order.Email,
		&order.Address,
		&order.Status,
		&order.UpdatedAt,
	)
}

// CreateOrder inserts the order row in status created. The total is fixed by the
// caller; order_date comes from the database clock.
func CreateOrder(ctx context.Context, q database.Querier, meta models.CustomerMeta, total decimal.Decimal) (*models.Order, error) {
	order := &models.Order{}

	query := `
		INSERT INTO orders (order_date, total_amount, customer_name, customer_email, customer_address, status, updated_at)
		VALUES (NOW(), $1, $2, $3, $4, $5, NOW())
		RETURNING ` + orderColumns

	err := scanOrder(q.QueryRowContext(ctx, query,
		total, meta.Name, meta.Email, meta.Address, models.OrderStatusCreated), order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	order.Items = []models.OrderItem{}
	return order, nil
}

func AddOrderItem(ctx context.Context, q database.Querier, orderID int64, item models.OrderItem) (*models.OrderItem, error) {
	created := &models.OrderItem{}

	err := q.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, merchandise_id, size, quantity, price)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, order_id, merchandise_id, size, quantity, price`,
		orderID, item.MerchandiseID, item.Size, item.Quantity, item.Price).Scan(
		&created.ID,
		&created.OrderID,
		&created.MerchandiseID,
		&created.Size,
		&created.Quantity,
		&created.Price,
	)
	if err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}

	return created, nil
}

func GetOrderByID(ctx context.Context, q database.Querier, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	if err := scanOrder(q.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []models.Order{*order}
	if err := hydrateItems(ctx, q, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

func ListOrders(ctx context.Context, q database.Querier, filter ListOrdersFilter) (*CursorPage[models.Order], error) {
	cursorData, err := DecodeCursor(filter.Cursor)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(filter.Limit)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR customer_email = $2)
		  AND (order_date, id) < ($3, $4)
		ORDER BY order_date DESC, id DESC
		LIMIT $5`

	rows, err := q.QueryContext(ctx, query,
		string(filter.Status), filter.CustomerEmail, cursorData.OrderDate, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	if err := hydrateItems(ctx, q, orders); err != nil {
		return nil, err
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			OrderDate: lastOrder.OrderDate,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// hydrateItems loads the line items of every order in one query.
func hydrateItems(ctx context.Context, q database.Querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, merchandise_id, size, quantity, price
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.MerchandiseID,
			&item.Size,
			&item.Quantity,
			&item.Price,
		)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		i := byID[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

func GetOrderStatus(ctx context.Context, q database.Querier, id int64) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := q.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", database.ErrOrderNotFound
		}
		return "", fmt.Errorf("get order status: %w", err)
	}
	return status, nil
}

// LockOrderStatus reads the status and holds the row lock until tx ends.
func LockOrderStatus(ctx context.Context, tx *sql.Tx, id int64) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", database.ErrOrderNotFound
		}
		return "", fmt.Errorf("lock order: %w", err)
	}
	return status, nil
}

func UpdateOrderStatus(ctx context.Context, q database.Querier, id int64, status models.OrderStatus) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

// DeleteOrder removes an order with its messages and items. Run it inside a
// transaction so the cascade is all-or-nothing.
func DeleteOrder(ctx context.Context, q database.Querier, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM order_messages WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete order messages: %w", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}
