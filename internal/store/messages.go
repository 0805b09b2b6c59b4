package store

import (
	"context"
	"fmt"

	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/models"
)

func AddOrderMessage(ctx context.Context, q database.Querier, orderID int64, content string, fromAdmin bool) (*models.OrderMessage, error) {
	msg := &models.OrderMessage{}

	err := q.QueryRowContext(ctx,
		`INSERT INTO order_messages (order_id, content, is_from_admin, is_read, created_at)
		 VALUES ($1, $2, $3, FALSE, NOW())
		 RETURNING id, order_id, content, created_at, is_from_admin, is_read`,
		orderID, content, fromAdmin).Scan(
		&msg.ID,
		&msg.OrderID,
		&msg.Content,
		&msg.Timestamp,
		&msg.IsFromAdmin,
		&msg.IsRead,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("create order message: %w", err)
	}

	return msg, nil
}

func GetOrderMessages(ctx context.Context, q database.Querier, orderID int64) ([]models.OrderMessage, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, content, created_at, is_from_admin, is_read
		 FROM order_messages
		 WHERE order_id = $1
		 ORDER BY created_at, id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order messages: %w", err)
	}
	defer rows.Close()

	messages := []models.OrderMessage{}
	for rows.Next() {
		var msg models.OrderMessage
		err := rows.Scan(
			&msg.ID,
			&msg.OrderID,
			&msg.Content,
			&msg.Timestamp,
			&msg.IsFromAdmin,
			&msg.IsRead,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

// MarkMessagesRead marks every unread message written by the other party as read
// and returns how many changed. An admin reader reads customer messages and vice versa.
func MarkMessagesRead(ctx context.Context, q database.Querier, orderID int64, readerIsAdmin bool) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE order_messages
		 SET is_read = TRUE
		 WHERE order_id = $1
		   AND is_from_admin = $2
		   AND NOT is_read`,
		orderID, !readerIsAdmin)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected, nil
}
