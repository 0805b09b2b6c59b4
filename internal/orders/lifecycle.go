package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/models"
	"github.com/safar/merch-store/internal/store"
)

// businessError passes typed business errors through and wraps everything else
// as a logged failure.
func (s *Service) businessError(op string, orderID int64, err error) error {
	switch KindOf(err) {
	case KindNotFound:
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	case KindValidation, KindStock, KindInvalidTransition:
		return err
	default:
		return s.failure(op, orderID, err)
	}
}

func (s *Service) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, err := store.GetOrderByID(ctx, s.db, id)
	if err != nil {
		return nil, s.businessError("get order", id, err)
	}
	return order, nil
}

type ListOrdersFilter struct {
	Status        string
	CustomerEmail string
	Cursor        string
	Limit         int
}

func (s *Service) ListOrders(ctx context.Context, filter ListOrdersFilter) (*store.CursorPage[models.Order], error) {
	storeFilter := store.ListOrdersFilter{
		CustomerEmail: filter.CustomerEmail,
		Cursor:        filter.Cursor,
		Limit:         filter.Limit,
	}
	if filter.Status != "" {
		status, err := ParseStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		storeFilter.Status = status
	}

	page, err := store.ListOrders(ctx, s.db, storeFilter)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCursor) {
			return nil, &ValidationError{Index: -1, Field: "cursor", Reason: "malformed"}
		}
		return nil, s.failure("list orders", 0, err)
	}
	return page, nil
}

// GetOrderStatus answers from the status cache when it can.
func (s *Service) GetOrderStatus(ctx context.Context, id int64) (models.OrderStatus, error) {
	status, ok, err := s.cache.GetStatus(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("order_id", id).Msg("read cached order status")
	}
	if ok && err == nil {
		return status, nil
	}

	status, err = store.GetOrderStatus(ctx, s.db, id)
	if err != nil {
		return "", s.businessError("get order status", id, err)
	}

	if err := s.cache.FillStatus(ctx, id, status); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", id).Msg("cache order status")
	}
	return status, nil
}

// CancelOrder moves a created or processing order to cancelled. Stock is not
// returned to the ledger. The order is re-read inside the transaction, so an
// error always means nothing was committed.
func (s *Service) CancelOrder(ctx context.Context, id int64) (*models.Order, error) {
	var (
		from  models.OrderStatus
		order *models.Order
	)

	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		status, err := store.LockOrderStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		from = status

		if !CanCancel(status) {
			return &InvalidTransitionError{OrderID: id, From: status, To: models.OrderStatusCancelled}
		}

		if err := store.UpdateOrderStatus(ctx, tx, id, models.OrderStatusCancelled); err != nil {
			return err
		}

		order, err = store.GetOrderByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, s.businessError("cancel order", id, err)
	}

	s.logger.Info().Int64("order_id", id).Str("from", string(from)).Msg("order cancelled")
	s.statusChanged(ctx, id, from, models.OrderStatusCancelled)

	return order, nil
}

// UpdateOrderStatus sets any known status. Administrative callers are trusted to
// follow the regular order path; leaving it is logged, not rejected.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	if !IsKnownStatus(status) {
		return nil, &ValidationError{Index: -1, Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	var (
		from  models.OrderStatus
		order *models.Order
	)
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current, err := store.LockOrderStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		from = current

		if err := store.UpdateOrderStatus(ctx, tx, id, status); err != nil {
			return err
		}

		order, err = store.GetOrderByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, s.businessError("update order status", id, err)
	}

	level := zerolog.InfoLevel
	if from != status && !CanTransition(from, status) {
		level = zerolog.WarnLevel
	}
	s.logger.WithLevel(level).Int64("order_id", id).Str("from", string(from)).Str("to", string(status)).Msg("order status updated")

	s.statusChanged(ctx, id, from, status)

	return order, nil
}

// DeleteOrder removes an order with its items and messages. It is meant for
// administrative cleanup only.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return store.DeleteOrder(ctx, tx, id)
	})
	if err != nil {
		return s.businessError("delete order", id, err)
	}

	s.evictStatus(ctx, id)
	s.logger.Info().Int64("order_id", id).Msg("order deleted")
	return nil
}

// AddOrderMessage appends a message to an order in any status.
func (s *Service) AddOrderMessage(ctx context.Context, id int64, content string, fromAdmin bool) (*models.OrderMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Index: -1, Field: "content", Reason: "is required"}
	}

	msg, err := store.AddOrderMessage(ctx, s.db, id, content, fromAdmin)
	if err != nil {
		return nil, s.businessError("add order message", id, err)
	}
	return msg, nil
}

func (s *Service) GetOrderMessages(ctx context.Context, id int64) ([]models.OrderMessage, error) {
	if _, err := store.GetOrderStatus(ctx, s.db, id); err != nil {
		return nil, s.businessError("get order messages", id, err)
	}

	messages, err := store.GetOrderMessages(ctx, s.db, id)
	if err != nil {
		return nil, s.failure("get order messages", id, err)
	}
	return messages, nil
}

// MarkMessagesRead marks the other party's messages on an order as read.
func (s *Service) MarkMessagesRead(ctx context.Context, id int64, readerIsAdmin bool) (int64, error) {
	if _, err := store.GetOrderStatus(ctx, s.db, id); err != nil {
		return 0, s.businessError("mark messages read", id, err)
	}

	n, err := store.MarkMessagesRead(ctx, s.db, id, readerIsAdmin)
	if err != nil {
		return 0, s.failure("mark messages read", id, err)
	}
	return n, nil
}
