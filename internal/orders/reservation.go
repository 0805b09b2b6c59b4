package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/models"
	"github.com/safar/merch-store/internal/store"
	"github.com/shopspring/decimal"
)

// Limits match the column types in migrations/0002_create_orders.up.sql.
const (
	MaxLineQuantity     = 10000
	maxSizeLength       = 16
	maxCustomerFieldLen = 255
)

var maxOrderTotal = decimal.RequireFromString("9999999999.99")

// LineItem is one requested (merchandise, size, quantity) entry of a cart.
type LineItem struct {
	MerchandiseID int64  `json:"merchandise_id"`
	Size          string `json:"size"`
	Quantity      int    `json:"quantity"`
}

// PlaceOrder creates an order for lines and takes their quantities out of stock
// in one transaction. Lines are handled in submission order; the first one that
// cannot be satisfied aborts everything and comes back as a *StockError.
// Malformed carts return a *ValidationError without touching the database.
func (s *Service) PlaceOrder(ctx context.Context, meta models.CustomerMeta, lines []LineItem) (*models.Order, error) {
	if err := validateCustomer(meta); err != nil {
		return nil, err
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	items, total, err := s.priceLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var err error
		order, err = reserve(ctx, tx, meta, total, items)
		return err
	})
	if err != nil {
		var stockErr *StockError
		if errors.As(err, &stockErr) {
			stockErr.Name = s.displayName(ctx, stockErr.MerchandiseID)
			s.logger.Info().
				Int64("merchandise_id", stockErr.MerchandiseID).
				Str("size", stockErr.Size).
				Int("requested", stockErr.Requested).
				Int("available", stockErr.Available).
				Msg("order rejected: insufficient stock")
			return nil, stockErr
		}
		return nil, s.failure("place order", 0, err)
	}

	s.logger.Info().
		Int64("order_id", order.ID).
		Int("items", len(order.Items)).
		Str("total", order.TotalAmount.String()).
		Msg("order placed")

	if err := s.events.OrderCreated(ctx, order); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", order.ID).Msg("publish order created")
	}

	return order, nil
}

func validateCustomer(meta models.CustomerMeta) error {
	for _, f := range []struct{ name, value string }{
		{"customer_name", meta.Name},
		{"customer_email", meta.Email},
	} {
		if utf8.RuneCountInString(f.value) > maxCustomerFieldLen {
			return &ValidationError{Index: -1, Field: f.name, Reason: fmt.Sprintf("must be at most %d characters", maxCustomerFieldLen)}
		}
	}
	return nil
}

func validateLines(lines []LineItem) error {
	if len(lines) == 0 {
		return &ValidationError{Index: -1, Field: "items", Reason: "must contain at least one item"}
	}

	for i, line := range lines {
		if line.MerchandiseID <= 0 {
			return &ValidationError{Index: i, Field: "merchandise_id", Reason: "must be positive"}
		}
		if strings.TrimSpace(line.Size) == "" {
			return &ValidationError{Index: i, Field: "size", Reason: "is required"}
		}
		if utf8.RuneCountInString(line.Size) > maxSizeLength {
			return &ValidationError{Index: i, Field: "size", Reason: fmt.Sprintf("must be at most %d characters", maxSizeLength)}
		}
		if line.Quantity <= 0 {
			return &ValidationError{Index: i, Field: "quantity", Reason: "must be positive"}
		}
		if line.Quantity > MaxLineQuantity {
			return &ValidationError{Index: i, Field: "quantity", Reason: fmt.Sprintf("must be at most %d", MaxLineQuantity)}
		}
	}

	return nil
}

// priceLines snapshots the current unit price of every line and sums the total.
func (s *Service) priceLines(ctx context.Context, lines []LineItem) ([]models.OrderItem, decimal.Decimal, error) {
	prices := make(map[int64]decimal.Decimal, len(lines))
	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero

	for i, line := range lines {
		price, ok := prices[line.MerchandiseID]
		if !ok {
			var err error
			price, err = s.catalog.GetUnitPrice(ctx, line.MerchandiseID)
			if err != nil {
				if errors.Is(err, database.ErrMerchandiseNotFound) {
					return nil, decimal.Zero, &ValidationError{Index: i, Field: "merchandise_id", Reason: "unknown merchandise"}
				}
				return nil, decimal.Zero, s.failure("price order", 0, err)
			}
			prices[line.MerchandiseID] = price
		}

		item := models.OrderItem{
			MerchandiseID: line.MerchandiseID,
			Size:          line.Size,
			Quantity:      line.Quantity,
			Price:         price,
		}
		items = append(items, item)
		total = total.Add(item.Subtotal())
		if total.GreaterThan(maxOrderTotal) {
			return nil, decimal.Zero, &ValidationError{Index: i, Field: "quantity", Reason: "order total exceeds the maximum"}
		}
	}

	return items, total, nil
}

func reserve(ctx context.Context, tx *sql.Tx, meta models.CustomerMeta, total decimal.Decimal, items []models.OrderItem) (*models.Order, error) {
	order, err := store.CreateOrder(ctx, tx, meta, total)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		created, err := store.AddOrderItem(ctx, tx, order.ID, item)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, *created)
	}

	// taken counts what this cart already decremented per entry, so a repeated
	// (merchandise, size) pair reports cart-wide numbers.
	type entry struct {
		merchandiseID int64
		size          string
	}
	taken := make(map[entry]int, len(items))

	for _, item := range items {
		key := entry{item.MerchandiseID, item.Size}

		ok, err := store.TryDecrement(ctx, tx, item.MerchandiseID, item.Size, item.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			left, err := store.AvailableStock(ctx, tx, item.MerchandiseID, item.Size)
			if err != nil {
				return nil, err
			}
			return nil, &StockError{
				MerchandiseID: item.MerchandiseID,
				Size:          item.Size,
				Requested:     taken[key] + item.Quantity,
				Available:     left + taken[key],
			}
		}
		taken[key] += item.Quantity
	}

	return order, nil
}

func (s *Service) displayName(ctx context.Context, merchandiseID int64) string {
	name, err := s.catalog.GetDisplayName(ctx, merchandiseID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("merchandise_id", merchandiseID).Msg("resolve merchandise name")
		return ""
	}
	return name
}
