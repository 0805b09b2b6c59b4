// Package events publishes committed order changes to Kafka.
package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/safar/merch-store/internal/models"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemPayload struct {
	MerchandiseID int64           `json:"merchandise_id"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     int64           `json:"order_id"`
	OrderDate   time.Time       `json:"order_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Email       string          `json:"customer_email"`
	Items       []ItemPayload   `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID int64              `json:"order_id"`
	From    models.OrderStatus `json:"from"`
	To      models.OrderStatus `json:"to"`
}

// PartitionKey keeps every event of one order on the same partition, in order.
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}

func newOrderCreatedPayload(order *models.Order) OrderCreatedPayload {
	items := make([]ItemPayload, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, ItemPayload{
			MerchandiseID: it.MerchandiseID,
			Size:          it.Size,
			Quantity:      it.Quantity,
			Price:         it.Price,
		})
	}
	return OrderCreatedPayload{
		OrderID:     order.ID,
		OrderDate:   order.OrderDate,
		TotalAmount: order.TotalAmount,
		Email:       order.Email,
		Items:       items,
	}
}
