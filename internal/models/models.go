package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// CustomerMeta is validated by the request layer before it reaches the order subsystem.
type CustomerMeta struct {
	Name    string `json:"customer_name"`
	Email   string `json:"customer_email"`
	Address string `json:"customer_address"`
}

type Order struct {
	ID          int64           `json:"id"`
	OrderDate   time.Time       `json:"order_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CustomerMeta
	Status    OrderStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
	Items     []OrderItem `json:"items"`
}

// OrderItem.Price is the unit price captured when the order was placed.
type OrderItem struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	MerchandiseID int64           `json:"merchandise_id"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type StockEntry struct {
	MerchandiseID int64     `json:"merchandise_id"`
	Size          string    `json:"size"`
	InStock       int       `json:"in_stock"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Merchandise struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type OrderMessage struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	IsFromAdmin bool      `json:"is_from_admin"`
	IsRead      bool      `json:"is_read"`
}
