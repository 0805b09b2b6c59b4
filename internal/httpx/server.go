// Package httpx exposes the order service over HTTP.
package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/safar/merch-store/internal/models"
	"github.com/safar/merch-store/internal/orders"
	"github.com/safar/merch-store/internal/store"
)

// OrderService is the part of *orders.Service the handlers use.
type OrderService interface {
	PlaceOrder(ctx context.Context, meta models.CustomerMeta, lines []orders.LineItem) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter orders.ListOrdersFilter) (*store.CursorPage[models.Order], error)
	GetOrderStatus(ctx context.Context, id int64) (models.OrderStatus, error)
	CancelOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	AddOrderMessage(ctx context.Context, id int64, content string, fromAdmin bool) (*models.OrderMessage, error)
	GetOrderMessages(ctx context.Context, id int64) ([]models.OrderMessage, error)
	MarkMessagesRead(ctx context.Context, id int64, readerIsAdmin bool) (int64, error)
}

type RouterConfig struct {
	Logger         zerolog.Logger
	RequestTimeout time.Duration
	// OrderRateLimit caps order placements per second. Zero disables the limit.
	OrderRateLimit float64
	OrderRateBurst int
	// Ready is called by /healthz when set.
	Ready func(ctx context.Context) error
}

func NewRouter(svc OrderService, cfg RouterConfig) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	h := &OrdersHandler{Service: svc, Logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(cfg.Logger), middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				cfg.Logger.Warn().Err(err).Msg("health check failed")
				respondError(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h.Register(r, orderLimiter(cfg.OrderRateLimit, cfg.OrderRateBurst))
	return r
}
