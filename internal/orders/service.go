package orders

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
	"github.com/safar/merch-store/internal/models"
	"github.com/shopspring/decimal"
)

// Catalog resolves merchandise prices and names. Unknown ids must report
// database.ErrMerchandiseNotFound.
type Catalog interface {
	GetUnitPrice(ctx context.Context, merchandiseID int64) (decimal.Decimal, error)
	GetDisplayName(ctx context.Context, merchandiseID int64) (string, error)
}

// StatusCache keeps the latest known status of an order. It is never the source
// of truth; misses and errors fall back to the database. FillStatus must not
// overwrite an existing entry. Status changes evict with DeleteStatus.
type StatusCache interface {
	GetStatus(ctx context.Context, orderID int64) (models.OrderStatus, bool, error)
	FillStatus(ctx context.Context, orderID int64, status models.OrderStatus) error
	DeleteStatus(ctx context.Context, orderID int64) error
}

// EventPublisher is told about committed changes only.
type EventPublisher interface {
	OrderCreated(ctx context.Context, order *models.Order) error
	OrderStatusChanged(ctx context.Context, orderID int64, from, to models.OrderStatus) error
}

type Service struct {
	db      *sql.DB
	catalog Catalog
	cache   StatusCache
	events  EventPublisher
	logger  zerolog.Logger
}

type Option func(*Service)

func WithStatusCache(cache StatusCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(db *sql.DB, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		db:      db,
		catalog: catalog,
		cache:   noopCache{},
		events:  noopPublisher{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// failure logs err at error level and wraps it. Only infrastructure errors reach here.
func (s *Service) failure(op string, orderID int64, err error) error {
	f := &FailureError{Op: op, Err: err}
	evt := s.logger.Error().Err(err).Str("op", op).Bool("retryable", f.Retryable())
	if orderID != 0 {
		evt = evt.Int64("order_id", orderID)
	}
	evt.Msg("order operation failed")
	return f
}

func (s *Service) statusChanged(ctx context.Context, orderID int64, from, to models.OrderStatus) {
	s.evictStatus(ctx, orderID)
	if err := s.events.OrderStatusChanged(ctx, orderID, from, to); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("publish status change")
	}
}

func (s *Service) evictStatus(ctx context.Context, orderID int64) {
	if err := s.cache.DeleteStatus(ctx, orderID); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("evict cached order status")
	}
}

type noopCache struct{}

func (noopCache) GetStatus(context.Context, int64) (models.OrderStatus, bool, error) {
	return "", false, nil
}
func (noopCache) FillStatus(context.Context, int64, models.OrderStatus) error { return nil }
func (noopCache) DeleteStatus(context.Context, int64) error { return nil }

type noopPublisher struct{}

func (noopPublisher) OrderCreated(context.Context, *models.Order) error { return nil }
func (noopPublisher) OrderStatusChanged(context.Context, int64, models.OrderStatus, models.OrderStatus) error {
	return nil
}
