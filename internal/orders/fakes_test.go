package orders

import (
	"context"
	"errors"
	"sync"

	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/models"
	"github.com/shopspring/decimal"
)

type fakeCatalog struct {
	prices map[int64]decimal.Decimal
	names  map[int64]string
	err    error
}

func (c *fakeCatalog) GetUnitPrice(_ context.Context, id int64) (decimal.Decimal, error) {
	if c.err != nil {
		return decimal.Zero, c.err
	}
	p, ok := c.prices[id]
	if !ok {
		return decimal.Zero, database.ErrMerchandiseNotFound
	}
	return p, nil
}

func (c *fakeCatalog) GetDisplayName(_ context.Context, id int64) (string, error) {
	n, ok := c.names[id]
	if !ok {
		return "", database.ErrMerchandiseNotFound
	}
	return n, nil
}

type memoryCache struct {
	mu       sync.Mutex
	statuses map[int64]models.OrderStatus
	reads    int
	failGet  bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{statuses: map[int64]models.OrderStatus{}}
}

func (c *memoryCache) GetStatus(_ context.Context, id int64) (models.OrderStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.failGet {
		return "", false, errors.New("cache down")
	}
	s, ok := c.statuses[id]
	return s, ok, nil
}

func (c *memoryCache) FillStatus(_ context.Context, id int64, status models.OrderStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.statuses[id]; !ok {
		c.statuses[id] = status
	}
	return nil
}

func (c *memoryCache) DeleteStatus(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.statuses, id)
	return nil
}

func (c *memoryCache) get(id int64) (models.OrderStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.statuses[id]
	return s, ok
}

type statusChange struct {
	OrderID  int64
	From, To models.OrderStatus
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []int64
	changes []statusChange
	err     error
}

func (p *recordingPublisher) OrderCreated(_ context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, order.ID)
	return p.err
}

func (p *recordingPublisher) OrderStatusChanged(_ context.Context, id int64, from, to models.OrderStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, statusChange{OrderID: id, From: from, To: to})
	return p.err
}
