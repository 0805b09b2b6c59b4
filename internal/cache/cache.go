// Package cache keeps order statuses in Redis for cheap status polling.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/safar/merch-store/internal/models"
)

// order_status:{order_id} -> status
const keyOrderStatus = "order_status:%d"

const DefaultStatusTTL = 5 * time.Minute

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatusCache(rdb *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &StatusCache{rdb: rdb, ttl: ttl}
}

func statusKey(orderID int64) string {
	return fmt.Sprintf(keyOrderStatus, orderID)
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID int64) (models.OrderStatus, bool, error) {
	s, err := c.rdb.Get(ctx, statusKey(orderID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get cached status: %w", err)
	}
	return models.OrderStatus(s), true, nil
}

// FillStatus caches status only when no entry exists. Writers evict with
// DeleteStatus, so an existing entry is never older than the last eviction.
func (c *StatusCache) FillStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	if err := c.rdb.SetNX(ctx, statusKey(orderID), string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("fill cached status: %w", err)
	}
	return nil
}

func (c *StatusCache) DeleteStatus(ctx context.Context, orderID int64) error {
	if err := c.rdb.Del(ctx, statusKey(orderID)).Err(); err != nil {
		return fmt.Errorf("delete cached status: %w", err)
	}
	return nil
}
