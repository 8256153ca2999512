package redisx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// OrderCache keeps order snapshots. Redis errors are logged and treated
// as misses: the database stays the source of truth.
type OrderCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewOrderCache(rdb *redis.Client, logger *slog.Logger) *OrderCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderCache{rdb: rdb, ttl: TTLOrderSnapshot, logger: logger}
}

func (c *OrderCache) Get(ctx context.Context, orderID int64) ([]byte, bool) {
	b, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrderSnapshot, orderID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("order cache get failed", "error", err, "order_id", orderID)
		}
		return nil, false
	}
	return b, true
}

func (c *OrderCache) Set(ctx context.Context, orderID int64, snapshot []byte) {
	if err := c.rdb.Set(ctx, fmt.Sprintf(KeyOrderSnapshot, orderID), snapshot, c.ttl).Err(); err != nil {
		c.logger.Warn("order cache set failed", "error", err, "order_id", orderID)
	}
}

func (c *OrderCache) Invalidate(ctx context.Context, orderID int64) {
	if err := c.rdb.Del(ctx, fmt.Sprintf(KeyOrderSnapshot, orderID)).Err(); err != nil {
		c.logger.Warn("order cache invalidate failed", "error", err, "order_id", orderID)
	}
}

// Deduper remembers processed event ids.
type Deduper struct {
	rdb     *redis.Client
	service string
	ttl     time.Duration
}

func NewDeduper(rdb *redis.Client, service string) *Deduper {
	return &Deduper{rdb: rdb, service: service, ttl: TTLDedup}
}

// SeenBefore marks id as processed and reports whether it already was.
// SETNX keeps check and mark atomic across consumer workers.
func (d *Deduper) SeenBefore(ctx context.Context, id string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, d.service, id), "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Forget drops the mark so a failed event can be retried.
func (d *Deduper) Forget(ctx context.Context, id string) error {
	return d.rdb.Del(ctx, fmt.Sprintf(KeyDedup, d.service, id)).Err()
}
