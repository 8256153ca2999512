//go:build integration

package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedis_Integration(t *testing.T) {
	rdb := New(setupRedis(t))
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	t.Run("order cache", func(t *testing.T) {
		c := NewOrderCache(rdb, nil)

		_, ok := c.Get(ctx, 1)
		assert.False(t, ok)

		c.Set(ctx, 1, []byte(`{"id":1}`))
		b, ok := c.Get(ctx, 1)
		require.True(t, ok)
		assert.JSONEq(t, `{"id":1}`, string(b))

		ttl, err := rdb.TTL(ctx, "order_snapshot:1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))

		c.Invalidate(ctx, 1)
		_, ok = c.Get(ctx, 1)
		assert.False(t, ok)
	})

	t.Run("deduper", func(t *testing.T) {
		d := NewDeduper(rdb, "order-audit")

		seen, err := d.SeenBefore(ctx, "evt-1")
		require.NoError(t, err)
		assert.False(t, seen)

		seen, err = d.SeenBefore(ctx, "evt-1")
		require.NoError(t, err)
		assert.True(t, seen)

		require.NoError(t, d.Forget(ctx, "evt-1"))
		seen, err = d.SeenBefore(ctx, "evt-1")
		require.NoError(t, err)
		assert.False(t, seen)
	})
}
