//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ariefcatur/go-catalog-orders/internal/orders"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shop"),
		tcpostgres.WithUsername("app"),
		tcpostgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(dsn))
	// a second run is a no-op
	require.NoError(t, Migrate(dsn))

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewStore(pool)
}

func mustProduct(t *testing.T, s *Store, name, price string, stock int) orders.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), orders.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func TestStore_Integration(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	t.Run("product crud", func(t *testing.T) {
		p := mustProduct(t, s, "Lamp", "19.99", 2)
		assert.Equal(t, "19.99", p.Price.StringFixed(2))

		p.Stock = 5
		p.Description = "desk lamp"
		updated, err := s.UpdateProduct(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, 5, updated.Stock)

		require.NoError(t, s.DeleteProduct(ctx, p.ID))
		_, err = s.GetProduct(ctx, p.ID)
		assert.ErrorIs(t, err, orders.ErrNotFound)
		assert.ErrorIs(t, s.DeleteProduct(ctx, p.ID), orders.ErrNotFound)
	})

	t.Run("place order settles stock and total", func(t *testing.T) {
		a := mustProduct(t, s, "A", "100", 10)
		b := mustProduct(t, s, "B", "200", 5)
		svc := orders.NewService(s, nil)

		order, err := svc.PlaceOrder(ctx, orders.NewRequirements([]orders.Line{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 1},
		}), "")
		require.NoError(t, err)

		got, err := s.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusCompleted, got.Status)
		assert.Equal(t, "400.00", got.TotalPrice.StringFixed(2))
		require.Len(t, got.Items, 2)
		assert.Equal(t, "A", got.Items[0].Product.Name)

		pa, _ := s.GetProduct(ctx, a.ID)
		pb, _ := s.GetProduct(ctx, b.ID)
		assert.Equal(t, 8, pa.Stock)
		assert.Equal(t, 4, pb.Stock)
	})

	t.Run("insufficient stock rolls back and marks failed", func(t *testing.T) {
		a := mustProduct(t, s, "C", "10", 3)
		b := mustProduct(t, s, "D", "10", 1)
		svc := orders.NewService(s, nil)

		order, err := svc.PlaceOrder(ctx, orders.NewRequirements([]orders.Line{
			{ProductID: a.ID, Quantity: 1},
			{ProductID: b.ID, Quantity: 2},
		}), "")
		require.ErrorIs(t, err, orders.InsufficientStock("D"))

		got, err := s.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, orders.StatusFailed, got.Status)
		assert.True(t, got.TotalPrice.IsZero())

		pa, _ := s.GetProduct(ctx, a.ID)
		assert.Equal(t, 3, pa.Stock)
	})

	t.Run("held row lock fails fast", func(t *testing.T) {
		p := mustProduct(t, s, "E", "5", 4)

		holder, err := s.DB.Begin(ctx)
		require.NoError(t, err)
		_, err = holder.Exec(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, p.ID)
		require.NoError(t, err)

		start := time.Now()
		_, err = orders.NewService(s, nil).PlaceOrder(ctx, orders.NewRequirements([]orders.Line{{ProductID: p.ID, Quantity: 1}}), "")
		require.NoError(t, holder.Rollback(ctx))

		assert.ErrorIs(t, err, orders.ErrLockUnavailable)
		assert.Less(t, time.Since(start), 5*time.Second)

		got, _ := s.GetProduct(ctx, p.ID)
		assert.Equal(t, 4, got.Stock)
	})

	t.Run("concurrent orders never oversell", func(t *testing.T) {
		p := mustProduct(t, s, "F", "1", 3)
		svc := orders.NewService(s, nil)
		req := orders.NewRequirements([]orders.Line{{ProductID: p.ID, Quantity: 1}})

		const n = 10
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.PlaceOrder(ctx, req, "")
			}(i)
		}
		wg.Wait()

		completed := 0
		for _, err := range errs {
			if err == nil {
				completed++
			}
		}
		got, _ := s.GetProduct(ctx, p.ID)
		assert.Equal(t, 3-completed, got.Stock)
		assert.GreaterOrEqual(t, got.Stock, 0)
	})

	t.Run("create order reports failed begin", func(t *testing.T) {
		p := mustProduct(t, s, "H", "1", 10)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := s.CreateOrder(cancelled, []orders.OrderItem{{ProductID: p.ID, Quantity: 1}})
		require.Error(t, err)
		assert.ErrorContains(t, err, "begin create order")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("hard delete cascades items", func(t *testing.T) {
		p := mustProduct(t, s, "G", "1", 10)
		order, err := s.CreateOrder(ctx, []orders.OrderItem{{ProductID: p.ID, Quantity: 1}})
		require.NoError(t, err)

		require.NoError(t, s.DeleteOrder(ctx, order.ID, orders.HardDelete()))
		var n int
		require.NoError(t, s.DB.QueryRow(ctx, `SELECT count(*) FROM order_items WHERE order_id = $1`, order.ID).Scan(&n))
		assert.Zero(t, n)
	})
}
