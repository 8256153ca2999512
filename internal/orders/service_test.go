package orders_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-catalog-orders/internal/orders"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []orders.Envelope
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, env orders.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return p.err
}

type recordingInvalidator struct {
	ids []int64
}

func (v *recordingInvalidator) Invalidate(_ context.Context, id int64) { v.ids = append(v.ids, id) }

func TestPlaceOrder_Completed(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	inv := &recordingInvalidator{}
	svc := orders.NewService(f.store, nil,
		orders.WithPublisher(pub),
		orders.WithViewInvalidator(inv),
		orders.WithProducerName("test-api"),
	)

	order, err := svc.PlaceOrder(context.Background(), reqOf(
		orders.Line{ProductID: f.a.ID, Quantity: 2},
		orders.Line{ProductID: f.b.ID, Quantity: 1},
	), "req-1")
	require.NoError(t, err)

	assert.Equal(t, orders.StatusCompleted, order.Status)
	assert.Equal(t, "400.00", order.TotalPrice.StringFixed(2))
	assert.Equal(t, []int64{order.ID}, inv.ids)

	require.Len(t, pub.events, 1)
	env := pub.events[0]
	assert.Equal(t, orders.EventOrderCompleted, env.EventType)
	assert.Equal(t, "test-api", env.Producer)
	assert.Equal(t, "req-1", env.TraceID)

	var p orders.OrderSettledPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, order.ID, p.OrderID)
	assert.Len(t, p.Items, 2)
}

func TestPlaceOrder_SettlementFailureReturnsFailedOrder(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	svc := orders.NewService(f.store, nil, orders.WithPublisher(pub))

	order, err := svc.PlaceOrder(context.Background(), reqOf(orders.Line{ProductID: f.b.ID, Quantity: 6}), "")
	require.ErrorIs(t, err, orders.ErrInsufficientStock)

	assert.NotZero(t, order.ID)
	assert.Equal(t, orders.StatusFailed, order.Status)

	require.Len(t, pub.events, 1)
	var p orders.OrderSettledPayload
	require.NoError(t, json.Unmarshal(pub.events[0].Payload, &p))
	assert.Equal(t, orders.EventOrderFailed, pub.events[0].EventType)
	assert.Equal(t, orders.KindInsufficientStock, p.Kind)
	assert.Equal(t, "Not enough stock for product B", p.Reason)
}

func TestPlaceOrder_AssemblyFailurePublishesNothing(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	inv := &recordingInvalidator{}
	svc := orders.NewService(f.store, nil, orders.WithPublisher(pub), orders.WithViewInvalidator(inv))

	order, err := svc.PlaceOrder(context.Background(), reqOf(orders.Line{ProductID: 999, Quantity: 1}), "")
	require.ErrorIs(t, err, orders.ErrProductNotFound)

	assert.Zero(t, order.ID)
	assert.Empty(t, pub.events)
	assert.Empty(t, inv.ids)
}

func TestPlaceOrder_PublishErrorDoesNotFailOrder(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := orders.NewService(f.store, nil, orders.WithPublisher(pub))

	order, err := svc.PlaceOrder(context.Background(), reqOf(orders.Line{ProductID: f.a.ID, Quantity: 1}), "")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCompleted, order.Status)
	assert.Len(t, pub.events, 1)
}
