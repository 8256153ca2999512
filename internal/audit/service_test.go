package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-catalog-orders/internal/orders"
	"github.com/ariefcatur/go-catalog-orders/internal/telemetry"
)

type memDeduper struct {
	seen      map[string]bool
	err       error
	forgotten []string
}

func (d *memDeduper) SeenBefore(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[id] {
		return true, nil
	}
	d.seen[id] = true
	return false, nil
}

func (d *memDeduper) Forget(_ context.Context, id string) error {
	delete(d.seen, id)
	d.forgotten = append(d.forgotten, id)
	return nil
}

func message(t *testing.T, env orders.Envelope) kafkago.Message {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Value: b}
}

func settledEvent(t *testing.T) orders.Envelope {
	t.Helper()
	env, err := orders.NewSettledEnvelope("order-api", "", orders.Order{ID: 3, Status: orders.StatusCompleted}, nil)
	require.NoError(t, err)
	return env
}

func TestHandleSettled_DedupsByEventID(t *testing.T) {
	d := &memDeduper{seen: map[string]bool{}}
	s := &Service{Dedup: d}
	env := settledEvent(t)

	require.NoError(t, s.HandleSettled(context.Background(), message(t, env)))
	require.NoError(t, s.HandleSettled(context.Background(), message(t, env)))
	assert.True(t, d.seen[env.EventID])
	assert.Empty(t, d.forgotten)
}

func TestHandleSettled_IgnoresOtherEvents(t *testing.T) {
	d := &memDeduper{seen: map[string]bool{}}
	s := &Service{Dedup: d}
	env := settledEvent(t)
	env.EventType = "InventoryReserved"

	require.NoError(t, s.HandleSettled(context.Background(), message(t, env)))
	assert.Empty(t, d.seen)
}

func TestHandleSettled_BadPayloadIsForgotten(t *testing.T) {
	d := &memDeduper{seen: map[string]bool{}}
	s := &Service{Dedup: d}
	env := settledEvent(t)
	env.Payload = json.RawMessage(`"not an object"`)

	err := s.HandleSettled(context.Background(), message(t, env))
	require.Error(t, err)
	assert.Equal(t, []string{env.EventID}, d.forgotten)
	assert.False(t, d.seen[env.EventID])
}

func TestHandleSettled_Errors(t *testing.T) {
	s := &Service{}
	assert.Error(t, s.HandleSettled(context.Background(), kafkago.Message{Value: []byte("{")}))

	down := errors.New("redis down")
	s = &Service{Dedup: &memDeduper{err: down}}
	assert.ErrorIs(t, s.HandleSettled(context.Background(), message(t, settledEvent(t))), down)
}

func TestHandleSettled_WithoutDeduper(t *testing.T) {
	s := &Service{}
	assert.NoError(t, s.HandleSettled(context.Background(), message(t, settledEvent(t))))
}

func TestHandleSettled_CountIsScrapeable(t *testing.T) {
	handler, shutdown, err := telemetry.InitMeterProvider("order-api-audit", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	s := &Service{}
	require.NoError(t, s.HandleSettled(context.Background(), message(t, settledEvent(t))))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "audit_settlements_total")
	assert.Contains(t, rec.Body.String(), `status="completed"`)
}
