package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct {
	txErr     error
	statusErr error
	statuses  []Status
}

func (s *brokenStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.txErr
}

func (s *brokenStore) UpdateOrderStatus(ctx context.Context, id int64, status Status) error {
	s.statuses = append(s.statuses, status)
	return s.statusErr
}

func TestSettle_FailureMarkerErrorIsJoined(t *testing.T) {
	markErr := errors.New("connection reset")
	store := &brokenStore{txErr: LockUnavailable(nil), statusErr: markErr}
	order := Order{ID: 1, Status: StatusPending}

	err := NewSettler(store, nil).Settle(context.Background(), &order, NewRequirements([]Line{{ProductID: 1, Quantity: 1}}))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockUnavailable)
	assert.ErrorIs(t, err, markErr)
	assert.Equal(t, []Status{StatusFailed}, store.statuses)
	assert.Equal(t, StatusPending, order.Status)
}

func TestSettle_ForeignErrorBecomesUnexpected(t *testing.T) {
	store := &brokenStore{txErr: errors.New("serialization failure")}
	order := Order{ID: 2, Status: StatusPending}

	err := NewSettler(store, nil).Settle(context.Background(), &order, NewRequirements(nil))

	assert.Equal(t, KindUnexpected, KindOf(err))
	assert.Equal(t, "An error occurred while processing the order", err.Error())
	assert.Equal(t, StatusFailed, order.Status)
}
