package orders

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Messages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrProductNotFound, "Product(s) not found"},
		{InsufficientStock("Product 1"), "Not enough stock for product Product 1"},
		{LockUnavailable(errors.New("55P03")), "Product stock is being updated by another order, try again"},
		{Unexpected(errors.New("boom")), "An error occurred while processing the order"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("settle: %w", InsufficientStock("A"))

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorIs(t, err, InsufficientStock("A"))
	assert.NotErrorIs(t, err, InsufficientStock("B"))
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("could not obtain lock")
	err := LockUnavailable(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrLockUnavailable)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindProductNotFound, KindOf(ErrProductNotFound))
	assert.Equal(t, KindInsufficientStock, KindOf(fmt.Errorf("wrap: %w", InsufficientStock("A"))))
	assert.Equal(t, KindLockUnavailable, KindOf(errors.Join(LockUnavailable(nil), errors.New("x"))))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("plain")))
}

func TestClassify(t *testing.T) {
	plain := errors.New("disk full")
	got := classify(plain)
	assert.Equal(t, KindUnexpected, KindOf(got))
	assert.ErrorIs(t, got, plain)

	stock := InsufficientStock("A")
	assert.Same(t, stock, classify(fmt.Errorf("tx: %w", stock)))
}
