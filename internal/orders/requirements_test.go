package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequirements_LastWriteWinsKeepsFirstPosition(t *testing.T) {
	r := NewRequirements([]Line{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 7},
	})

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []int64{3, 1}, r.IDs())

	q, ok := r.Quantity(3)
	assert.True(t, ok)
	assert.Equal(t, 7, q)

	assert.Equal(t, []Line{{ProductID: 3, Quantity: 7}, {ProductID: 1, Quantity: 2}}, r.Lines())
}

func TestRequirements_ZeroValueIsUsable(t *testing.T) {
	var r Requirements
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.IDs())

	r.Set(5, 1)
	q, ok := r.Quantity(5)
	assert.True(t, ok)
	assert.Equal(t, 1, q)

	_, ok = r.Quantity(6)
	assert.False(t, ok)
}

func TestRequirements_IDsIsACopy(t *testing.T) {
	r := NewRequirements([]Line{{ProductID: 1, Quantity: 1}})
	ids := r.IDs()
	ids[0] = 99
	assert.Equal(t, []int64{1}, r.IDs())
}
