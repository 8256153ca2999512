package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func orderWith(total int64, items ...OrderItem) Order {
	return Order{TotalPrice: decimal.NewFromInt(total), Items: items}
}

func item(price int64, qty int) OrderItem {
	return OrderItem{Product: &Product{Price: decimal.NewFromInt(price)}, Quantity: qty}
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		want  string
	}{
		{"overcharge is clamped", orderWith(500, item(100, 2), item(200, 1)), "0"},
		{"quarter off", orderWith(300, item(100, 2), item(200, 1)), "25"},
		{"full price", orderWith(400, item(100, 2), item(200, 1)), "0"},
		{"unsettled order", orderWith(0, item(100, 2), item(200, 1)), "100"},
		{"all items free", orderWith(0, item(0, 3)), "0"},
		{"no items", orderWith(0), "0"},
		{"item without product", orderWith(0, OrderItem{Quantity: 2}), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := decimal.RequireFromString(tt.want)
			got := Discount(tt.order)
			assert.True(t, want.Equal(got), "want %s, got %s", want, got)
		})
	}
}

func TestRawTotal(t *testing.T) {
	o := Order{Items: []OrderItem{
		{Product: &Product{Price: decimal.RequireFromString("19.99")}, Quantity: 3},
		{Product: &Product{Price: decimal.RequireFromString("0.01")}, Quantity: 1},
	}}
	assert.Equal(t, "59.98", RawTotal(o).StringFixed(2))
}
