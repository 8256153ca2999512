package orders

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// RawTotal is the list price of an order's items. Items without a loaded
// product count as zero.
func RawTotal(o Order) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		if it.Product == nil {
			continue
		}
		sum = sum.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// Discount is the percentage by which TotalPrice undercuts the list price,
// never negative. An order whose items are all free has no discount.
func Discount(o Order) decimal.Decimal {
	raw := RawTotal(o)
	if raw.IsZero() {
		return decimal.Zero
	}
	d := raw.Sub(o.TotalPrice).Mul(hundred).Div(raw)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
