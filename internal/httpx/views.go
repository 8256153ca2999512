package httpx

import (
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-catalog-orders/internal/orders"
)

type ProductView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}

type OrderItemView struct {
	Product  *ProductView `json:"product"`
	Quantity int          `json:"quantity"`
}

type OrderView struct {
	ID         int64           `json:"id"`
	Items      []OrderItemView `json:"items"`
	TotalPrice string          `json:"total_price"`
	Status     orders.Status   `json:"status"`
	Discount   string          `json:"discount"`
}

func toProductView(p orders.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
	}
}

func toOrderView(o orders.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, it := range o.Items {
		iv := OrderItemView{Quantity: it.Quantity}
		if it.Product != nil {
			pv := toProductView(*it.Product)
			iv.Product = &pv
		}
		items = append(items, iv)
	}
	return OrderView{
		ID:         o.ID,
		Items:      items,
		TotalPrice: o.TotalPrice.StringFixed(2),
		Status:     o.Status,
		Discount:   orders.Discount(o).StringFixed(2),
	}
}

// orderSnapshot is the cached part of an order: the fields settlement fixes
// once the order is terminal. Product data is not part of it.
type orderSnapshot struct {
	ID         int64           `json:"id"`
	Status     orders.Status   `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []orders.Line   `json:"items"`
}

func newOrderSnapshot(o orders.Order) orderSnapshot {
	snap := orderSnapshot{ID: o.ID, Status: o.Status, TotalPrice: o.TotalPrice, Items: make([]orders.Line, 0, len(o.Items))}
	for _, it := range o.Items {
		snap.Items = append(snap.Items, orders.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return snap
}

func (s orderSnapshot) order() orders.Order {
	o := orders.Order{ID: s.ID, Status: s.Status, TotalPrice: s.TotalPrice, Items: make([]orders.OrderItem, 0, len(s.Items))}
	for _, l := range s.Items {
		o.Items = append(o.Items, orders.OrderItem{OrderID: s.ID, ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return o
}
