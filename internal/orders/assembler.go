package orders

import (
	"context"
	"fmt"
)

type assemblyStore interface {
	FindProducts(ctx context.Context, ids []int64) ([]Product, error)
	CreateOrder(ctx context.Context, items []OrderItem) (Order, error)
}

// Assembler turns requirements into a pending order shell plus its items.
// It never touches stock.
type Assembler struct {
	store assemblyStore
}

func NewAssembler(store assemblyStore) *Assembler {
	return &Assembler{store: store}
}

// Assemble fails with ErrProductNotFound when any requested id is unknown or
// trashed; nothing is written in that case. Quantities are passed through
// unchecked.
func (a *Assembler) Assemble(ctx context.Context, req Requirements) (Order, error) {
	products, err := a.store.FindProducts(ctx, req.IDs())
	if err != nil {
		return Order{}, Unexpected(fmt.Errorf("find products: %w", err))
	}
	if len(products) != req.Len() {
		return Order{}, ErrProductNotFound
	}

	items := make([]OrderItem, 0, req.Len())
	for _, line := range req.Lines() {
		items = append(items, OrderItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	order, err := a.store.CreateOrder(ctx, items)
	if err != nil {
		return Order{}, Unexpected(fmt.Errorf("create order: %w", err))
	}
	return order, nil
}
