package memstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-catalog-orders/internal/orders"
)

var errRowLocked = errors.New("could not obtain lock on row in relation \"products\"")

type finalize struct {
	orderID int64
	total   decimal.Decimal
	status  orders.Status
}

type memTx struct {
	s  *Store
	id uint64

	stock     map[int64]int
	finalizes []finalize
}

func (tx *memTx) LockProducts(ctx context.Context, ids []int64) ([]orders.Product, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	products := tx.s.liveProducts(ids)
	for _, p := range products {
		if owner, held := tx.s.locks[p.ID]; held && owner != tx.id {
			return nil, orders.LockUnavailable(errRowLocked)
		}
	}
	for i, p := range products {
		tx.s.locks[p.ID] = tx.id
		if v, ok := tx.stock[p.ID]; ok {
			products[i].Stock = v
		}
	}
	return products, nil
}

func (tx *memTx) UpdateStock(ctx context.Context, productID int64, stock int) error {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	if tx.s.locks[productID] != tx.id {
		return fmt.Errorf("product %d is not locked by this transaction", productID)
	}
	if stock < 0 {
		return fmt.Errorf("stock of product %d would become negative", productID)
	}
	tx.stock[productID] = stock
	return nil
}

func (tx *memTx) FinalizeOrder(ctx context.Context, orderID int64, total decimal.Decimal, status orders.Status) error {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	if _, ok := tx.s.orders[orderID]; !ok {
		return orders.ErrNotFound
	}
	tx.finalizes = append(tx.finalizes, finalize{orderID: orderID, total: total, status: status})
	return nil
}

// commit applies buffered writes; caller holds s.mu.
func (tx *memTx) commit() {
	now := tx.s.now()
	for pid, v := range tx.stock {
		if p, ok := tx.s.products[pid]; ok {
			p.Stock = v
			p.UpdatedAt = now
		}
	}
	for _, f := range tx.finalizes {
		if o, ok := tx.s.orders[f.orderID]; ok {
			o.TotalPrice = f.total
			o.Status = f.status
			o.UpdatedAt = now
		}
	}
}
