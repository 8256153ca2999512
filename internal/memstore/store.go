// Package memstore is an in-process record store with the same locking
// contract as the postgres store: exclusive, non-blocking product row locks
// and per-transaction buffered writes.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-catalog-orders/internal/orders"
)

var _ orders.Store = (*Store)(nil)

type Store struct {
	mu sync.Mutex

	products map[int64]*orders.Product
	orders   map[int64]*orders.Order
	items    map[int64]*orders.OrderItem

	// product id -> owning transaction
	locks map[int64]uint64
	// broadcast whenever a transaction releases its locks
	released *sync.Cond

	lastProductID int64
	lastOrderID   int64
	lastItemID    int64
	lastTxID      uint64

	now func() time.Time
}

func New() *Store {
	s := &Store{
		products: make(map[int64]*orders.Product),
		orders:   make(map[int64]*orders.Order),
		items:    make(map[int64]*orders.OrderItem),
		locks:    make(map[int64]uint64),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.released = sync.NewCond(&s.mu)
	return s
}

// ---- products ----

func (s *Store) ListProducts(ctx context.Context) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]orders.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Trashed {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b orders.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.Trashed {
		return orders.Product{}, orders.ErrNotFound
	}
	return *p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastProductID++
	now := s.now()
	p.ID = s.lastProductID
	p.Trashed = false
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = &p
	return p, nil
}

// UpdateProduct waits, like a plain UPDATE, while a transaction holds the
// product row.
func (s *Store) UpdateProduct(ctx context.Context, p orders.Product) (orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.waitUnlocked(ctx, p.ID); err != nil {
		return orders.Product{}, err
	}
	cur, ok := s.products[p.ID]
	if !ok || cur.Trashed {
		return orders.Product{}, orders.ErrNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.Stock = p.Stock
	cur.UpdatedAt = s.now()
	return *cur, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64, opts ...orders.DeleteOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.waitUnlocked(ctx, id); err != nil {
		return err
	}
	p, ok := s.products[id]
	if !ok || p.Trashed {
		return orders.ErrNotFound
	}
	if !orders.ApplyDeleteOptions(opts...) {
		p.Trashed = true
		p.UpdatedAt = s.now()
		return nil
	}
	delete(s.products, id)
	for itemID, it := range s.items {
		if it.ProductID == id {
			delete(s.items, itemID)
		}
	}
	return nil
}

// ---- orders ----

func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]orders.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if !o.Trashed {
			out = append(out, s.hydrate(*o))
		}
	}
	slices.SortFunc(out, func(a, b orders.Order) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Trashed {
		return orders.Order{}, orders.ErrNotFound
	}
	return s.hydrate(*o), nil
}

func (s *Store) DeleteOrder(ctx context.Context, id int64, opts ...orders.DeleteOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Trashed {
		return orders.ErrNotFound
	}
	if !orders.ApplyDeleteOptions(opts...) {
		o.Trashed = true
		o.UpdatedAt = s.now()
		return nil
	}
	delete(s.orders, id)
	for itemID, it := range s.items {
		if it.OrderID == id {
			delete(s.items, itemID)
		}
	}
	return nil
}

func (s *Store) FindProducts(ctx context.Context, ids []int64) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.liveProducts(ids), nil
}

func (s *Store) ItemProducts(ctx context.Context, ids []int64) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]orders.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b orders.Product) int { return cmp.Compare(a.ID, b.ID) })
	return slices.CompactFunc(out, func(a, b orders.Product) bool { return a.ID == b.ID }), nil
}

func (s *Store) CreateOrder(ctx context.Context, items []orders.OrderItem) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		if _, ok := s.products[it.ProductID]; !ok {
			return orders.Order{}, fmt.Errorf("order item references unknown product %d", it.ProductID)
		}
	}

	now := s.now()
	s.lastOrderID++
	o := &orders.Order{
		ID:         s.lastOrderID,
		TotalPrice: decimal.Zero,
		Status:     orders.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.orders[o.ID] = o

	created := make([]orders.OrderItem, 0, len(items))
	for _, it := range items {
		s.lastItemID++
		row := orders.OrderItem{
			ID:        s.lastItemID,
			OrderID:   o.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.items[row.ID] = &row
		created = append(created, row)
	}

	out := *o
	out.Items = created
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status orders.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = s.now()
	return nil
}

// InTx hands fn a transaction whose writes become visible only when fn
// returns nil. Locks taken by the transaction are released on every exit path.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastTxID++
	tx := &memTx{s: s, id: s.lastTxID, stock: make(map[int64]int)}
	s.mu.Unlock()

	err := fn(ctx, tx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.release(tx.id)

	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// ---- helpers (s.mu held) ----

func (s *Store) liveProducts(ids []int64) []orders.Product {
	out := make([]orders.Product, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok || p.Trashed || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b orders.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Store) hydrate(o orders.Order) orders.Order {
	o.Items = nil
	for _, it := range s.items {
		if it.OrderID != o.ID {
			continue
		}
		row := *it
		if p, ok := s.products[it.ProductID]; ok {
			cp := *p
			row.Product = &cp
		}
		o.Items = append(o.Items, row)
	}
	slices.SortFunc(o.Items, func(a, b orders.OrderItem) int { return cmp.Compare(a.ID, b.ID) })
	return o
}

func (s *Store) release(txID uint64) {
	for pid, owner := range s.locks {
		if owner == txID {
			delete(s.locks, pid)
		}
	}
	s.released.Broadcast()
}

// waitUnlocked blocks until no transaction holds the product row or ctx is
// done.
func (s *Store) waitUnlocked(ctx context.Context, productID int64) error {
	if _, held := s.locks[productID]; !held {
		return nil
	}
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.released.Broadcast()
	})
	defer stop()

	for {
		if _, held := s.locks[productID]; !held {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.released.Wait()
	}
}
