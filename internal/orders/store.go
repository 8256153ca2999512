package orders

import (
	"context"

	"github.com/shopspring/decimal"
)

type deleteOptions struct {
	hard bool
}

// DeleteOption tunes DeleteProduct and DeleteOrder.
type DeleteOption func(*deleteOptions)

// HardDelete removes the row instead of marking it trashed.
func HardDelete() DeleteOption {
	return func(o *deleteOptions) { o.hard = true }
}

// ApplyDeleteOptions reports whether the options ask for a hard delete.
func ApplyDeleteOptions(opts ...DeleteOption) (hard bool) {
	var o deleteOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o.hard
}

// ProductRepository is the catalog side of the record store. Every method
// ignores trashed products.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id int64, opts ...DeleteOption) error
}

// OrderRepository stores orders and their items and provides the
// transaction scope settlement runs in.
type OrderRepository interface {
	ListOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	DeleteOrder(ctx context.Context, id int64, opts ...DeleteOption) error

	// FindProducts returns the non-trashed products among ids.
	FindProducts(ctx context.Context, ids []int64) ([]Product, error)
	// ItemProducts returns the products among ids, trashed ones included,
	// for rendering the items of existing orders.
	ItemProducts(ctx context.Context, ids []int64) ([]Product, error)
	// CreateOrder persists a pending order with zero total and its items in
	// one step. OrderID of the given items is ignored.
	CreateOrder(ctx context.Context, items []OrderItem) (Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status Status) error

	// InTx runs fn inside a transaction. It commits when fn returns nil and
	// rolls back on every other exit path.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the slice of the store available inside InTx.
type Tx interface {
	// LockProducts takes exclusive row locks on the non-trashed products
	// among ids, ordered by id. It never waits: a lock held elsewhere
	// yields an error of kind KindLockUnavailable.
	LockProducts(ctx context.Context, ids []int64) ([]Product, error)
	UpdateStock(ctx context.Context, productID int64, stock int) error
	FinalizeOrder(ctx context.Context, orderID int64, total decimal.Decimal, status Status) error
}

type Store interface {
	ProductRepository
	OrderRepository
}
