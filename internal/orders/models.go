package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Trashed     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID         int64
	TotalPrice decimal.Decimal // authoritative only once Status is terminal
	Status     Status          // lihat status.go
	Trashed    bool
	Items      []OrderItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem is a frozen snapshot of what was requested. Its existence says
// nothing about stock having been deducted; only a completed parent does.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Product   *Product // filled on reads
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is one requested (product, quantity) pair as received from a client.
type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
