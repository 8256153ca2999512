package orders

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a record does not exist or is trashed.
var ErrNotFound = errors.New("record not found")

type Kind string

const (
	KindProductNotFound   Kind = "product_not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindLockUnavailable   Kind = "lock_unavailable"
	KindUnexpected        Kind = "unexpected"
)

// Error is the tagged error of the order pipeline. Kind is the contract;
// Error() is only a rendering of it.
type Error struct {
	Kind    Kind
	Product string // name of the under-stocked product
	Err     error
}

var (
	ErrProductNotFound   = &Error{Kind: KindProductNotFound}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrLockUnavailable   = &Error{Kind: KindLockUnavailable}
	ErrUnexpected        = &Error{Kind: KindUnexpected}
)

func InsufficientStock(productName string) *Error {
	return &Error{Kind: KindInsufficientStock, Product: productName}
}

func LockUnavailable(cause error) *Error {
	return &Error{Kind: KindLockUnavailable, Err: cause}
}

func Unexpected(cause error) *Error {
	return &Error{Kind: KindUnexpected, Err: cause}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindProductNotFound:
		return "Product(s) not found"
	case KindInsufficientStock:
		return fmt.Sprintf("Not enough stock for product %s", e.Product)
	case KindLockUnavailable:
		return "Product stock is being updated by another order, try again"
	default:
		return "An error occurred while processing the order"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind. A target without a product name matches any product.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Product == "" || t.Product == e.Product
}

// KindOf returns the kind carried by err, KindUnexpected for foreign errors
// and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// classify makes sure every error leaving the pipeline is an *Error.
func classify(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unexpected(err)
}
