package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrInvalidProductList = errors.New("invalid product list")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrDuplicateProduct   = errors.New("duplicate product in request")
	ErrEmptyOrder         = errors.New("order has no items")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")

	// ErrStockConflict means a product changed between read and write.
	// Unlike the others it is retryable.
	ErrStockConflict = errors.New("stock changed concurrently")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrCustomerNotFound, "CustomerNotFound"},
	{ErrInvalidProductList, "InvalidProductList"},
	{ErrInsufficientStock, "InsufficientStock"},
	{ErrDuplicateProduct, "DuplicateProduct"},
	{ErrEmptyOrder, "EmptyOrder"},
	{ErrInvalidQuantity, "InvalidQuantity"},
	{ErrInvalidRequest, "InvalidRequest"},
	{ErrOrderNotFound, "OrderNotFound"},
	{ErrProductNotFound, "ProductNotFound"},
	{ErrStockConflict, "StockConflict"},
}

// ErrorKind returns the CamelCase kind name of a domain error, or
// "PersistenceFailure" for anything that is not one.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "PersistenceFailure"
}

// IsValidationError reports whether err is a user-facing, non-retryable
// rejection of the request.
func IsValidationError(err error) bool {
	switch ErrorKind(err) {
	case "", "PersistenceFailure", "StockConflict":
		return false
	}
	return true
}

func insufficientStock(p Product, requested string) error {
	return fmt.Errorf("%w: product %s requested %s, available %s",
		ErrInsufficientStock, p.ID, requested, p.Quantity.StringFixed(QuantityScale))
}
