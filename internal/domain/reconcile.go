package domain

import "fmt"

// Reconciliation is the result of matching a request against the catalog:
// one line item and one inventory update per catalog product, in catalog order.
type Reconciliation struct {
	LineItems []LineItem
	Updates   []InventoryUpdate
}

// Reconcile validates requested items against the catalog products returned
// for them and computes the line items and post-sale quantities.
// It never writes anything and never mutates its inputs.
func Reconcile(requested []RequestedItem, catalog []Product) (Reconciliation, error) {
	if len(catalog) != len(requested) {
		return Reconciliation{}, fmt.Errorf("%w: requested %d products, found %d",
			ErrInvalidProductList, len(requested), len(catalog))
	}

	res := Reconciliation{
		LineItems: make([]LineItem, 0, len(catalog)),
		Updates:   make([]InventoryUpdate, 0, len(catalog)),
	}
	for _, p := range catalog {
		item, ok := findRequested(requested, p.ID)
		if !ok {
			// Same cardinality but a product we never asked for.
			return Reconciliation{}, fmt.Errorf("%w: unexpected product %s", ErrInvalidProductList, p.ID)
		}
		qty := NormalizeQuantity(item.Quantity)
		if qty.GreaterThan(p.Quantity) {
			return Reconciliation{}, insufficientStock(p, qty.StringFixed(QuantityScale))
		}

		res.LineItems = append(res.LineItems, LineItem{
			ProductID: p.ID,
			Price:     p.Price,
			Quantity:  qty,
			Balance:   p.Quantity,
		})
		res.Updates = append(res.Updates, InventoryUpdate{
			ProductID: p.ID,
			Quantity:  NormalizeQuantity(p.Quantity.Sub(qty)),
			Version:   p.Version,
		})
	}
	return res, nil
}

// findRequested returns the first requested item for productID.
func findRequested(requested []RequestedItem, productID string) (RequestedItem, bool) {
	for _, it := range requested {
		if it.ProductID == productID {
			return it, true
		}
	}
	return RequestedItem{}, false
}

// ValidateRequest checks the shape of a placement request before any lookup:
// a customer id, at least one item, positive quantities and no product twice.
func ValidateRequest(req PlaceOrderRequest) error {
	if req.CustomerID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidRequest)
	}
	if len(req.Items) == 0 {
		return ErrEmptyOrder
	}

	seen := make(map[string]bool, len(req.Items))
	for i, it := range req.Items {
		if it.ProductID == "" {
			return fmt.Errorf("%w: item %d has no product id", ErrInvalidRequest, i)
		}
		if !NormalizeQuantity(it.Quantity).IsPositive() {
			return fmt.Errorf("%w: product %s quantity %s must be positive",
				ErrInvalidQuantity, it.ProductID, it.Quantity.String())
		}
		if seen[it.ProductID] {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}
