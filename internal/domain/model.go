package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuantityScale is the number of decimal places stored for quantities.
const QuantityScale = 2

// Customer is a buyer that orders are placed for.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a catalog entry: the source of truth for price and available stock.
// Version is bumped on every quantity write and guards against lost updates.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RequestedItem is one product/quantity pair of a placement request.
type RequestedItem struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// PlaceOrderRequest is the input of the order placement workflow.
type PlaceOrderRequest struct {
	CustomerID string          `json:"customer_id"`
	Items      []RequestedItem `json:"items"`
}

// LineItem captures price and quantity at the time of sale, plus the
// balance the product had before the sale.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Balance   decimal.Decimal `json:"balance"`
}

// InventoryUpdate is the new available quantity of a product after a sale.
// Version is the product version the quantity was computed from.
type InventoryUpdate struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Version   int64           `json:"version"`
}

// NewOrder is what the order writer persists.
type NewOrder struct {
	Customer Customer
	Items    []LineItem
}

// Order is a persisted order with its line items.
type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id"`
	Customer   *Customer   `json:"customer,omitempty"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem is one persisted line of an order.
type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Subtotal returns price * quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(i.Quantity)
}

// Total returns the sum of all line subtotals, rounded to cents.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

// NormalizeQuantity rounds q to the stored quantity scale.
func NormalizeQuantity(q decimal.Decimal) decimal.Decimal {
	return q.Round(QuantityScale)
}

// ProductIDs returns the product ids of the request in request order.
func (r PlaceOrderRequest) ProductIDs() []string {
	ids := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}
