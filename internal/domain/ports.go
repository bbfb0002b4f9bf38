package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CustomerRepository resolves and registers customers.
type CustomerRepository interface {
	// FindByID returns (nil, nil) when no customer has the id.
	FindByID(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, c Customer) (*Customer, error)
}

// ProductRepository is the product catalog and the inventory writer.
type ProductRepository interface {
	// FindAllByID returns the products matching ids. Missing ids are
	// simply absent from the result; order is unspecified.
	FindAllByID(ctx context.Context, ids []string) ([]Product, error)
	// UpdateQuantities writes new quantities. Each write is conditional on
	// the product still being at update.Version; otherwise ErrStockConflict.
	UpdateQuantities(ctx context.Context, updates []InventoryUpdate) error
	Create(ctx context.Context, p Product) (*Product, error)
	List(ctx context.Context) ([]Product, error)
}

// OrderRepository is the order writer.
type OrderRepository interface {
	// Create assigns ids and timestamps and persists the order with its items.
	Create(ctx context.Context, o NewOrder) (*Order, error)
	// FindByID returns (nil, nil) when no order has the id.
	FindByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
}

// Repositories groups the repositories bound to one unit of work.
type Repositories interface {
	Customers() CustomerRepository
	Products() ProductRepository
	Orders() OrderRepository
}

// Transactor runs fn inside a single transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
}

// Store is a persistence backend: repositories usable outside a transaction
// plus the ability to open one.
type Store interface {
	Repositories
	Transactor
	Close() error
}

// EventPublisher announces committed orders to the outside world.
type EventPublisher interface {
	OrderPlaced(ctx context.Context, o *Order) error
	Close() error
}

// Metrics records order placement outcomes.
type Metrics interface {
	OrderPlaced(itemCount int, total decimal.Decimal)
	OrderRejected(kind string)
	StockConflict()
}
