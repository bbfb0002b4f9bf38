// Package sqlite implements domain.Store on an SQLite database through
// modernc.org/sqlite. It suits single-node use and tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abdidvp/ordersvc/internal/domain"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.Store.
type Store struct {
	db *sql.DB
	repositories
}

// Open opens (creating if needed) the database at dsn and ensures the schema
// exists. Use ":memory:" for a throwaway database.
func Open(dsn string) (*Store, error) {
	if dsn != ":memory:" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection serializes writers; concurrent placements queue here
	// instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if dsn == ":memory:" {
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, repositories: repositories{q: db}}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx runs fn with repositories bound to a single transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(repositories{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type repositories struct{ q querier }

func (r repositories) Customers() domain.CustomerRepository { return customerRepo(r) }
func (r repositories) Products() domain.ProductRepository   { return productRepo(r) }
func (r repositories) Orders() domain.OrderRepository       { return orderRepo(r) }

// --- customers ---

type customerRepo struct{ q querier }

func (r customerRepo) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM customers WHERE id = ?
	`, id)

	var (
		c                domain.Customer
		created, updated string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return &c, nil
}

func (r customerRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Email, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return &c, nil
}

// --- products ---

type productRepo struct{ q querier }

const productColumns = `id, name, price, quantity, version, created_at, updated_at`

func (r productRepo) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r productRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func (r productRepo) UpdateQuantities(ctx context.Context, updates []domain.InventoryUpdate) error {
	now := formatTime(time.Now().UTC())
	for _, u := range updates {
		res, err := r.q.ExecContext(ctx, `
			UPDATE products
			SET quantity = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?
		`, u.Quantity.StringFixed(domain.QuantityScale), now, u.ProductID, u.Version)
		if err != nil {
			return fmt.Errorf("update product %s: %w", u.ProductID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: product %s is no longer at version %d", domain.ErrStockConflict, u.ProductID, u.Version)
		}
	}
	return nil
}

func (r productRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.Version = 1
	p.Quantity = domain.NormalizeQuantity(p.Quantity)
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (id, name, price, quantity, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Price.String(), p.Quantity.StringFixed(domain.QuantityScale), p.Version,
		formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var (
			p                        domain.Product
			price, qty, created, upd string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &qty, &p.Version, &created, &upd); err != nil {
			return nil, err
		}
		var err error
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %s price: %w", p.ID, err)
		}
		if p.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("product %s quantity: %w", p.ID, err)
		}
		p.CreatedAt = parseTime(created)
		p.UpdatedAt = parseTime(upd)
		products = append(products, p)
	}
	return products, rows.Err()
}

// --- orders ---

type orderRepo struct{ q querier }

func (r orderRepo) Create(ctx context.Context, o domain.NewOrder) (*domain.Order, error) {
	now := formatTime(time.Now().UTC())
	orderID := uuid.NewString()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, created_at, updated_at) VALUES (?, ?, ?, ?)
	`, orderID, o.Customer.ID, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i, li := range o.Items {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO orders_products (id, order_id, product_id, position, price, quantity, balance, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), orderID, li.ProductID, i, li.Price.String(),
			domain.NormalizeQuantity(li.Quantity).StringFixed(domain.QuantityScale),
			li.Balance.StringFixed(domain.QuantityScale), now, now)
		if err != nil {
			return nil, fmt.Errorf("insert order item %s: %w", li.ProductID, err)
		}
	}

	order, err := r.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	customer := o.Customer
	order.Customer = &customer
	return order, nil
}

func (r orderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var (
		o                domain.Order
		created, updated string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, customer_id, created_at, updated_at FROM orders WHERE id = ?
	`, id).Scan(&o.ID, &o.CustomerID, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.CreatedAt = parseTime(created)
	o.UpdatedAt = parseTime(updated)

	if o.Customer, err = (customerRepo(r)).FindByID(ctx, o.CustomerID); err != nil {
		return nil, err
	}
	if o.Items, err = r.items(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r orderRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id FROM orders WHERE customer_id = ? ORDER BY created_at DESC, rowid DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if o != nil {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

func (r orderRepo) items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT op.id, op.order_id, op.product_id, p.name, op.price, op.quantity, op.balance,
		       op.created_at, op.updated_at
		FROM orders_products op
		JOIN products p ON p.id = op.product_id
		WHERE op.order_id = ?
		ORDER BY op.position
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			it                                domain.OrderItem
			price, qty, balance, created, upd string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&price, &qty, &balance, &created, &upd); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order item %s price: %w", it.ID, err)
		}
		if it.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("order item %s quantity: %w", it.ID, err)
		}
		if it.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("order item %s balance: %w", it.ID, err)
		}
		it.CreatedAt = parseTime(created)
		it.UpdatedAt = parseTime(upd)
		items = append(items, it)
	}
	return items, rows.Err()
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
