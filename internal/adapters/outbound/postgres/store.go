// Package postgres implements domain.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/abdidvp/ordersvc/internal/domain"
)

//go:embed schema.sql
var schema string

// Config holds PostgreSQL connection configuration.
type Config struct {
	URL      string
	MaxConns int32
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.Store.
type Store struct {
	pool *pgxpool.Pool
	repositories
}

// Open connects to PostgreSQL and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse pg config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{pool: pool, repositories: repositories{q: pool}}, nil
}

// Pool returns the underlying pgxpool.Pool.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// WithinTx runs fn with repositories bound to a single transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(repositories{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type repositories struct{ q querier }

func (r repositories) Customers() domain.CustomerRepository { return customerRepo(r) }
func (r repositories) Products() domain.ProductRepository   { return productRepo(r) }
func (r repositories) Orders() domain.OrderRepository       { return orderRepo(r) }

// Decimals travel as text in both directions so no precision is lost to
// float conversion: parameters are cast with ::text::numeric, columns read
// back with ::text.

type customerRepo struct{ q querier }

func (r customerRepo) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.q.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at FROM customers WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer %q: %w", id, err)
	}
	return &c, nil
}

func (r customerRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	c.ID = uuid.NewString()
	err := r.q.QueryRow(ctx, `
		INSERT INTO customers (id, name, email) VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Email).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return &c, nil
}

type productRepo struct{ q querier }

const productColumns = `id, name, price::text, quantity::text, version, created_at, updated_at`

// FindAllByID locks the returned rows until the surrounding transaction
// ends. Rows are locked in id order so concurrent placements cannot deadlock.
func (r productRepo) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	return scanProducts(rows)
}

func (r productRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return scanProducts(rows)
}

func (r productRepo) UpdateQuantities(ctx context.Context, updates []domain.InventoryUpdate) error {
	for _, u := range updates {
		tag, err := r.q.Exec(ctx, `
			UPDATE products
			SET quantity = $1::text::numeric, version = version + 1, updated_at = NOW()
			WHERE id = $2 AND version = $3
		`, u.Quantity.StringFixed(domain.QuantityScale), u.ProductID, u.Version)
		if err != nil {
			return fmt.Errorf("update product %s: %w", u.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: product %s is no longer at version %d", domain.ErrStockConflict, u.ProductID, u.Version)
		}
	}
	return nil
}

func (r productRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = uuid.NewString()
	p.Version = 1
	p.Quantity = domain.NormalizeQuantity(p.Quantity)
	err := r.q.QueryRow(ctx, `
		INSERT INTO products (id, name, price, quantity, version)
		VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Price.String(), p.Quantity.StringFixed(domain.QuantityScale), p.Version).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var (
			p          domain.Product
			price, qty string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &qty, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		var err error
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %s price: %w", p.ID, err)
		}
		if p.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("product %s quantity: %w", p.ID, err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type orderRepo struct{ q querier }

func (r orderRepo) Create(ctx context.Context, o domain.NewOrder) (*domain.Order, error) {
	orderID := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (id, customer_id, created_at, updated_at) VALUES ($1, $2, $3, $3)
	`, orderID, o.Customer.ID, now)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i, li := range o.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO orders_products (id, order_id, product_id, position, price, quantity, balance, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7::text::numeric, $8, $8)
		`, uuid.NewString(), orderID, li.ProductID, i, li.Price.String(),
			domain.NormalizeQuantity(li.Quantity).StringFixed(domain.QuantityScale),
			li.Balance.StringFixed(domain.QuantityScale), now)
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
	var o domain.Order
	err := r.q.QueryRow(ctx, `
		SELECT id, customer_id, created_at, updated_at FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.CustomerID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %q: %w", id, err)
	}

	if o.Customer, err = (customerRepo(r)).FindByID(ctx, o.CustomerID); err != nil {
		return nil, err
	}
	if o.Items, err = r.items(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r orderRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
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
	rows, err := r.q.Query(ctx, `
		SELECT op.id, op.order_id, op.product_id, p.name, op.price::text, op.quantity::text,
		       op.balance::text, op.created_at, op.updated_at
		FROM orders_products op
		JOIN products p ON p.id = op.product_id
		WHERE op.order_id = $1
		ORDER BY op.position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			it                  domain.OrderItem
			price, qty, balance string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&price, &qty, &balance, &it.CreatedAt, &it.UpdatedAt); err != nil {
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
		items = append(items, it)
	}
	return items, rows.Err()
}
