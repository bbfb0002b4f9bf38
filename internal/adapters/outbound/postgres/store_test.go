package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdidvp/ordersvc/internal/adapters/outbound/postgres"
	"github.com/abdidvp/ordersvc/internal/application"
	"github.com/abdidvp/ordersvc/internal/domain"
)

// These tests need a live database. Set ORDERSVC_POSTGRES_DSN to run them.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("ORDERSVC_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ORDERSVC_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := postgres.Open(ctx, postgres.Config{URL: dsn, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.Pool().Exec(ctx, `TRUNCATE orders_products, orders, products, customers`)
	require.NoError(t, err)
	return store
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStore_PlaceOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c, err := store.Customers().Create(ctx, domain.Customer{Name: "C1"})
	require.NoError(t, err)
	p1, err := store.Products().Create(ctx, domain.Product{Name: "P1", Price: d("10.00"), Quantity: d("5")})
	require.NoError(t, err)
	p2, err := store.Products().Create(ctx, domain.Product{Name: "P2", Price: d("20.00"), Quantity: d("1")})
	require.NoError(t, err)

	svc := application.NewOrderService(store)
	order, err := svc.PlaceOrder(ctx, domain.PlaceOrderRequest{
		CustomerID: c.ID,
		Items: []domain.RequestedItem{
			{ProductID: p1.ID, Quantity: d("2")},
			{ProductID: p2.ID, Quantity: d("1")},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "40.00", order.Total().StringFixed(2))
	assert.Equal(t, "5.00", order.Items[0].Balance.StringFixed(2))

	found, err := store.Products().FindAllByID(ctx, []string{p1.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "3.00", found[0].Quantity.StringFixed(2))
	assert.Equal(t, int64(2), found[0].Version)

	_, err = svc.PlaceOrder(ctx, domain.PlaceOrderRequest{
		CustomerID: c.ID,
		Items:      []domain.RequestedItem{{ProductID: p2.ID, Quantity: d("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	orders, err := store.Orders().ListByCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestStore_StaleVersionConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.Products().Create(ctx, domain.Product{Name: "P1", Price: d("1"), Quantity: d("5")})
	require.NoError(t, err)

	require.NoError(t, store.Products().UpdateQuantities(ctx, []domain.InventoryUpdate{
		{ProductID: p.ID, Quantity: d("4"), Version: 1},
	}))
	err = store.Products().UpdateQuantities(ctx, []domain.InventoryUpdate{
		{ProductID: p.ID, Quantity: d("2"), Version: 1},
	})
	assert.ErrorIs(t, err, domain.ErrStockConflict)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.Products().Create(ctx, domain.Product{Name: "P1", Price: d("1"), Quantity: d("5")})
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(tx domain.Repositories) error {
		if err := tx.Products().UpdateQuantities(ctx, []domain.InventoryUpdate{
			{ProductID: p.ID, Quantity: d("0"), Version: 1},
		}); err != nil {
			return err
		}
		_, err := tx.Orders().Create(ctx, domain.NewOrder{
			Customer: domain.Customer{ID: "ghost"},
			Items:    []domain.LineItem{{ProductID: p.ID, Price: d("1"), Quantity: d("5"), Balance: d("5")}},
		})
		return err
	})
	require.Error(t, err)

	found, err := store.Products().FindAllByID(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Equal(t, "5.00", found[0].Quantity.StringFixed(2))
}

func TestStore_MissingRowsReturnNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c, err := store.Customers().FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, c)

	o, err := store.Orders().FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, o)
}
