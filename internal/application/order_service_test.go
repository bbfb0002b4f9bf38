package application_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abdidvp/ordersvc/internal/application"
	"github.com/abdidvp/ordersvc/internal/domain"
)

func req(customer string, items ...domain.RequestedItem) domain.PlaceOrderRequest {
	return domain.PlaceOrderRequest{CustomerID: customer, Items: items}
}

func ri(id, qty string) domain.RequestedItem {
	return domain.RequestedItem{ProductID: id, Quantity: decimal.RequireFromString(qty)}
}

func exampleStore() *memStore {
	s := newMemStore()
	s.addCustomer("C1")
	s.addProduct("P1", "10.00", "5")
	s.addProduct("P2", "20.00", "1")
	return s
}

func TestOrderService_PlaceOrder(t *testing.T) {
	store := exampleStore()
	pub := &recordingPublisher{}
	metrics := newRecordingMetrics()
	svc := application.NewOrderService(store,
		application.WithEventPublisher(pub),
		application.WithMetrics(metrics),
	)

	order, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "2"), ri("P2", "1")))
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "C1", order.CustomerID)
	require.NotNil(t, order.Customer)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "P1", order.Items[0].ProductID)
	assert.Equal(t, "product P1", order.Items[0].ProductName)
	assert.Equal(t, "10.00", order.Items[0].Price.StringFixed(2))
	assert.Equal(t, "2.00", order.Items[0].Quantity.StringFixed(2))
	assert.Equal(t, "5.00", order.Items[0].Balance.StringFixed(2))
	assert.Equal(t, "P2", order.Items[1].ProductID)
	assert.Equal(t, "20.00", order.Items[1].Price.StringFixed(2))
	assert.Equal(t, "1.00", order.Items[1].Quantity.StringFixed(2))
	assert.Equal(t, "40.00", order.Total().StringFixed(2))

	assert.Equal(t, "3.00", store.quantity("P1"))
	assert.Equal(t, "0.00", store.quantity("P2"))

	assert.Equal(t, []string{order.ID}, pub.published)
	assert.Equal(t, 1, metrics.placed)
	assert.Equal(t, 2, metrics.items)
}

func TestOrderService_LineItemsFollowRequestOrder(t *testing.T) {
	store := newMemStore()
	store.addCustomer("C1")
	store.addProduct("A", "1.00", "10")
	store.addProduct("B", "2.00", "10")
	store.addProduct("C", "3.00", "10")
	svc := application.NewOrderService(store)

	order, err := svc.PlaceOrder(context.Background(), req("C1", ri("C", "3"), ri("A", "1"), ri("B", "2")))
	require.NoError(t, err)

	require.Len(t, order.Items, 3)
	assert.Equal(t, "C", order.Items[0].ProductID)
	assert.Equal(t, "3.00", order.Items[0].Quantity.StringFixed(2))
	assert.Equal(t, "A", order.Items[1].ProductID)
	assert.Equal(t, "B", order.Items[2].ProductID)
	assert.Equal(t, "7.00", store.quantity("C"))
}

func TestOrderService_CustomerNotFound(t *testing.T) {
	store := exampleStore()
	metrics := newRecordingMetrics()
	svc := application.NewOrderService(store, application.WithMetrics(metrics))

	_, err := svc.PlaceOrder(context.Background(), req("C404", ri("P1", "1")))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	assert.Equal(t, 1, store.customerLookups)
	assert.Equal(t, 0, store.productLookups, "no catalog lookup after missing customer")
	assert.Equal(t, 0, store.writes())
	assert.Equal(t, 1, metrics.rejected["CustomerNotFound"])
}

func TestOrderService_InvalidProductList(t *testing.T) {
	store := exampleStore()
	svc := application.NewOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "1"), ri("P2", "1"), ri("P3", "1")))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidProductList)
	assert.Equal(t, 0, store.writes())
	assert.Equal(t, "5.00", store.quantity("P1"))
}

func TestOrderService_InsufficientStock(t *testing.T) {
	store := exampleStore()
	pub := &recordingPublisher{}
	svc := application.NewOrderService(store, application.WithEventPublisher(pub))

	_, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "2"), ri("P2", "2")))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, 0, store.writes(), "no write may happen before validation passes")
	assert.Equal(t, "5.00", store.quantity("P1"))
	assert.Equal(t, "1.00", store.quantity("P2"))
	assert.Empty(t, store.orders)
	assert.Empty(t, pub.published)
}

func TestOrderService_RejectsMalformedRequestsBeforeLookup(t *testing.T) {
	tests := []struct {
		name string
		req  domain.PlaceOrderRequest
		want error
	}{
		{"empty", req("C1"), domain.ErrEmptyOrder},
		{"duplicate", req("C1", ri("P1", "1"), ri("P1", "1")), domain.ErrDuplicateProduct},
		{"zero", req("C1", ri("P1", "0")), domain.ErrInvalidQuantity},
		{"no customer", req("", ri("P1", "1")), domain.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := exampleStore()
			svc := application.NewOrderService(store)

			_, err := svc.PlaceOrder(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, store.customerLookups)
			assert.Equal(t, 0, store.productLookups)
		})
	}
}

func TestOrderService_OrderWriteFailureRollsBackInventory(t *testing.T) {
	store := exampleStore()
	store.createErr = errBoom
	svc := application.NewOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "2")))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "creating order")
	assert.Equal(t, "PersistenceFailure", domain.ErrorKind(err))

	assert.Equal(t, 1, store.updateCalls)
	assert.Equal(t, "5.00", store.quantity("P1"), "inventory must not change when the order is not created")
}

func TestOrderService_InventoryWriteFailure(t *testing.T) {
	store := exampleStore()
	store.updateErr = errBoom
	svc := application.NewOrderService(store)

	_, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "2")))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, store.orderCreates)
}

func TestOrderService_RetriesStockConflict(t *testing.T) {
	store := exampleStore()
	store.conflicts = 2
	metrics := newRecordingMetrics()
	svc := application.NewOrderService(store,
		application.WithMaxAttempts(3),
		application.WithMetrics(metrics),
	)

	order, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "1")))
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, 3, store.productLookups, "catalog is re-read on every attempt")
	assert.Equal(t, 2, metrics.conflicts)
	assert.Equal(t, "4.00", store.quantity("P1"))
}

func TestOrderService_GivesUpAfterMaxAttempts(t *testing.T) {
	store := exampleStore()
	store.conflicts = 5
	metrics := newRecordingMetrics()
	svc := application.NewOrderService(store,
		application.WithMaxAttempts(2),
		application.WithMetrics(metrics),
	)

	_, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "1")))
	assert.ErrorIs(t, err, domain.ErrStockConflict)
	assert.Equal(t, 2, store.updateCalls)
	assert.Equal(t, 1, metrics.rejected["StockConflict"])
	assert.Equal(t, "5.00", store.quantity("P1"))
}

func TestOrderService_ZeroMaxAttemptsStillTriesOnce(t *testing.T) {
	store := exampleStore()
	svc := application.NewOrderService(store, application.WithMaxAttempts(0))

	_, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "1")))
	assert.NoError(t, err)
}

func TestOrderService_PublishFailureDoesNotFailOrder(t *testing.T) {
	store := exampleStore()
	core, logs := observer.New(zapcore.InfoLevel)
	svc := application.NewOrderService(store,
		application.WithEventPublisher(&recordingPublisher{err: errBoom}),
		application.WithLogger(zap.New(core)),
	)

	order, err := svc.PlaceOrder(context.Background(), req("C1", ri("P1", "1")))
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Len(t, store.orders, 1)

	failures := logs.FilterMessage("publishing order placed event").All()
	require.Len(t, failures, 1)
	assert.Equal(t, order.ID, failures[0].ContextMap()["order_id"])
}

func TestOrderService_LogsRejectionsAtInfo(t *testing.T) {
	store := exampleStore()
	core, logs := observer.New(zapcore.InfoLevel)
	svc := application.NewOrderService(store, application.WithLogger(zap.New(core)))

	_, err := svc.PlaceOrder(context.Background(), req("C1", ri("P2", "2")))
	require.Error(t, err)

	entries := logs.FilterMessage("order rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "InsufficientStock", entries[0].ContextMap()["kind"])
}

func TestOrderService_SequentialOrdersDrainStock(t *testing.T) {
	store := exampleStore()
	svc := application.NewOrderService(store)
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, req("C1", ri("P1", "3")))
	require.NoError(t, err)
	_, err = svc.PlaceOrder(ctx, req("C1", ri("P1", "3")))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "2.00", store.quantity("P1"))
}

func TestOrderService_GetOrder(t *testing.T) {
	store := exampleStore()
	svc := application.NewOrderService(store)
	ctx := context.Background()

	placed, err := svc.PlaceOrder(ctx, req("C1", ri("P1", "1")))
	require.NoError(t, err)

	got, err := svc.GetOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)

	_, err = svc.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderService_ListCustomerOrders(t *testing.T) {
	store := exampleStore()
	svc := application.NewOrderService(store)
	ctx := context.Background()

	first, err := svc.PlaceOrder(ctx, req("C1", ri("P1", "1")))
	require.NoError(t, err)
	second, err := svc.PlaceOrder(ctx, req("C1", ri("P2", "1")))
	require.NoError(t, err)

	orders, err := svc.ListCustomerOrders(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	_, err = svc.ListCustomerOrders(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}
