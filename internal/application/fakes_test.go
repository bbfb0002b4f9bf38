package application_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abdidvp/ordersvc/internal/domain"
)

// memStore is an in-memory domain.Store that counts port calls and restores
// its state when a transaction fails.
type memStore struct {
	mu        sync.Mutex
	customers map[string]domain.Customer
	products  map[string]domain.Product
	orders    []domain.Order

	customerLookups int
	productLookups  int
	updateCalls     int
	orderCreates    int

	// conflicts makes the next N UpdateQuantities calls fail with ErrStockConflict.
	conflicts int
	updateErr error
	createErr error
}

func newMemStore() *memStore {
	return &memStore{
		customers: map[string]domain.Customer{},
		products:  map[string]domain.Product{},
	}
}

func (s *memStore) addCustomer(id string) {
	s.customers[id] = domain.Customer{ID: id, Name: "customer " + id}
}

func (s *memStore) addProduct(id, price, qty string) {
	s.products[id] = domain.Product{
		ID:       id,
		Name:     "product " + id,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
		Version:  1,
	}
}

func (s *memStore) quantity(id string) string {
	return s.products[id].Quantity.StringFixed(2)
}

func (s *memStore) writes() int { return s.updateCalls + s.orderCreates }

func (s *memStore) Customers() domain.CustomerRepository { return memCustomers{s} }
func (s *memStore) Products() domain.ProductRepository   { return memProducts{s} }
func (s *memStore) Orders() domain.OrderRepository       { return memOrders{s} }
func (s *memStore) Close() error                         { return nil }

func (s *memStore) WithinTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	products := make(map[string]domain.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	orders := append([]domain.Order(nil), s.orders...)

	if err := fn(s); err != nil {
		s.products = products
		s.orders = orders
		return err
	}
	return nil
}

type memCustomers struct{ s *memStore }

func (r memCustomers) FindByID(_ context.Context, id string) (*domain.Customer, error) {
	r.s.customerLookups++
	c, ok := r.s.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r memCustomers) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	c.ID = uuid.NewString()
	r.s.customers[c.ID] = c
	return &c, nil
}

type memProducts struct{ s *memStore }

func (r memProducts) FindAllByID(_ context.Context, ids []string) ([]domain.Product, error) {
	r.s.productLookups++
	var out []domain.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	// Real stores return rows in primary key order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memProducts) UpdateQuantities(_ context.Context, updates []domain.InventoryUpdate) error {
	r.s.updateCalls++
	if r.s.updateErr != nil {
		return r.s.updateErr
	}
	if r.s.conflicts > 0 {
		r.s.conflicts--
		return domain.ErrStockConflict
	}
	for _, u := range updates {
		p := r.s.products[u.ProductID]
		if p.Version != u.Version {
			return domain.ErrStockConflict
		}
		p.Quantity = u.Quantity
		p.Version++
		r.s.products[u.ProductID] = p
	}
	return nil
}

func (r memProducts) Create(_ context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = uuid.NewString()
	p.Version = 1
	r.s.products[p.ID] = p
	return &p, nil
}

func (r memProducts) List(context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memOrders struct{ s *memStore }

func (r memOrders) Create(_ context.Context, o domain.NewOrder) (*domain.Order, error) {
	r.s.orderCreates++
	if r.s.createErr != nil {
		return nil, r.s.createErr
	}
	now := time.Now()
	order := domain.Order{
		ID:         uuid.NewString(),
		CustomerID: o.Customer.ID,
		Customer:   &o.Customer,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, li := range o.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			ProductID:   li.ProductID,
			ProductName: r.s.products[li.ProductID].Name,
			Price:       li.Price,
			Quantity:    li.Quantity,
			Balance:     li.Balance,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	r.s.orders = append(r.s.orders, order)
	return &order, nil
}

func (r memOrders) FindByID(_ context.Context, id string) (*domain.Order, error) {
	for _, o := range r.s.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, nil
}

func (r memOrders) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	var out []domain.Order
	for i := len(r.s.orders) - 1; i >= 0; i-- {
		if r.s.orders[i].CustomerID == customerID {
			out = append(out, r.s.orders[i])
		}
	}
	return out, nil
}

type recordingPublisher struct {
	published []string
	err       error
}

func (p *recordingPublisher) OrderPlaced(_ context.Context, o *domain.Order) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, o.ID)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMetrics struct {
	placed    int
	items     int
	rejected  map[string]int
	conflicts int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{rejected: map[string]int{}}
}

func (m *recordingMetrics) OrderPlaced(itemCount int, _ decimal.Decimal) {
	m.placed++
	m.items += itemCount
}
func (m *recordingMetrics) OrderRejected(kind string) { m.rejected[kind]++ }
func (m *recordingMetrics) StockConflict()            { m.conflicts++ }

var errBoom = errors.New("boom")
