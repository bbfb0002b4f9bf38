package application

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abdidvp/ordersvc/internal/domain"
)

const tracerName = "github.com/abdidvp/ordersvc/internal/application"

// OrderService orchestrates order placement:
// validate -> [customer -> products -> reconcile -> update stock -> create order] -> publish.
// The bracketed steps run in one transaction.
type OrderService struct {
	store       domain.Store
	events      domain.EventPublisher
	metrics     domain.Metrics
	logger      *zap.Logger
	tracer      trace.Tracer
	maxAttempts int
}

// OrderOption configures an OrderService.
type OrderOption func(*OrderService)

func WithEventPublisher(p domain.EventPublisher) OrderOption {
	return func(s *OrderService) { s.events = p }
}

func WithMetrics(m domain.Metrics) OrderOption {
	return func(s *OrderService) { s.metrics = m }
}

func WithLogger(l *zap.Logger) OrderOption {
	return func(s *OrderService) { s.logger = l }
}

func WithTracer(t trace.Tracer) OrderOption {
	return func(s *OrderService) { s.tracer = t }
}

// WithMaxAttempts bounds retries after ErrStockConflict. Values below 1 mean 1.
func WithMaxAttempts(n int) OrderOption {
	return func(s *OrderService) { s.maxAttempts = n }
}

func NewOrderService(store domain.Store, opts ...OrderOption) *OrderService {
	s := &OrderService{
		store:       store,
		events:      NoopPublisher{},
		metrics:     NoopMetrics{},
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(tracerName),
		maxAttempts: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 1
	}
	return s
}

// PlaceOrder validates the request against current stock, decrements
// inventory and persists the order. Nothing is written unless every item
// passes validation.
func (s *OrderService) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "place_order")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.customer_id", req.CustomerID),
		attribute.Int("order.item_count", len(req.Items)),
	)

	if err := domain.ValidateRequest(req); err != nil {
		return nil, s.reject(span, req, err)
	}

	var (
		order *domain.Order
		err   error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		order, err = s.placeOnce(ctx, req)
		if !errors.Is(err, domain.ErrStockConflict) {
			break
		}
		s.metrics.StockConflict()
		s.logger.Warn("stock changed during placement",
			zap.String("customer_id", req.CustomerID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts),
		)
	}
	if err != nil {
		return nil, s.reject(span, req, err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	span.SetStatus(codes.Ok, "order placed")

	total := order.Total()
	s.metrics.OrderPlaced(len(order.Items), total)
	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID),
		zap.Int("items", len(order.Items)),
		zap.String("total", total.StringFixed(2)),
	)

	// The order is committed at this point; a publish failure must not undo it.
	if err := s.events.OrderPlaced(ctx, order); err != nil {
		s.logger.Error("publishing order placed event",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	return order, nil
}

func (s *OrderService) placeOnce(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(tx domain.Repositories) error {
		customer, err := tx.Customers().FindByID(ctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("finding customer: %w", err)
		}
		if customer == nil {
			return fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, req.CustomerID)
		}

		products, err := tx.Products().FindAllByID(ctx, req.ProductIDs())
		if err != nil {
			return fmt.Errorf("finding products: %w", err)
		}

		rec, err := domain.Reconcile(req.Items, inRequestOrder(req.Items, products))
		if err != nil {
			return err
		}

		if err := tx.Products().UpdateQuantities(ctx, rec.Updates); err != nil {
			return fmt.Errorf("updating quantities: %w", err)
		}

		order, err = tx.Orders().Create(ctx, domain.NewOrder{Customer: *customer, Items: rec.LineItems})
		if err != nil {
			return fmt.Errorf("creating order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// inRequestOrder sorts the catalog rows the way the caller listed them. Stores
// return rows in lock (id) order, which would otherwise leak into line items.
func inRequestOrder(requested []domain.RequestedItem, products []domain.Product) []domain.Product {
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ordered := make([]domain.Product, 0, len(products))
	for _, it := range requested {
		if p, ok := byID[it.ProductID]; ok {
			ordered = append(ordered, p)
			delete(byID, it.ProductID)
		}
	}
	// Rows nobody asked for keep their place at the end so Reconcile still
	// sees the mismatch.
	for _, p := range products {
		if _, ok := byID[p.ID]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func (s *OrderService) reject(span trace.Span, req domain.PlaceOrderRequest, err error) error {
	kind := domain.ErrorKind(err)
	s.metrics.OrderRejected(kind)
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)

	fields := []zap.Field{
		zap.String("customer_id", req.CustomerID),
		zap.String("kind", kind),
		zap.Error(err),
	}
	if domain.IsValidationError(err) {
		s.logger.Info("order rejected", fields...)
	} else {
		s.logger.Error("order placement failed", fields...)
	}
	return err
}

// GetOrder returns an order with its items, or ErrOrderNotFound.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return order, nil
}

// ListCustomerOrders returns the customer's orders, newest first.
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	customer, err := s.store.Customers().FindByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("finding customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, customerID)
	}
	orders, err := s.store.Orders().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}
