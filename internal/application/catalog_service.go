package application

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/abdidvp/ordersvc/internal/domain"
)

const restockAttempts = 3

// CatalogService manages customers and products.
type CatalogService struct {
	store  domain.Store
	logger *zap.Logger
}

func NewCatalogService(store domain.Store, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{store: store, logger: logger}
}

// RegisterCustomer creates a customer. Email is optional but must parse when given.
func (s *CatalogService) RegisterCustomer(ctx context.Context, name, email string) (*domain.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: customer name is required", domain.ErrInvalidRequest)
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: email %q: %v", domain.ErrInvalidRequest, email, err)
		}
	}

	c, err := s.store.Customers().Create(ctx, domain.Customer{Name: name, Email: email})
	if err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}
	s.logger.Info("customer registered", zap.String("customer_id", c.ID))
	return c, nil
}

// AddProduct creates a catalog product with an initial stock.
func (s *CatalogService) AddProduct(ctx context.Context, name string, price, quantity decimal.Decimal) (*domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidRequest)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price %s must not be negative", domain.ErrInvalidRequest, price)
	}
	quantity = domain.NormalizeQuantity(quantity)
	if quantity.IsNegative() {
		return nil, fmt.Errorf("%w: quantity %s must not be negative", domain.ErrInvalidQuantity, quantity)
	}

	p, err := s.store.Products().Create(ctx, domain.Product{Name: name, Price: price, Quantity: quantity})
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}
	s.logger.Info("product added",
		zap.String("product_id", p.ID),
		zap.String("quantity", p.Quantity.StringFixed(domain.QuantityScale)),
	)
	return p, nil
}

// Restock adds quantity to a product's available stock.
func (s *CatalogService) Restock(ctx context.Context, productID string, quantity decimal.Decimal) (*domain.Product, error) {
	quantity = domain.NormalizeQuantity(quantity)
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("%w: restock quantity %s must be positive", domain.ErrInvalidQuantity, quantity)
	}

	var (
		updated *domain.Product
		err     error
	)
	for attempt := 1; attempt <= restockAttempts; attempt++ {
		updated, err = s.restockOnce(ctx, productID, quantity)
		if !errors.Is(err, domain.ErrStockConflict) {
			break
		}
		s.logger.Warn("stock changed during restock", zap.String("product_id", productID), zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *CatalogService) restockOnce(ctx context.Context, productID string, quantity decimal.Decimal) (*domain.Product, error) {
	var updated *domain.Product
	err := s.store.WithinTx(ctx, func(tx domain.Repositories) error {
		found, err := tx.Products().FindAllByID(ctx, []string{productID})
		if err != nil {
			return fmt.Errorf("finding product: %w", err)
		}
		if len(found) == 0 {
			return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}

		p := found[0]
		p.Quantity = domain.NormalizeQuantity(p.Quantity.Add(quantity))
		err = tx.Products().UpdateQuantities(ctx, []domain.InventoryUpdate{
			{ProductID: p.ID, Quantity: p.Quantity, Version: p.Version},
		})
		if err != nil {
			return fmt.Errorf("updating quantity: %w", err)
		}
		p.Version++
		updated = &p
		return nil
	})
	return updated, err
}

// GetProduct returns a product or ErrProductNotFound.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	found, err := s.store.Products().FindAllByID(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("finding product: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return &found[0], nil
}

// ListProducts returns the whole catalog ordered by name.
func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.store.Products().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}
