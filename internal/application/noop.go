package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/abdidvp/ordersvc/internal/domain"
)

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) OrderPlaced(context.Context, *domain.Order) error { return nil }
func (NoopPublisher) Close() error                                     { return nil }

// NoopMetrics discards measurements.
type NoopMetrics struct{}

func (NoopMetrics) OrderPlaced(int, decimal.Decimal) {}
func (NoopMetrics) OrderRejected(string)             {}
func (NoopMetrics) StockConflict()                   {}
