// Package metrics records order metrics on a private Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "ordersvc"

// Collector implements domain.Metrics.
type Collector struct {
	registry *prometheus.Registry

	OrdersPlaced   prometheus.Counter
	ItemsSold      prometheus.Counter
	Revenue        prometheus.Counter
	OrdersRejected *prometheus.CounterVec
	StockConflicts prometheus.Counter
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Total number of orders placed",
		}),
		ItemsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_items_total",
			Help:      "Total number of line items across placed orders",
		}),
		Revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_revenue_total",
			Help:      "Sum of placed order totals",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Total number of rejected placements by error kind",
		}, []string{"kind"}),
		StockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_conflicts_total",
			Help:      "Placements retried because stock changed concurrently",
		}),
	}
	reg.MustRegister(c.OrdersPlaced, c.ItemsSold, c.Revenue, c.OrdersRejected, c.StockConflicts)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) OrderPlaced(itemCount int, total decimal.Decimal) {
	c.OrdersPlaced.Inc()
	c.ItemsSold.Add(float64(itemCount))
	c.Revenue.Add(total.InexactFloat64())
}

func (c *Collector) OrderRejected(kind string) {
	c.OrdersRejected.WithLabelValues(kind).Inc()
}

func (c *Collector) StockConflict() {
	c.StockConflicts.Inc()
}

// WriteTextfile writes the current values in the text exposition format,
// suitable for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
