package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abdidvp/ordersvc/internal/adapters/outbound/config"
	"github.com/abdidvp/ordersvc/internal/adapters/outbound/events"
	"github.com/abdidvp/ordersvc/internal/adapters/outbound/logging"
	"github.com/abdidvp/ordersvc/internal/adapters/outbound/metrics"
	"github.com/abdidvp/ordersvc/internal/adapters/outbound/postgres"
	"github.com/abdidvp/ordersvc/internal/adapters/outbound/sqlite"
	"github.com/abdidvp/ordersvc/internal/adapters/outbound/tracing"
	"github.com/abdidvp/ordersvc/internal/application"
	"github.com/abdidvp/ordersvc/internal/domain"
)

// runtime is the wired service graph for one command invocation.
type runtime struct {
	cfg     domain.ServiceConfig
	logger  *zap.Logger
	store   domain.Store
	events  domain.EventPublisher
	metrics *metrics.Collector
	orders  *application.OrderService
	catalog *application.CatalogService

	metricsFile   string
	shutdownTrace tracing.ShutdownFunc
}

// loadConfig reads the config file and applies flag overrides.
func (o *rootOptions) loadConfig() (domain.ServiceConfig, error) {
	cfg, err := config.New().Load(o.configPath)
	if err != nil {
		return domain.ServiceConfig{}, err
	}
	if o.dbPath != "" {
		cfg.Database.Driver = domain.DriverSQLite
		cfg.Database.DSN = o.dbPath
	}
	return cfg, nil
}

// open builds the runtime from config. Callers must Close it.
func (o *rootOptions) open(ctx context.Context) (*runtime, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	shutdownTrace, err := tracing.Setup(ctx, cfg.Telemetry, "ordersvc", version)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, errors.Join(err, shutdownTrace(ctx))
	}

	var publisher domain.EventPublisher = application.NoopPublisher{}
	if cfg.EventsEnabled() {
		publisher = events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
	}

	collector := metrics.NewCollector()

	r := &runtime{
		cfg:           cfg,
		logger:        logger,
		store:         store,
		events:        publisher,
		metrics:       collector,
		metricsFile:   o.metricsFile,
		shutdownTrace: shutdownTrace,
	}
	r.orders = application.NewOrderService(store,
		application.WithEventPublisher(publisher),
		application.WithMetrics(collector),
		application.WithLogger(logger),
		application.WithMaxAttempts(cfg.Order.MaxAttempts),
	)
	r.catalog = application.NewCatalogService(store, logger)

	logger.Debug("runtime ready",
		zap.String("driver", string(cfg.Database.Driver)),
		zap.Bool("events", cfg.EventsEnabled()),
	)
	return r, nil
}

func openStore(ctx context.Context, cfg domain.DatabaseConfig) (domain.Store, error) {
	switch cfg.Driver {
	case domain.DriverPostgres:
		return postgres.Open(ctx, postgres.Config{URL: cfg.DSN, MaxConns: cfg.MaxConns})
	case domain.DriverSQLite, "":
		return sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Close releases every resource, flushing events, metrics and spans.
func (r *runtime) Close(ctx context.Context) error {
	var errs []error
	if err := r.events.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing event publisher: %w", err))
	}
	if err := r.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	if r.metricsFile != "" {
		if err := r.metrics.WriteTextfile(r.metricsFile); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}
	if err := r.shutdownTrace(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down tracing: %w", err))
	}
	_ = r.logger.Sync()
	return errors.Join(errs...)
}

// withRuntime opens the runtime, runs fn and closes it, keeping fn's error first.
func (o *rootOptions) withRuntime(ctx context.Context, fn func(*runtime) error) (err error) {
	r, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(r)
}
