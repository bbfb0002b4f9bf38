package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdidvp/ordersvc/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = ".ordersvc.yaml"

// YAMLLoader reads .ordersvc.yaml.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads the config file at path. An empty path means FileName in the
// working directory. Returns DefaultConfig if the file does not exist.
func (l *YAMLLoader) Load(path string) (domain.ServiceConfig, error) {
	if path == "" {
		path = FileName
	}
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultConfig(), nil
		}
		return domain.ServiceConfig{}, err
	}

	var cfg domain.ServiceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.ServiceConfig{}, fmt.Errorf("parsing %s: %w", name, err)
	}

	// Validate the raw input so typos are reported before defaults hide them.
	if err := cfg.Validate(); err != nil {
		return domain.ServiceConfig{}, fmt.Errorf("invalid %s: %w", name, err)
	}

	return mergeConfig(domain.DefaultConfig(), cfg), nil
}

// mergeConfig overlays explicit (non-zero) values on top of base.
func mergeConfig(base, override domain.ServiceConfig) domain.ServiceConfig {
	result := base

	if override.Database.Driver != "" {
		result.Database.Driver = override.Database.Driver
		// A different driver never inherits the sqlite default file.
		if override.Database.Driver != base.Database.Driver {
			result.Database.DSN = ""
		}
	}
	if override.Database.DSN != "" {
		result.Database.DSN = override.Database.DSN
	}
	if override.Database.MaxConns > 0 {
		result.Database.MaxConns = override.Database.MaxConns
	}

	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		result.Log.Format = override.Log.Format
	}

	if override.Order.MaxAttempts > 0 {
		result.Order.MaxAttempts = override.Order.MaxAttempts
	}

	if len(override.Events.Brokers) > 0 {
		result.Events.Brokers = override.Events.Brokers
	}
	if override.Events.Topic != "" {
		result.Events.Topic = override.Events.Topic
	}

	result.Telemetry = override.Telemetry

	return result
}

// Template is the commented file written by `ordersvc init`.
const Template = `# ordersvc configuration

database:
  # sqlite or postgres
  driver: sqlite
  # file path for sqlite (":memory:" for a throwaway database),
  # connection URL for postgres
  dsn: ordersvc.db
  # postgres pool size, 0 keeps the driver default
  max_conns: 0

log:
  # debug, info, warn, error
  level: info
  # console or json
  format: console

order:
  # attempts per placement when stock changes concurrently
  max_attempts: 3

events:
  # Kafka brokers; leave empty to disable OrderPlaced publishing
  brokers: []
  topic: OrderCreated

telemetry:
  # OTLP/HTTP collector, e.g. localhost:4318; empty disables tracing export
  otlp_endpoint: ""
  insecure: false
`

// WriteTemplate writes Template to path. It refuses to overwrite an
// existing file unless force is set.
func WriteTemplate(path string, force bool) error {
	if path == "" {
		path = FileName
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o644)
}
