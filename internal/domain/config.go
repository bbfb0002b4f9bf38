package domain

import (
	"fmt"
	"strings"
)

// DatabaseDriver identifies the persistence backend.
type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

// ValidDrivers enumerates all recognized database drivers.
var ValidDrivers = []DatabaseDriver{DriverSQLite, DriverPostgres}

// ValidLogLevels enumerates the accepted log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// ValidLogFormats enumerates the accepted log encodings.
var ValidLogFormats = []string{"json", "console"}

// ServiceConfig holds configuration loaded from .ordersvc.yaml.
type ServiceConfig struct {
	Database  DatabaseConfig  `yaml:"database"  json:"database"`
	Log       LogConfig       `yaml:"log"       json:"log"`
	Order     OrderConfig     `yaml:"order"     json:"order"`
	Events    EventsConfig    `yaml:"events"    json:"events"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

type DatabaseConfig struct {
	Driver   DatabaseDriver `yaml:"driver"    json:"driver"`
	DSN      string         `yaml:"dsn"       json:"dsn"`
	MaxConns int32          `yaml:"max_conns" json:"max_conns,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"  json:"level"`
	Format string `yaml:"format" json:"format"`
}

// OrderConfig tunes the placement workflow.
type OrderConfig struct {
	// MaxAttempts bounds how many times a placement is retried after a
	// concurrent stock change.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
}

// EventsConfig configures the Kafka publisher. No brokers disables publishing.
type EventsConfig struct {
	Brokers []string `yaml:"brokers" json:"brokers,omitempty"`
	Topic   string   `yaml:"topic"   json:"topic"`
}

// TelemetryConfig configures trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint,omitempty"`
	Insecure     bool   `yaml:"insecure"      json:"insecure,omitempty"`
}

// DefaultConfig returns a config for a local SQLite file with publishing
// and telemetry off.
func DefaultConfig() ServiceConfig {
	return ServiceConfig{
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "ordersvc.db"},
		Log:      LogConfig{Level: "info", Format: "console"},
		Order:    OrderConfig{MaxAttempts: 3},
		Events:   EventsConfig{Topic: "OrderCreated"},
	}
}

// EventsEnabled reports whether orders should be published to Kafka.
func (c ServiceConfig) EventsEnabled() bool {
	return len(c.Events.Brokers) > 0
}

// Validate checks the config for invalid values and returns a descriptive error.
func (c ServiceConfig) Validate() error {
	if c.Database.Driver != "" && !contains(ValidDrivers, c.Database.Driver) {
		return fmt.Errorf("unknown database.driver %q (valid: sqlite, postgres)", c.Database.Driver)
	}
	if c.Database.Driver == DriverPostgres && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the postgres driver")
	}
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must be >= 0, got %d", c.Database.MaxConns)
	}
	if c.Log.Level != "" && !contains(ValidLogLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("unknown log.level %q (valid: %s)", c.Log.Level, strings.Join(ValidLogLevels, ", "))
	}
	if c.Log.Format != "" && !contains(ValidLogFormats, c.Log.Format) {
		return fmt.Errorf("unknown log.format %q (valid: json, console)", c.Log.Format)
	}
	if c.Order.MaxAttempts < 0 {
		return fmt.Errorf("order.max_attempts must be >= 0, got %d", c.Order.MaxAttempts)
	}
	for _, b := range c.Events.Brokers {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("events.brokers contains an empty address")
		}
	}
	return nil
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
