// Package config loads service settings from defaults, an optional YAML
// file, an optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"aviation_incidents/internal/enrichment"
	"aviation_incidents/internal/events"
	"aviation_incidents/internal/storage"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Aggregates AggregatesConfig `yaml:"aggregates"`
	Geocoder   GeocoderConfig   `yaml:"geocoder"`
	Events     EventsConfig     `yaml:"events"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	AuthEnabled     bool          `yaml:"authEnabled"`
	APIKeys         []string      `yaml:"apiKeys"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// StoreConfig selects and configures the primary store.
type StoreConfig struct {
	Backend  string         `yaml:"backend"` // postgres or sqlite
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SQLiteConfig holds the SQLite database path.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// AggregatesConfig optionally moves aggregate reads to a ClickHouse replica.
type AggregatesConfig struct {
	Backend    string           `yaml:"backend"` // empty or clickhouse
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// GeocoderConfig configures the airport geocoding sidecar.
type GeocoderConfig struct {
	SidecarURL string        `yaml:"sidecarURL"`
	Timeout    time.Duration `yaml:"timeout"`
}

// EventsConfig configures NATS publishing. An empty URL disables it.
type EventsConfig struct {
	NATSURL       string `yaml:"natsURL"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls the Prometheus listener. An empty address
// disables it.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// EvaluationConfig lists the evaluator access codes. An empty list lets
// any evaluator id through.
type EvaluationConfig struct {
	AccessCodes []string `yaml:"accessCodes"`
}

// Load builds the configuration. path names a YAML file and envFile a
// dotenv file; either may be empty. A missing envFile is not an error.
func Load(path, envFile string) (*Config, error) {
	if path == "" {
		path = os.Getenv("INCIDENTS_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8000,
			GracefulTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Backend: storage.BackendPostgres,
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "aviation_db",
				User:     "aviation",
				Password: "aviation",
			},
			SQLite: SQLiteConfig{Path: "incidents.db"},
		},
		Aggregates: AggregatesConfig{
			ClickHouse: ClickHouseConfig{
				Host:     "localhost",
				Port:     9000,
				Database: "aviation",
				User:     "default",
			},
		},
		Geocoder: GeocoderConfig{Timeout: 5 * time.Second},
		Events:   EventsConfig{SubjectPrefix: "incidents."},
		Logging:  LoggingConfig{Level: "info"},
		Metrics:  MetricsConfig{Address: ":9102"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INCIDENTS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("INCIDENTS_AUTH"); v != "" {
		cfg.Server.AuthEnabled = truthy(v)
	}
	if v := os.Getenv("INCIDENTS_API_KEYS"); v != "" {
		cfg.Server.APIKeys = splitList(v)
	}
	if v := os.Getenv("INCIDENTS_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("INCIDENTS_SQLITE_PATH"); v != "" {
		cfg.Store.SQLite.Path = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Store.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Store.Postgres.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_DATABASE"); v != "" {
		cfg.Store.Postgres.Database = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Store.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Store.Postgres.Password = v
	}
	if v := os.Getenv("INCIDENTS_AGGREGATES_BACKEND"); v != "" {
		cfg.Aggregates.Backend = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		cfg.Aggregates.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Aggregates.ClickHouse.Port = port
		}
	}
	if v := os.Getenv("CLICKHOUSE_DATABASE"); v != "" {
		cfg.Aggregates.ClickHouse.Database = v
	}
	if v := os.Getenv("CLICKHOUSE_USER"); v != "" {
		cfg.Aggregates.ClickHouse.User = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		cfg.Aggregates.ClickHouse.Password = v
	}
	if v := os.Getenv("INCIDENTS_GEOCODER_URL"); v != "" {
		cfg.Geocoder.SidecarURL = v
	}
	if v := os.Getenv("INCIDENTS_GEOCODER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Geocoder.Timeout = d
		}
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Events.NATSURL = v
	}
	if v := os.Getenv("INCIDENTS_EVENTS_PREFIX"); v != "" {
		cfg.Events.SubjectPrefix = v
	}
	if v := os.Getenv("INCIDENTS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INCIDENTS_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}
	if v := os.Getenv("INCIDENTS_METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
	if v := os.Getenv("INCIDENTS_ACCESS_CODES"); v != "" {
		cfg.Evaluation.AccessCodes = splitList(v)
	}
}

func truthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// StorageConfig converts the store and replica sections into storage
// settings.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend: c.Store.Backend,
		Postgres: storage.PostgresConfig{
			Host:     c.Store.Postgres.Host,
			Port:     c.Store.Postgres.Port,
			Database: c.Store.Postgres.Database,
			User:     c.Store.Postgres.User,
			Password: c.Store.Postgres.Password,
		},
		SQLite: storage.SQLiteConfig{Path: c.Store.SQLite.Path},
		ClickHouse: storage.ClickHouseConfig{
			Host:     c.Aggregates.ClickHouse.Host,
			Port:     c.Aggregates.ClickHouse.Port,
			Database: c.Aggregates.ClickHouse.Database,
			User:     c.Aggregates.ClickHouse.User,
			Password: c.Aggregates.ClickHouse.Password,
		},
	}
}

// GeocoderConfig converts the geocoder section.
func (c *Config) GeocoderConfig() enrichment.Config {
	return enrichment.Config{SidecarURL: c.Geocoder.SidecarURL, Timeout: c.Geocoder.Timeout}
}

// NATSConfig converts the events section.
func (c *Config) NATSConfig() events.NATSConfig {
	return events.NATSConfig{
		URL:           c.Events.NATSURL,
		SubjectPrefix: c.Events.SubjectPrefix,
		ClientName:    "incident-api",
	}
}
