// Package storage provides the incident stores: PostgreSQL as the primary
// database, SQLite for local use and tests, and a read-only ClickHouse
// replica for aggregate queries.
package storage

import (
	"context"
	"errors"
	"fmt"

	"aviation_incidents/internal/aggregate"
	"aviation_incidents/internal/evaluation"
	"aviation_incidents/internal/incident"
	"aviation_incidents/internal/query"
	"aviation_incidents/internal/registry"
	_ "aviation_incidents/internal/sources" // Register the incident sources.
)

// ErrReadOnly is returned by write operations on a read-only store.
var ErrReadOnly = errors.New("store is read-only")

// Backend names.
const (
	BackendPostgres   = "postgres"
	BackendSQLite     = "sqlite"
	BackendClickHouse = "clickhouse"
)

// Config holds connection settings for every backend.
type Config struct {
	Backend    string
	Postgres   PostgresConfig
	SQLite     SQLiteConfig
	ClickHouse ClickHouseConfig
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		Backend: BackendPostgres,
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "aviation_db",
			User:     "aviation",
			Password: "aviation",
		},
		SQLite: SQLiteConfig{
			Path: "incidents.db",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "aviation",
			User:     "default",
			Password: "",
		},
	}
}

// AggregateReader is the read surface shared by every backend.
type AggregateReader interface {
	GroupCounts(ctx context.Context, q query.GroupQuery) ([]aggregate.GroupCount, error)
	CountIncidents(ctx context.Context, f query.Filter) (int64, error)
	ListUIDs(ctx context.Context, f query.Filter) ([]string, error)
	SourceCounts(ctx context.Context) (map[string]int64, error)
}

// Store is the full surface of a read-write backend.
type Store interface {
	AggregateReader
	evaluation.Store

	CreateSchema(ctx context.Context) error
	Close() error

	GetRecord(ctx context.Context, uid string) (*incident.Incident, error)
	ListIncidents(ctx context.Context, f query.Filter, page *query.Page) ([]incident.Incident, error)
	ListClassificationResults(ctx context.Context, evaluatorID string, page query.Page) ([]incident.ClassificationResult, error)
	ClassificationsBySourceUID(ctx context.Context, uids []string) (map[string]incident.ClassificationResult, error)
	ListClassifiedIncidents(ctx context.Context, page query.Page) ([]ClassifiedIncident, error)
	GetAirports(ctx context.Context, codes []string) (map[string]incident.Airport, error)
	ImportAirports(ctx context.Context, airports []incident.Airport) (int64, error)
	CreateAssignments(ctx context.Context, evaluatorID string, limit int) (int64, error)
}

var (
	_ Store = (*PostgresDB)(nil)
	_ Store = (*SQLiteDB)(nil)
)

// Open opens the read-write backend named by cfg.Backend using the
// default source registry.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendPostgres, "":
		db, err := OpenPostgres(ctx, cfg.Postgres, registry.Default())
		if err != nil {
			return nil, err
		}
		return db, nil
	case BackendSQLite:
		db, err := OpenSQLite(cfg.SQLite, registry.Default())
		if err != nil {
			return nil, err
		}
		return db, nil
	case BackendClickHouse:
		return nil, fmt.Errorf("%s cannot serve as the primary store: %w", cfg.Backend, ErrReadOnly)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// ClassifiedIncident is a classification joined with its origin incident
// and the severity derived from the final category.
type ClassifiedIncident struct {
	incident.JoinedRecord
	Severity string `json:"severity"`
}
