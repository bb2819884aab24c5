package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"aviation_incidents/internal/aggregate"
	"aviation_incidents/internal/query"
	"aviation_incidents/internal/registry"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB serves aggregate reads from a ClickHouse replica of the
// source and classification tables. It never writes incident data.
type ClickHouseDB struct {
	c    core
	conn driver.Conn
}

var _ AggregateReader = (*ClickHouseDB)(nil)

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig, reg *registry.Registry) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	d := &ClickHouseDB{conn: conn}
	d.c = newCore(query.ClickHouse{}, reg, d.query, nil)
	return d, nil
}

func (d *ClickHouseDB) query(ctx context.Context, sql string, args ...any) (rowScanner, func(), error) {
	rows, err := d.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, err
	}
	return rows, func() { _ = rows.Close() }, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the replica tables. Loading them is the job of the
// replication pipeline.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS asn_scraped_accidents (
			uid             String,
			narrative       Nullable(String),
			date            Nullable(String),
			phase           Nullable(String),
			aircraft_type   Nullable(String),
			location        Nullable(String),
			operator        Nullable(String)
		) ENGINE = ReplacingMergeTree ORDER BY uid`,

		`CREATE TABLE IF NOT EXISTS asrs_records (
			uid             String,
			synopsis        Nullable(String),
			time            Nullable(String),
			phase           Nullable(String),
			aircraft_type   Nullable(String),
			place           Nullable(String),
			operator        Nullable(String)
		) ENGINE = ReplacingMergeTree ORDER BY uid`,

		`CREATE TABLE IF NOT EXISTS pci_scraped_accidents (
			uid             String,
			summary         Nullable(String),
			date            Nullable(String),
			aircraft_type   Nullable(String),
			location        Nullable(String),
			operator        Nullable(String)
		) ENGINE = ReplacingMergeTree ORDER BY uid`,

		`CREATE TABLE IF NOT EXISTS classification_results (
			id              Int64,
			source_uid      String,
			final_category  Nullable(String),
			processed_at    Nullable(DateTime64(3))
		) ENGINE = ReplacingMergeTree ORDER BY id`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create clickhouse schema: %w", err)
		}
	}
	return nil
}

// GroupCounts runs a grouped count on the replica.
func (d *ClickHouseDB) GroupCounts(ctx context.Context, q query.GroupQuery) ([]aggregate.GroupCount, error) {
	return d.c.GroupCounts(ctx, q)
}

// CountIncidents counts incidents on the replica.
func (d *ClickHouseDB) CountIncidents(ctx context.Context, f query.Filter) (int64, error) {
	return d.c.CountIncidents(ctx, f)
}

// ListUIDs lists incident UIDs on the replica, newest first.
func (d *ClickHouseDB) ListUIDs(ctx context.Context, f query.Filter) ([]string, error) {
	return d.c.ListUIDs(ctx, f)
}

// SourceCounts returns per-source row counts on the replica.
func (d *ClickHouseDB) SourceCounts(ctx context.Context) (map[string]int64, error) {
	return d.c.SourceCounts(ctx)
}
