package query

import (
	"strconv"
	"time"
)

// Dialect renders the few fragments that differ between the supported SQL
// engines. Everything else the builder emits is portable.
type Dialect interface {
	Name() string

	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string

	// DateExpr coerces a raw source column to a date, yielding NULL when
	// the stored value cannot be parsed.
	DateExpr(column string) string

	// DateText renders a date expression as YYYY-MM-DD text.
	DateText(expr string) string

	// TimestampText renders a timestamp column as RFC 3339 UTC text.
	TimestampText(expr string) string

	// BucketExpr renders a date expression as a YYYY or YYYY-MM key.
	BucketExpr(expr string, b Bucket) string

	// DateArg converts a bound date into the driver's preferred form.
	DateArg(t time.Time) any

	// NullText is a typed NULL usable in a UNION ALL column list.
	NullText() string

	// CountExpr counts rows as a signed 64-bit integer.
	CountExpr() string
}

// Bucket is a time-series granularity.
type Bucket string

const (
	BucketYear  Bucket = "year"
	BucketMonth Bucket = "month"
)

// ParseBucket validates a period parameter.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case BucketYear, BucketMonth:
		return Bucket(s), nil
	case "":
		return BucketYear, nil
	}
	return "", invalidDimension("period", s)
}

// Postgres renders PostgreSQL SQL. DateExpr relies on the safe_date
// function installed by the schema.
type Postgres struct{}

func (Postgres) Name() string               { return "postgres" }
func (Postgres) Placeholder(n int) string   { return "$" + strconv.Itoa(n) }
func (Postgres) DateExpr(col string) string { return "safe_date(" + col + "::text)" }
func (Postgres) DateText(expr string) string {
	return "to_char(" + expr + ", 'YYYY-MM-DD')"
}
func (Postgres) TimestampText(expr string) string {
	return "to_char(" + expr + " AT TIME ZONE 'UTC', 'YYYY-MM-DD\"T\"HH24:MI:SS\"Z\"')"
}
func (Postgres) BucketExpr(expr string, b Bucket) string {
	if b == BucketYear {
		return "to_char(" + expr + ", 'YYYY')"
	}
	return "to_char(" + expr + ", 'YYYY-MM')"
}
func (Postgres) DateArg(t time.Time) any { return t }
func (Postgres) NullText() string        { return "NULL::text" }
func (Postgres) CountExpr() string       { return "COUNT(*)" }

// SQLite renders SQLite SQL. date() already yields NULL for text it cannot
// parse.
type SQLite struct{}

func (SQLite) Name() string               { return "sqlite" }
func (SQLite) Placeholder(int) string     { return "?" }
func (SQLite) DateExpr(col string) string { return "date(" + col + ")" }
func (SQLite) DateText(expr string) string {
	return expr
}
func (SQLite) TimestampText(expr string) string {
	return expr
}
func (SQLite) BucketExpr(expr string, b Bucket) string {
	if b == BucketYear {
		return "strftime('%Y', " + expr + ")"
	}
	return "strftime('%Y-%m', " + expr + ")"
}
func (SQLite) DateArg(t time.Time) any { return t.Format("2006-01-02") }
func (SQLite) NullText() string        { return "NULL" }
func (SQLite) CountExpr() string       { return "COUNT(*)" }

// ClickHouse renders ClickHouse SQL for the read-only analytics replica.
type ClickHouse struct{}

func (ClickHouse) Name() string           { return "clickhouse" }
func (ClickHouse) Placeholder(int) string { return "?" }
func (ClickHouse) DateExpr(col string) string {
	return "toDateOrNull(toString(" + col + "))"
}
func (ClickHouse) DateText(expr string) string {
	return "toString(" + expr + ")"
}
func (ClickHouse) TimestampText(expr string) string {
	return "formatDateTime(" + expr + ", '%Y-%m-%dT%H:%i:%SZ', 'UTC')"
}
func (ClickHouse) BucketExpr(expr string, b Bucket) string {
	if b == BucketYear {
		return "toString(toYear(" + expr + "))"
	}
	return "formatDateTime(" + expr + ", '%Y-%m')"
}
func (ClickHouse) DateArg(t time.Time) any { return t.Format("2006-01-02") }
func (ClickHouse) NullText() string        { return "CAST(NULL AS Nullable(String))" }
func (ClickHouse) CountExpr() string       { return "toInt64(count())" }
