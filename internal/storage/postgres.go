package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aviation_incidents/internal/evaluation"
	"aviation_incidents/internal/query"
	"aviation_incidents/internal/registry"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB is the primary incident store.
type PostgresDB struct {
	core
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, reg *registry.Registry) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := &PostgresDB{pool: pool}
	db.core = newCore(query.Postgres{}, reg, db.query, db.execute)
	return db, nil
}

func (d *PostgresDB) query(ctx context.Context, sql string, args ...any) (rowScanner, func(), error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, err
	}
	return rows, rows.Close, nil
}

func (d *PostgresDB) execute(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// CreateSchema creates the PostgreSQL tables. Source tables are normally
// owned by the scrapers; they are created here so a fresh database can
// serve queries.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	-- Dates arrive as free text from the scrapers.
	CREATE OR REPLACE FUNCTION safe_date(value TEXT) RETURNS DATE AS $$
	BEGIN
		RETURN value::date;
	EXCEPTION WHEN others THEN
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql IMMUTABLE;

	CREATE TABLE IF NOT EXISTS asn_scraped_accidents (
		uid             TEXT PRIMARY KEY,
		narrative       TEXT,
		date            TEXT,
		phase           TEXT,
		aircraft_type   TEXT,
		location        TEXT,
		operator        TEXT
	);

	CREATE TABLE IF NOT EXISTS asrs_records (
		uid             TEXT PRIMARY KEY,
		synopsis        TEXT,
		time            TEXT,
		phase           TEXT,
		aircraft_type   TEXT,
		place           TEXT,
		operator        TEXT
	);

	CREATE TABLE IF NOT EXISTS pci_scraped_accidents (
		uid             TEXT PRIMARY KEY,
		summary         TEXT,
		date            TEXT,
		aircraft_type   TEXT,
		location        TEXT,
		operator        TEXT
	);

	CREATE TABLE IF NOT EXISTS classification_results (
		id                      BIGSERIAL PRIMARY KEY,
		source_uid              TEXT NOT NULL,
		classifier1_category    TEXT,
		classifier1_confidence  DOUBLE PRECISION,
		classifier1_reasoning   TEXT,
		classifier2_category    TEXT,
		classifier2_confidence  DOUBLE PRECISION,
		classifier2_reasoning   TEXT,
		classifier3_category    TEXT,
		classifier3_confidence  DOUBLE PRECISION,
		classifier3_reasoning   TEXT,
		final_category          TEXT,
		final_confidence        DOUBLE PRECISION,
		processing_time_ms      BIGINT,
		processed_at            TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_classification_source_uid ON classification_results(source_uid);
	CREATE INDEX IF NOT EXISTS idx_classification_processed ON classification_results(processed_at);

	CREATE TABLE IF NOT EXISTS airport_location (
		icao_code   TEXT PRIMARY KEY,
		iata_code   TEXT,
		name        TEXT,
		city        TEXT,
		country     TEXT,
		lat         DOUBLE PRECISION,
		lon         DOUBLE PRECISION
	);

	CREATE TABLE IF NOT EXISTS evaluation_assignments (
		id                          BIGSERIAL PRIMARY KEY,
		classification_result_id    BIGINT NOT NULL,
		evaluator_id                TEXT NOT NULL,
		is_complete                 BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at                TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_open
		ON evaluation_assignments(evaluator_id, classification_result_id) WHERE NOT is_complete;

	CREATE TABLE IF NOT EXISTS human_evaluation (
		id                          BIGSERIAL PRIMARY KEY,
		assignment_id               BIGINT,
		classification_result_id    BIGINT NOT NULL,
		evaluator_id                TEXT NOT NULL,
		human_category              TEXT NOT NULL,
		human_confidence            DOUBLE PRECISION,
		human_reasoning             TEXT,
		created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_human_evaluation_result ON human_evaluation(classification_result_id);
	`

	_, err := d.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("create postgres schema: %w", err)
	}
	return nil
}

// SubmitEvaluation completes the evaluator's open assignment for the
// classification and records the evaluation in one transaction. The
// assignment row is locked so concurrent submissions for the same pair
// serialise; the loser sees no open assignment.
func (d *PostgresDB) SubmitEvaluation(ctx context.Context, sub evaluation.Submission) (*evaluation.Evaluation, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ev := &evaluation.Evaluation{Submission: sub}

	err = tx.QueryRow(ctx, `
		UPDATE evaluation_assignments
		SET is_complete = TRUE, completed_at = NOW()
		WHERE id = (
			SELECT id FROM evaluation_assignments
			WHERE classification_result_id = $1 AND evaluator_id = $2 AND is_complete = FALSE
			ORDER BY id
			LIMIT 1
			FOR UPDATE
		) AND is_complete = FALSE
		RETURNING id
	`, sub.ClassificationResultID, sub.EvaluatorID).Scan(&ev.AssignmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, evaluation.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO human_evaluation
			(assignment_id, classification_result_id, evaluator_id, human_category, human_confidence, human_reasoning)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, ev.AssignmentID, sub.ClassificationResultID, sub.EvaluatorID,
		sub.HumanCategory, sub.HumanConfidence, sub.HumanReasoning).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert evaluation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit evaluation: %w", err)
	}
	return ev, nil
}
