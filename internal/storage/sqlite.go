package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"aviation_incidents/internal/evaluation"
	"aviation_incidents/internal/query"
	"aviation_incidents/internal/registry"
)

// SQLiteConfig holds SQLite settings. Path ":memory:" gives a private
// in-memory database.
type SQLiteConfig struct {
	Path string
}

// SQLiteDB is a single-file incident store for local use and tests.
type SQLiteDB struct {
	core
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at cfg.Path.
func OpenSQLite(cfg SQLiteConfig, reg *registry.Registry) (*SQLiteDB, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: an in-memory database lives and dies with it, and
	// it serialises writers so transactions never see SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteDB{db: db}
	s.core = newCore(query.SQLite{}, reg, s.query, s.execute)
	return s, nil
}

func (d *SQLiteDB) query(ctx context.Context, sqlText string, args ...any) (rowScanner, func(), error) {
	rows, err := d.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, nil, err
	}
	return rows, func() { _ = rows.Close() }, nil
}

func (d *SQLiteDB) execute(ctx context.Context, sqlText string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DB exposes the underlying handle for seeding and maintenance.
func (d *SQLiteDB) DB() *sql.DB {
	return d.db
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// CreateSchema creates the SQLite tables and indices.
func (d *SQLiteDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS asn_scraped_accidents (
		uid TEXT PRIMARY KEY,
		narrative TEXT,
		date TEXT,
		phase TEXT,
		aircraft_type TEXT,
		location TEXT,
		operator TEXT
	);

	CREATE TABLE IF NOT EXISTS asrs_records (
		uid TEXT PRIMARY KEY,
		synopsis TEXT,
		time TEXT,
		phase TEXT,
		aircraft_type TEXT,
		place TEXT,
		operator TEXT
	);

	CREATE TABLE IF NOT EXISTS pci_scraped_accidents (
		uid TEXT PRIMARY KEY,
		summary TEXT,
		date TEXT,
		aircraft_type TEXT,
		location TEXT,
		operator TEXT
	);

	CREATE TABLE IF NOT EXISTS classification_results (
		id INTEGER PRIMARY KEY,
		source_uid TEXT NOT NULL,
		classifier1_category TEXT,
		classifier1_confidence REAL,
		classifier1_reasoning TEXT,
		classifier2_category TEXT,
		classifier2_confidence REAL,
		classifier2_reasoning TEXT,
		classifier3_category TEXT,
		classifier3_confidence REAL,
		classifier3_reasoning TEXT,
		final_category TEXT,
		final_confidence REAL,
		processing_time_ms INTEGER,
		processed_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_classification_source_uid ON classification_results(source_uid);

	CREATE TABLE IF NOT EXISTS airport_location (
		icao_code TEXT PRIMARY KEY,
		iata_code TEXT,
		name TEXT,
		city TEXT,
		country TEXT,
		lat REAL,
		lon REAL
	);

	CREATE TABLE IF NOT EXISTS evaluation_assignments (
		id INTEGER PRIMARY KEY,
		classification_result_id INTEGER NOT NULL,
		evaluator_id TEXT NOT NULL,
		is_complete BOOLEAN NOT NULL DEFAULT 0,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_evaluator ON evaluation_assignments(evaluator_id, classification_result_id);

	CREATE TABLE IF NOT EXISTS human_evaluation (
		id INTEGER PRIMARY KEY,
		assignment_id INTEGER,
		classification_result_id INTEGER NOT NULL,
		evaluator_id TEXT NOT NULL,
		human_category TEXT NOT NULL,
		human_confidence REAL,
		human_reasoning TEXT,
		created_at TEXT
	);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	return nil
}

// SubmitEvaluation completes the open assignment and records the
// evaluation in one transaction.
func (d *SQLiteDB) SubmitEvaluation(ctx context.Context, sub evaluation.Submission) (*evaluation.Evaluation, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Truncate(time.Second)
	stamp := now.Format(time.RFC3339)
	ev := &evaluation.Evaluation{Submission: sub, CreatedAt: now}

	err = tx.QueryRowContext(ctx, `
		UPDATE evaluation_assignments
		SET is_complete = 1, completed_at = ?
		WHERE id = (
			SELECT id FROM evaluation_assignments
			WHERE classification_result_id = ? AND evaluator_id = ? AND is_complete = 0
			ORDER BY id
			LIMIT 1
		) AND is_complete = 0
		RETURNING id
	`, stamp, sub.ClassificationResultID, sub.EvaluatorID).Scan(&ev.AssignmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, evaluation.ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO human_evaluation
			(assignment_id, classification_result_id, evaluator_id, human_category, human_confidence, human_reasoning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.AssignmentID, sub.ClassificationResultID, sub.EvaluatorID,
		sub.HumanCategory, sub.HumanConfidence, sub.HumanReasoning, stamp)
	if err != nil {
		return nil, fmt.Errorf("insert evaluation: %w", err)
	}
	if ev.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert evaluation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit evaluation: %w", err)
	}
	return ev, nil
}
