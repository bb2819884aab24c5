package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"aviation_incidents/internal/evaluation"
	"aviation_incidents/internal/query"
	"aviation_incidents/internal/registry"
)

// setupTestPostgres creates a test database connection.
// Returns nil if no PostgreSQL connection is available.
func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "aviation"
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "aviation"
	}
	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		database = "aviation_test"
	}

	ctx := context.Background()
	pg, err := OpenPostgres(ctx, PostgresConfig{
		Host:     host,
		Port:     5432,
		User:     user,
		Password: password,
		Database: database,
	}, registry.Default())
	if err != nil {
		return nil
	}

	if err := pg.CreateSchema(ctx); err != nil {
		_ = pg.Close()
		return nil
	}

	_, err = pg.pool.Exec(ctx, `
		TRUNCATE asn_scraped_accidents, asrs_records, pci_scraped_accidents,
			classification_results, evaluation_assignments, human_evaluation;

		INSERT INTO asrs_records (uid, synopsis, time, phase, aircraft_type, place, operator)
		VALUES ('asrs_1', 'Test ASRS synopsis', '2024-01-01', 'cruise', 'A320', 'Test City', 'Test Operator');
		INSERT INTO asn_scraped_accidents (uid, narrative, date, phase, aircraft_type, location, operator)
		VALUES ('asn_1', 'Test ASN narrative', '2024-02-02', 'approach', 'B737', 'Another City', 'Another Operator');
		INSERT INTO pci_scraped_accidents (uid, summary, date, aircraft_type, location, operator)
		VALUES ('pci_1', 'Bird strike on climb out', 'not a date', 'B737', 'KJFK', 'Test Operator');
		INSERT INTO classification_results (id, source_uid, final_category)
		VALUES (1, 'asrs_1', 'Weather'), (2, 'asn_1', 'Bird Strike');
		INSERT INTO evaluation_assignments (classification_result_id, evaluator_id, is_complete)
		VALUES (101, 'test_evaluator', FALSE);
	`)
	if err != nil {
		_ = pg.Close()
		t.Fatalf("seed postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Close() })

	return pg
}

func TestPostgresOverTime(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}

	rows, err := pg.GroupCounts(context.Background(), query.GroupQuery{
		Dimensions: []query.Dimension{query.DimMonth},
	})
	if err != nil {
		t.Fatalf("GroupCounts: %v", err)
	}
	got := make(map[string]int64)
	for _, r := range rows {
		got[r.Key(0)] = r.Count
	}
	if len(got) != 2 || got["2024-01"] != 1 || got["2024-02"] != 1 {
		t.Errorf("over-time = %v", got)
	}
}

func TestPostgresRecordAndUnparsableDate(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}

	rec, err := pg.GetRecord(context.Background(), "pci_1")
	if err != nil || rec == nil {
		t.Fatalf("GetRecord(pci_1) = %v, %v", rec, err)
	}
	if rec.OriginDate != nil || rec.Phase != nil {
		t.Errorf("pci_1 = %+v, want nil date and phase", rec)
	}
}

func TestPostgresConcurrentSubmit(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}

	sub := evaluation.Submission{
		ClassificationResultID: 101,
		EvaluatorID:            "test_evaluator",
		HumanCategory:          "Test Category",
		HumanConfidence:        0.99,
	}

	const workers = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pg.SubmitEvaluation(context.Background(), sub)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, evaluation.ErrAssignmentNotFound):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d submissions succeeded, want 1", ok)
	}

	var rows int
	if err := pg.pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM human_evaluation").Scan(&rows); err != nil {
		t.Fatalf("count evaluations: %v", err)
	}
	if rows != 1 {
		t.Errorf("human_evaluation rows = %d, want 1", rows)
	}
}
