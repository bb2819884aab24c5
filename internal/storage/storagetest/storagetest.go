// Package storagetest provides a seeded in-memory store for tests.
package storagetest

import (
	"context"
	"testing"

	"aviation_incidents/internal/registry"
	"aviation_incidents/internal/storage"
	_ "aviation_incidents/internal/sources" // Register the incident sources.
)

// Seed is the fixture loaded by NewSQLite:
//
//	asrs_1  2024-01-01  cruise    Test Operator     -> Weather
//	asn_1   2024-02-02  approach  Another Operator  -> Bird Strike
//	pci_1   unparsable  (none)    Test Operator     unclassified, at KJFK
//
// plus the kjfk airport and one open assignment of result 101 to
// test_evaluator.
const Seed = `
INSERT INTO asrs_records (uid, synopsis, time, phase, aircraft_type, place, operator)
VALUES ('asrs_1', 'Test ASRS synopsis', '2024-01-01', 'cruise', 'A320', 'Test City', 'Test Operator');

INSERT INTO asn_scraped_accidents (uid, narrative, date, phase, aircraft_type, location, operator)
VALUES ('asn_1', 'Test ASN narrative', '2024-02-02', 'approach', 'B737', 'Another City', 'Another Operator');

INSERT INTO pci_scraped_accidents (uid, summary, date, aircraft_type, location, operator)
VALUES ('pci_1', 'Bird strike on climb out', 'not a date', 'B737', 'KJFK', 'Test Operator');

INSERT INTO classification_results (id, source_uid, final_category, final_confidence, processed_at)
VALUES (1, 'asrs_1', 'Weather', 0.9, '2024-03-01T00:00:00Z'),
       (2, 'asn_1', 'Bird Strike', 0.8, '2024-03-02T00:00:00Z');

INSERT INTO airport_location (icao_code, iata_code, name, city, country, lat, lon)
VALUES ('kjfk', 'JFK', 'John F. Kennedy International Airport', 'New York', 'United States', 40.6398, -73.7789);

INSERT INTO evaluation_assignments (id, classification_result_id, evaluator_id, is_complete, completed_at)
VALUES (1, 101, 'test_evaluator', 0, NULL);
`

// NewSQLite opens an in-memory store with the schema and Seed loaded. The
// store is closed when the test ends.
func NewSQLite(tb testing.TB) *storage.SQLiteDB {
	tb.Helper()

	db, err := storage.OpenSQLite(storage.SQLiteConfig{Path: ":memory:"}, registry.Default())
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if err := db.CreateSchema(ctx); err != nil {
		tb.Fatalf("create schema: %v", err)
	}
	if _, err := db.DB().ExecContext(ctx, Seed); err != nil {
		tb.Fatalf("seed: %v", err)
	}
	return db
}
