package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aviation_incidents/internal/registry"
	"aviation_incidents/internal/storage"
	"aviation_incidents/internal/storage/storagetest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// seededPath creates a file-backed SQLite store holding the fixture.
func seededPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "incidents.db")
	t.Setenv("INCIDENTS_CONFIG", "")

	if _, err := execute(t, "--env-file", "", "--backend", "sqlite", "--sqlite-path", path, "schema"); err != nil {
		t.Fatalf("schema: %v", err)
	}

	db, err := storage.OpenSQLite(storage.SQLiteConfig{Path: path}, registry.Default())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.DB().ExecContext(context.Background(), storagetest.Seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return path
}

func TestStats(t *testing.T) {
	path := seededPath(t)

	out, err := execute(t, "--env-file", "", "--backend", "sqlite", "--sqlite-path", path, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"asn", "asrs", "pci", "all"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "3") {
		t.Errorf("stats output missing total:\n%s", out)
	}
}

func TestImportAirports(t *testing.T) {
	path := seededPath(t)
	csvPath := filepath.Join(t.TempDir(), "airports.csv")
	csv := "icao_code,iata_code,name,lat,lon\nEGLL,LHR,Heathrow,51.4706,-0.461941\nYSSY,SYD,Sydney,-33.9461,151.177\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--env-file", "", "--backend", "sqlite", "--sqlite-path", path, "import-airports", csvPath)
	if err != nil {
		t.Fatalf("import-airports: %v", err)
	}
	if !strings.Contains(out, "imported 2 airports") {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, "--env-file", "", "--backend", "sqlite", "--sqlite-path", path, "import-airports"); err == nil {
		t.Error("expected an error without a csv argument")
	}
}

func TestAssign(t *testing.T) {
	path := seededPath(t)
	base := []string{"--env-file", "", "--backend", "sqlite", "--sqlite-path", path, "assign"}

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"missing evaluator", nil, "", true},
		{"bad limit", []string{"--evaluator", "alice", "--limit", "0"}, "", true},
		{"first run", []string{"--evaluator", "alice", "--limit", "5"}, "assigned 2 results to alice", false},
		{"nothing left", []string{"--evaluator", "alice"}, "assigned 0 results to alice", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(append([]string{}, base...), tt.args...)...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.want != "" && !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestSchemaRejectsReadOnlyBackend(t *testing.T) {
	if _, err := execute(t, "--env-file", "", "--backend", "clickhouse", "schema"); err == nil {
		t.Error("expected clickhouse to be rejected as the primary store")
	}
}
