package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INCIDENTS_CONFIG", "")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.Geocoder.Timeout != 5*time.Second {
		t.Errorf("geocoder timeout = %v", cfg.Geocoder.Timeout)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: 9000
  authEnabled: true
  apiKeys: [one, two]
store:
  backend: sqlite
  sqlite:
    path: /tmp/x.db
geocoder:
  sidecarURL: http://geo:8080
  timeout: 2s
evaluation:
  accessCodes: [ALPHA7]
`)
	t.Setenv("INCIDENTS_PORT", "9100")
	t.Setenv("INCIDENTS_LOG_FORMAT", "json")
	t.Setenv("INCIDENTS_ACCESS_CODES", "bravo9, charlie3")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("env should override YAML port, got %d", cfg.Server.Port)
	}
	if !cfg.Server.AuthEnabled || len(cfg.Server.APIKeys) != 2 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.SQLite.Path != "/tmp/x.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	// Unset YAML sections keep their defaults.
	if cfg.Store.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d", cfg.Store.Postgres.Port)
	}
	if cfg.Geocoder.Timeout != 2*time.Second {
		t.Errorf("geocoder timeout = %v", cfg.Geocoder.Timeout)
	}
	if !cfg.Logging.JSON {
		t.Error("log format json not applied")
	}
	if got := cfg.Evaluation.AccessCodes; len(got) != 2 || got[1] != "charlie3" {
		t.Errorf("access codes = %v", got)
	}

	sc := cfg.StorageConfig()
	if sc.Backend != "sqlite" || sc.SQLite.Path != "/tmp/x.db" {
		t.Errorf("StorageConfig = %+v", sc)
	}
	if gc := cfg.GeocoderConfig(); gc.SidecarURL != "http://geo:8080" {
		t.Errorf("GeocoderConfig = %+v", gc)
	}
}

func TestLoadEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "POSTGRES_HOST=db.internal\nNATS_URL=nats://bus:4222\n")
	t.Setenv("POSTGRES_HOST", "")
	t.Setenv("NATS_URL", "")
	// godotenv.Load does not override variables that are already set, so
	// clear them for the duration of the test.
	os.Unsetenv("POSTGRES_HOST")
	os.Unsetenv("NATS_URL")

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Postgres.Host != "db.internal" {
		t.Errorf("postgres host = %q", cfg.Store.Postgres.Host)
	}
	if cfg.NATSConfig().URL != "nats://bus:4222" {
		t.Errorf("nats url = %q", cfg.NATSConfig().URL)
	}
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	if _, err := Load("", filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing env file should be ignored: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), ""); err == nil {
		t.Error("expected error for missing config file")
	}
	bad := writeFile(t, "bad.yaml", "server: [not, a, map]\n")
	if _, err := Load(bad, ""); err == nil {
		t.Error("expected parse error")
	}
}
