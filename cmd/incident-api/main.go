// Package main provides the incident-api server for aviation incident data.
//
// The server exposes the unified asn/asrs/pci incident view, classifier
// results, aggregate reports and the human evaluation workflow over HTTP.
//
// Usage:
//
//	incident-api [options]
//
// Options:
//
//	-config PATH        YAML configuration file (env: INCIDENTS_CONFIG)
//	-env-file PATH      dotenv file loaded before env overrides (default: .env)
//	-backend NAME       Primary store: postgres or sqlite
//	-port N             HTTP port (default: 8000)
//	-auth               Enable API key authentication
//	-api-keys KEYS      Comma-separated list of valid API keys
//	-init-schema        Create missing tables before serving
//
// Flags given on the command line override the configuration file and
// environment.
//
// Authentication:
//
//	When -auth is enabled, requests must include an API key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aviation_incidents/internal/api"
	"aviation_incidents/internal/config"
	"aviation_incidents/internal/enrichment"
	"aviation_incidents/internal/evaluation"
	"aviation_incidents/internal/events"
	"aviation_incidents/internal/logging"
	"aviation_incidents/internal/metrics"
	"aviation_incidents/internal/registry"
	"aviation_incidents/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	envFile := flag.String("env-file", ".env", "Path to dotenv file")
	backend := flag.String("backend", "", "Primary store backend (postgres or sqlite)")
	port := flag.Int("port", 0, "HTTP port for API server")
	authEnabled := flag.Bool("auth", false, "Enable API key authentication")
	apiKeys := flag.String("api-keys", "", "Comma-separated list of valid API keys (when auth enabled)")
	initSchema := flag.Bool("init-schema", false, "Create missing tables before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", *configPath), slog.Any("error", err))
		os.Exit(1)
	}

	// Explicit flags win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Store.Backend = *backend
		case "port":
			cfg.Server.Port = *port
		case "auth":
			cfg.Server.AuthEnabled = *authEnabled
		case "api-keys":
			cfg.Server.APIKeys = nil
			for _, k := range strings.Split(*apiKeys, ",") {
				if k = strings.TrimSpace(k); k != "" {
					cfg.Server.APIKeys = append(cfg.Server.APIKeys, k)
				}
			}
		}
	})

	logger := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)
	logger.Info("starting incident-api",
		slog.Int("port", cfg.Server.Port),
		slog.String("backend", cfg.Store.Backend))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *initSchema, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, initSchema bool, logger *slog.Logger) error {
	sc := cfg.StorageConfig()

	store, err := storage.Open(ctx, sc)
	if err != nil {
		return err
	}
	defer store.Close()

	if initSchema {
		if err := store.CreateSchema(ctx); err != nil {
			return err
		}
		logger.Info("schema ready", slog.String("backend", sc.Backend))
	}

	var aggregates storage.AggregateReader
	if cfg.Aggregates.Backend == storage.BackendClickHouse {
		ch, err := storage.OpenClickHouse(ctx, sc.ClickHouse, registry.Default())
		if err != nil {
			return err
		}
		defer ch.Close()
		aggregates = ch
		logger.Info("aggregate reads served by clickhouse",
			slog.String("host", sc.ClickHouse.Host),
			slog.String("database", sc.ClickHouse.Database))
	}

	// A missing broker is not fatal; evaluations are still recorded.
	var publisher evaluation.Publisher
	if cfg.Events.NATSURL != "" {
		pub, err := events.ConnectNATS(cfg.NATSConfig(), logger)
		if err != nil {
			logger.Warn("nats unavailable, evaluation events disabled", slog.Any("error", err))
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	if cfg.Metrics.Address != "" {
		stopMetrics := serveMetrics(cfg.Metrics.Address, logger)
		defer stopMetrics()
	}

	server := api.NewServer(api.Backends{
		Store:       store,
		Aggregates:  aggregates,
		Airports:    enrichment.NewResolver(store, cfg.GeocoderConfig(), logger),
		Evaluations: evaluation.NewService(store, publisher, cfg.Evaluation.AccessCodes, logger),
	}, api.Config{
		Port:            cfg.Server.Port,
		AuthEnabled:     cfg.Server.AuthEnabled,
		APIKeys:         cfg.Server.APIKeys,
		GracefulTimeout: cfg.Server.GracefulTimeout,
	}, logger)

	return server.Run(ctx)
}

// serveMetrics starts the Prometheus listener and returns its shutdown
// func.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server exited", slog.Any("error", err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
