// Package cli implements the incidentctl maintenance commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"aviation_incidents/internal/config"
	"aviation_incidents/internal/storage"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
	backend    string
	sqlitePath string
}

// RootCmd returns incidentctl with all subcommands attached.
func RootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "incidentctl",
		Short: "Maintenance commands for the aviation incident store",
		Long: `incidentctl manages the incident database behind incident-api.

It creates schemas, loads airport reference data, hands classification
results to human evaluators and reports per-source record counts.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "path to dotenv file")
	flags.StringVar(&opts.backend, "backend", "", "primary store backend (postgres or sqlite)")
	flags.StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database path")

	rootCmd.AddCommand(SchemaCmd(opts))
	rootCmd.AddCommand(ImportAirportsCmd(opts))
	rootCmd.AddCommand(AssignCmd(opts))
	rootCmd.AddCommand(StatsCmd(opts))

	return rootCmd
}

// load resolves the configuration with flag overrides applied.
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return nil, err
	}
	if o.backend != "" {
		cfg.Store.Backend = o.backend
	}
	if o.sqlitePath != "" {
		cfg.Store.SQLite.Path = o.sqlitePath
	}
	return cfg, nil
}

// openStore opens the primary store. The caller closes it.
func (o *globalOptions) openStore(ctx context.Context) (storage.Store, *config.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(ctx, cfg.StorageConfig())
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}
