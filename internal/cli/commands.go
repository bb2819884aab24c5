package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"aviation_incidents/internal/airports"
	"aviation_incidents/internal/registry"
	"aviation_incidents/internal/storage"
)

// SchemaCmd creates the store schema.
func SchemaCmd(opts *globalOptions) *cobra.Command {
	var withReplica bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create missing tables and indexes",
		Long: `Create the source, classification, airport and evaluation tables in
the primary store. Existing tables are left untouched.

Examples:
  incidentctl schema --backend sqlite --sqlite-path incidents.db
  incidentctl schema --clickhouse     # also create the aggregate replica`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, cfg, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.CreateSchema(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s schema ready\n", color.New(color.FgGreen).Sprint("✓"), cfg.StorageConfig().Backend)

			if !withReplica {
				return nil
			}
			ch, err := storage.OpenClickHouse(ctx, cfg.StorageConfig().ClickHouse, registry.Default())
			if err != nil {
				return err
			}
			defer ch.Close()
			if err := ch.CreateSchema(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s clickhouse replica schema ready\n", color.New(color.FgGreen).Sprint("✓"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&withReplica, "clickhouse", false, "also create the ClickHouse replica tables")
	return cmd
}

// ImportAirportsCmd loads airport reference data from a CSV file.
func ImportAirportsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-airports <csv>",
		Short: "Load airport coordinates from a CSV file",
		Long: `Upsert airports into airport_location. The CSV header must include
icao_code and may include iata_code, name, city, country, lat and lon.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := airports.ParseFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, _, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.ImportAirports(ctx, list)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s imported %d airports from %s\n",
				color.New(color.FgGreen).Sprint("✓"), n, args[0])
			return nil
		},
	}
}

// AssignCmd hands unassigned classification results to an evaluator.
func AssignCmd(opts *globalOptions) *cobra.Command {
	var (
		evaluator string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Create evaluation assignments for an evaluator",
		Long: `Assign classification results the evaluator has not been given yet,
oldest first.

Examples:
  incidentctl assign --evaluator ALPHA7 --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if evaluator == "" {
				return fmt.Errorf("--evaluator is required")
			}
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}

			ctx := cmd.Context()
			store, _, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.CreateAssignments(ctx, evaluator, limit)
			if err != nil {
				return err
			}
			mark := color.New(color.FgGreen).Sprint("✓")
			if n == 0 {
				mark = color.New(color.FgYellow).Sprint("!")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s assigned %d results to %s\n", mark, n, evaluator)
			return nil
		},
	}

	cmd.Flags().StringVar(&evaluator, "evaluator", "", "evaluator id to assign to")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results to assign")
	return cmd
}

// StatsCmd prints incident counts per source.
func StatsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show incident counts per source",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, _, err := opts.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			counts, err := store.SourceCounts(ctx)
			if err != nil {
				return err
			}

			tags := make([]string, 0, len(counts))
			for tag := range counts {
				if tag != "all" {
					tags = append(tags, tag)
				}
			}
			sort.Strings(tags)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Source   Incidents")
			fmt.Fprintln(out, "──────────────────")
			for _, tag := range tags {
				fmt.Fprintf(out, "%-8s %9d\n", tag, counts[tag])
			}
			fmt.Fprintf(out, "%-8s %9s\n", "all", color.New(color.Bold).Sprint(counts["all"]))
			return nil
		},
	}
}
