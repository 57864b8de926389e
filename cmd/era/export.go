package main

import (
	"fmt"

	"github.com/snow-ghost/era/pkg/config"
	"github.com/snow-ghost/era/pkg/journal"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	configPath string
	backend    string
	path       string
	dsn        string
	format     string
	runID      string
	limit      int
}

func newExportCmd() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print journaled generations as JSON or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(opts.configPath).Load()
			if err != nil {
				return err
			}

			jc := cfg.Journal
			if cmd.Flags().Changed("backend") {
				jc.Backend = opts.backend
			}
			if cmd.Flags().Changed("path") {
				jc.Path = opts.path
			}
			if cmd.Flags().Changed("dsn") {
				jc.DSN = opts.dsn
			}
			if jc.Backend == journal.BackendNone || jc.Backend == "" || jc.Backend == journal.BackendMemory {
				return fmt.Errorf("export needs a persistent journal backend, got %q", jc.Backend)
			}

			store, err := journal.Open(cmd.Context(), jc)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), journal.Filter{RunID: opts.runID, Limit: opts.limit})
			if err != nil {
				return fmt.Errorf("failed to list generations: %w", err)
			}

			out, err := journal.Export(records, journal.ExportFormat(opts.format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Journal backend: csv, sqlite, postgres")
	cmd.Flags().StringVar(&opts.path, "path", "", "Journal file for csv and sqlite")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Postgres connection string")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(journal.ExportFormatJSON), "Output format: json, csv")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "Only export this run")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum number of generations, 0 for all")

	return cmd
}
