package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"catalog-assistant/internal/app"
	"catalog-assistant/internal/config"
)

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Catalog assistant command line",
		Long: `catalogctl runs catalog searches and intent classification with the same
configuration as the API server, and imports JSON catalog files into SQLite.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newSearchCmd(), newClassifyCmd(), newImportCmd())
	return cmd
}

// loadApp builds the application from the environment and loads the catalog.
// The semantic index is built synchronously when embeddings are configured.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	load := a.Pipeline.Bootstrap
	if a.Pipeline.SemanticEnabled() {
		load = a.Pipeline.Reload
	}
	if _, err := load(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return a, nil
}
