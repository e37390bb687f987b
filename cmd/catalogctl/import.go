package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/config"
	"catalog-assistant/internal/source"
	"catalog-assistant/internal/storage"
)

func newImportCmd() *cobra.Command {
	var (
		catalogPath   string
		knowledgePath string
		dbPath        string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load JSON catalog files into the SQLite database",
		Long: `Replaces the catalog, and the knowledge base when --knowledge is given, in
the database used by CATALOG_SOURCE=sqlite. The documents are validated first;
a rejected catalog leaves the database unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if dbPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				dbPath = cfg.DBPath
			}

			raw, err := source.NewFileLoader(catalogPath, knowledgePath).Load(ctx)
			if err != nil {
				return err
			}
			idx, err := catalog.Build(raw.Catalog)
			if err != nil {
				return err
			}
			slog.Debug("Catalog validated", "products", idx.Len())

			if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			db, err := storage.New(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if err := storage.Migrate(db); err != nil {
				return err
			}

			repo := storage.NewCatalogRepo(db)
			if err := repo.ReplaceCatalog(ctx, raw.Catalog); err != nil {
				return err
			}
			if knowledgePath != "" {
				if err := repo.ReplaceKnowledge(ctx, raw.Knowledge); err != nil {
					return err
				}
			}

			info, err := repo.Info(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d categories, %d products, %d knowledge entries into %s\n",
				info.Categories, info.Products, info.KnowledgeEntries, dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog JSON file (required)")
	cmd.Flags().StringVar(&knowledgePath, "knowledge", "", "knowledge JSON file")
	cmd.Flags().StringVar(&dbPath, "db", "", "database path (defaults to DB_PATH)")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}
