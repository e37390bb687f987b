// Package source reads raw catalog and knowledge documents from files or SQLite.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/storage"
)

// Raw is one load of the catalog and the knowledge base, not yet indexed.
type Raw struct {
	Catalog   catalog.RawCatalog
	Knowledge catalog.RawKnowledge
}

// Loader produces the raw documents a snapshot is built from.
type Loader interface {
	Load(ctx context.Context) (Raw, error)
}

// FileLoader reads JSON documents from disk. The knowledge file is optional.
type FileLoader struct {
	CatalogPath   string
	KnowledgePath string
}

// NewFileLoader creates a new FileLoader.
func NewFileLoader(catalogPath, knowledgePath string) *FileLoader {
	return &FileLoader{CatalogPath: catalogPath, KnowledgePath: knowledgePath}
}

// Load implements Loader.
func (l *FileLoader) Load(ctx context.Context) (Raw, error) {
	logger := contextutil.LoggerFromContext(ctx)

	data, err := os.ReadFile(l.CatalogPath)
	if err != nil {
		return Raw{}, fmt.Errorf("failed to read catalog %s: %w", l.CatalogPath, err)
	}
	rawCatalog, err := catalog.DecodeCatalog(data)
	if err != nil {
		return Raw{}, err
	}

	raw := Raw{Catalog: rawCatalog}
	if l.KnowledgePath == "" {
		return raw, nil
	}

	data, err = os.ReadFile(l.KnowledgePath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WarnContext(ctx, "knowledge file not found, continuing without knowledge base", "path", l.KnowledgePath)
		return raw, nil
	}
	if err != nil {
		return Raw{}, fmt.Errorf("failed to read knowledge %s: %w", l.KnowledgePath, err)
	}
	raw.Knowledge, err = catalog.DecodeKnowledge(data)
	if err != nil {
		return Raw{}, err
	}
	return raw, nil
}

// Paths returns the files this loader reads, for watching.
func (l *FileLoader) Paths() []string {
	paths := []string{l.CatalogPath}
	if l.KnowledgePath != "" {
		paths = append(paths, l.KnowledgePath)
	}
	return paths
}

// CatalogReader is the part of storage.CatalogRepo the DBLoader needs.
type CatalogReader interface {
	LoadCatalog(ctx context.Context) (catalog.RawCatalog, error)
	LoadKnowledge(ctx context.Context) (catalog.RawKnowledge, error)
}

// DBLoader reads documents previously imported into SQLite.
type DBLoader struct {
	repo CatalogReader
}

// NewDBLoader creates a new DBLoader.
func NewDBLoader(repo CatalogReader) *DBLoader {
	return &DBLoader{repo: repo}
}

// Load implements Loader.
func (l *DBLoader) Load(ctx context.Context) (Raw, error) {
	rawCatalog, err := l.repo.LoadCatalog(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return Raw{}, fmt.Errorf("no catalog imported into the database: %w", err)
	}
	if err != nil {
		return Raw{}, err
	}
	knowledge, err := l.repo.LoadKnowledge(ctx)
	if err != nil {
		return Raw{}, err
	}
	return Raw{Catalog: rawCatalog, Knowledge: knowledge}, nil
}
