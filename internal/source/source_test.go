package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/storage"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const (
	sampleCatalog   = `{"categories": {"cleaning": {"name": "Cleaning", "products": [{"id": 1, "name": "Phenyl", "mrp": 90}]}}}`
	sampleKnowledge = `{"products_knowledge": {"phenyl_kit": {"keywords": ["phenyl"]}}}`
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestFileLoader_Load(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "products.json")
	knowledgePath := filepath.Join(dir, "knowledge.json")
	writeFile(t, catalogPath, sampleCatalog)
	writeFile(t, knowledgePath, sampleKnowledge)

	tests := []struct {
		name          string
		catalogPath   string
		knowledgePath string
		wantErr       bool
		wantBuildErr  bool
		wantKnowledge int
	}{
		{name: "both files", catalogPath: catalogPath, knowledgePath: knowledgePath, wantKnowledge: 1},
		{name: "knowledge not configured", catalogPath: catalogPath},
		{name: "knowledge missing", catalogPath: catalogPath, knowledgePath: filepath.Join(dir, "nope.json")},
		{name: "catalog missing", catalogPath: filepath.Join(dir, "missing.json"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := NewFileLoader(tt.catalogPath, tt.knowledgePath).Load(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(raw.Catalog.Categories) != 1 {
				t.Errorf("categories = %d, want 1", len(raw.Catalog.Categories))
			}
			if len(raw.Knowledge.Entries) != tt.wantKnowledge {
				t.Errorf("knowledge entries = %d, want %d", len(raw.Knowledge.Entries), tt.wantKnowledge)
			}
		})
	}
}

func TestFileLoader_MalformedCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	writeFile(t, path, `["not", "an", "object"]`)

	_, err := NewFileLoader(path, "").Load(context.Background())
	var buildErr *catalog.IndexBuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Load() error = %v, want IndexBuildError", err)
	}
}

func TestFileLoader_Paths(t *testing.T) {
	if got := NewFileLoader("a.json", "").Paths(); len(got) != 1 {
		t.Errorf("Paths() = %v, want only the catalog", got)
	}
	if got := NewFileLoader("a.json", "b.json").Paths(); len(got) != 2 {
		t.Errorf("Paths() = %v, want both files", got)
	}
}

func TestDBLoader_Load(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	repo := storage.NewCatalogRepo(db)
	loader := NewDBLoader(repo)
	ctx := context.Background()

	if _, err := loader.Load(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Load() before import error = %v, want ErrNotFound", err)
	}

	rawCatalog, _ := catalog.DecodeCatalog([]byte(sampleCatalog))
	rawKnowledge, _ := catalog.DecodeKnowledge([]byte(sampleKnowledge))
	if err := repo.ReplaceCatalog(ctx, rawCatalog); err != nil {
		t.Fatalf("ReplaceCatalog() error = %v", err)
	}
	if err := repo.ReplaceKnowledge(ctx, rawKnowledge); err != nil {
		t.Fatalf("ReplaceKnowledge() error = %v", err)
	}

	raw, err := loader.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	idx, err := catalog.Build(raw.Catalog)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if idx.Len() != 1 || idx.Records[0].Name != "Phenyl" {
		t.Errorf("records = %+v", idx.Records)
	}
	if len(raw.Knowledge.Entries) != 1 {
		t.Errorf("knowledge entries = %d, want 1", len(raw.Knowledge.Entries))
	}
}

func TestWatcher_DebouncesReload(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "products.json")
	other := filepath.Join(dir, "notes.txt")
	writeFile(t, watched, sampleCatalog)

	var calls atomic.Int32
	w, err := NewWatcher([]string{watched}, 50*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer func() {
		_ = w.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	writeFile(t, other, "ignored")
	for i := 0; i < 5; i++ {
		writeFile(t, watched, sampleCatalog)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Let any stray timer fire before counting.
	time.Sleep(150 * time.Millisecond)

	cancel()
	<-done

	if got := calls.Load(); got != 1 {
		t.Errorf("reload calls = %d, want 1", got)
	}
}
