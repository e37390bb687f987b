package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"catalog-assistant/internal/catalog"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

const repoCatalog = `{"categories": {
  "zeta": {"name": "Zeta Chemicals", "products": [
    {"id": 3, "name": "Acetic Acid", "mrp": 120, "tags": ["acid"]},
    {"id": 1, "name": "Citric Acid", "price": "85.5"}
  ]},
  "alpha": {"name": "Alpha Brushes", "products": [
    {"id": 2, "name": "Broom"}
  ]},
  "odd": {"name": "Odd", "products": "not a list"}
}}`

func TestCatalogRepo_ReplaceAndLoadCatalog(t *testing.T) {
	db := newTestDB(t)
	repo := NewCatalogRepo(db)
	ctx := context.Background()

	if _, err := repo.LoadCatalog(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadCatalog() on empty db error = %v, want ErrNotFound", err)
	}

	raw, err := catalog.DecodeCatalog([]byte(repoCatalog))
	if err != nil {
		t.Fatalf("DecodeCatalog() error = %v", err)
	}
	if err := repo.ReplaceCatalog(ctx, raw); err != nil {
		t.Fatalf("ReplaceCatalog() error = %v", err)
	}

	loaded, err := repo.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, raw) {
		t.Fatalf("LoadCatalog() = %#v\nwant %#v", loaded, raw)
	}

	// The rebuilt index must match the one built from the document.
	want, _ := catalog.Build(raw)
	got, err := catalog.Build(loaded)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(got.Records) != 3 || got.Records[0].ID != "3" || got.Records[2].ID != "2" {
		t.Errorf("record order = %v", got.Records)
	}
	if len(got.Warnings) != len(want.Warnings) {
		t.Errorf("warnings = %v, want %v", got.Warnings, want.Warnings)
	}

	info, err := repo.Info(ctx)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Categories != 3 || info.Products != 3 {
		t.Errorf("Info() = %+v, want 3 categories and 3 products", info)
	}
	if info.UpdatedAt.IsZero() {
		t.Error("Info() UpdatedAt should be set")
	}
}

func TestCatalogRepo_ReplaceCatalogOverwrites(t *testing.T) {
	db := newTestDB(t)
	repo := NewCatalogRepo(db)
	ctx := context.Background()

	first, _ := catalog.DecodeCatalog([]byte(repoCatalog))
	if err := repo.ReplaceCatalog(ctx, first); err != nil {
		t.Fatalf("ReplaceCatalog() error = %v", err)
	}

	second, _ := catalog.DecodeCatalog([]byte(`{"only": {"products": [{"id": 9, "name": "Mop"}]}}`))
	if err := repo.ReplaceCatalog(ctx, second); err != nil {
		t.Fatalf("ReplaceCatalog() error = %v", err)
	}

	loaded, err := repo.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(loaded.Categories) != 1 || loaded.Categories[0].Key != "only" {
		t.Fatalf("LoadCatalog() = %+v, want only the second catalog", loaded)
	}
	info, _ := repo.Info(ctx)
	if info.Products != 1 {
		t.Errorf("Info().Products = %d, want 1", info.Products)
	}
}

func TestCatalogRepo_ReplaceCatalogCanceled(t *testing.T) {
	db := newTestDB(t)
	repo := NewCatalogRepo(db)

	raw, _ := catalog.DecodeCatalog([]byte(repoCatalog))
	if err := repo.ReplaceCatalog(context.Background(), raw); err != nil {
		t.Fatalf("ReplaceCatalog() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := repo.ReplaceCatalog(ctx, catalog.RawCatalog{}); err == nil {
		t.Fatal("ReplaceCatalog() with canceled context should fail")
	}

	// The failed replace must not have cleared the stored catalog.
	loaded, err := repo.LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if len(loaded.Categories) != 3 {
		t.Errorf("categories = %d, want 3", len(loaded.Categories))
	}
}

func TestCatalogRepo_Knowledge(t *testing.T) {
	db := newTestDB(t)
	repo := NewCatalogRepo(db)
	ctx := context.Background()

	empty, err := repo.LoadKnowledge(ctx)
	if err != nil {
		t.Fatalf("LoadKnowledge() on empty db error = %v", err)
	}
	if len(empty.Entries) != 0 {
		t.Fatalf("LoadKnowledge() = %+v, want no entries", empty)
	}

	raw, err := catalog.DecodeKnowledge([]byte(`{"products_knowledge": {
	  "phenyl_kit": {"keywords": ["phenyl"], "price": {"kit_price": "300"}},
	  "dish_wash_kit": {"keywords": ["dish"], "recipe": {"steps": [{"step": 1, "instruction": "Mix"}]}}
	}}`))
	if err != nil {
		t.Fatalf("DecodeKnowledge() error = %v", err)
	}
	if err := repo.ReplaceKnowledge(ctx, raw); err != nil {
		t.Fatalf("ReplaceKnowledge() error = %v", err)
	}

	loaded, err := repo.LoadKnowledge(ctx)
	if err != nil {
		t.Fatalf("LoadKnowledge() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, raw) {
		t.Errorf("LoadKnowledge() = %#v\nwant %#v", loaded, raw)
	}

	info, _ := repo.Info(ctx)
	if info.KnowledgeEntries != 2 {
		t.Errorf("Info().KnowledgeEntries = %d, want 2", info.KnowledgeEntries)
	}
}

func TestSplitCategory(t *testing.T) {
	tests := []struct {
		name        string
		value       any
		wantList    bool
		wantCount   int
		wantProduct bool
	}{
		{
			name:      "list",
			value:     map[string]any{"name": "A", "products": []any{map[string]any{"id": 1.0}}},
			wantList:  true,
			wantCount: 1,
		},
		{
			name:        "products not a list",
			value:       map[string]any{"name": "A", "products": "x"},
			wantProduct: true,
		},
		{
			name:  "not an object",
			value: "scalar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, products, hasList := splitCategory(tt.value)
			if hasList != tt.wantList || len(products) != tt.wantCount {
				t.Fatalf("splitCategory() list = %v count = %d", hasList, len(products))
			}
			if obj, ok := body.(map[string]any); ok {
				_, kept := obj["products"]
				if kept != tt.wantProduct {
					t.Errorf("body products kept = %v, want %v", kept, tt.wantProduct)
				}
			}
		})
	}
}
