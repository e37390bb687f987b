package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"catalog-assistant/internal/rag"
)

const catalogJSON = `{"categories": {
  "chemicals": {"name": "Chemicals", "products": [
    {"id": 1001, "name": "Acetic Acid 30%", "mrp": 120},
    {"id": 1002, "name": "Citric Acid", "mrp": 85}
  ]},
  "cleaning": {"name": "Cleaning", "products": [
    {"id": 2001, "name": "Floor Cleaner", "mrp": 99}
  ]}
}}`

// setupEnv points the configuration at a temporary catalog and database with
// generation and embeddings disabled.
func setupEnv(t *testing.T) (catalogPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	catalogPath = filepath.Join(dir, "products.json")
	if err := os.WriteFile(catalogPath, []byte(catalogJSON), 0644); err != nil {
		t.Fatal(err)
	}
	dbPath = filepath.Join(dir, "catalog.db")

	t.Setenv("CATALOG_SOURCE", "file")
	t.Setenv("CATALOG_PATH", catalogPath)
	t.Setenv("KNOWLEDGE_PATH", filepath.Join(dir, "knowledge.json"))
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("GENERATION_ENABLED", "false")
	t.Setenv("EMBEDDING_VECTOR_SIZE", "0")
	t.Setenv("RETRIEVAL_MODE", "lexical")
	t.Setenv("INTENT_STRATEGY", "keyword")
	t.Setenv("REDIS_ADDR", "")
	return catalogPath, dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCmd(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "search", "acetic", "acid")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	if !strings.Contains(out, "Acetic Acid 30%") {
		t.Errorf("output does not list the product:\n%s", out)
	}

	out, err = execute(t, "search", "--json", "--limit", "1", "acid")
	if err != nil {
		t.Fatalf("search --json error = %v", err)
	}
	var resp rag.RankedResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.Kind != rag.KindSearch || len(resp.Items) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	setupEnv(t)
	if _, err := execute(t, "search"); err == nil {
		t.Error("search without a query should fail")
	}
}

func TestClassifyCmd(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "classify", "hello")
	if err != nil {
		t.Fatalf("classify error = %v", err)
	}
	if !strings.Contains(out, "intent: greeting") {
		t.Errorf("output = %q", out)
	}
}

func TestImportCmd(t *testing.T) {
	catalogPath, dbPath := setupEnv(t)

	out, err := execute(t, "import", "--catalog", catalogPath, "--db", dbPath)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "imported 2 categories, 3 products") {
		t.Errorf("output = %q", out)
	}

	// The imported catalog serves searches from SQLite.
	t.Setenv("CATALOG_SOURCE", "sqlite")
	t.Setenv("CATALOG_PATH", filepath.Join(t.TempDir(), "missing.json"))
	out, err = execute(t, "search", "floor", "cleaner")
	if err != nil {
		t.Fatalf("search after import error = %v", err)
	}
	if !strings.Contains(out, "Floor Cleaner") {
		t.Errorf("output = %q", out)
	}
}

func TestImportCmd_InvalidCatalog(t *testing.T) {
	_, dbPath := setupEnv(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"categories": []}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "import", "--catalog", bad, "--db", dbPath); err == nil {
		t.Error("import of an invalid catalog should fail")
	}
	if _, err := execute(t, "import"); err == nil {
		t.Error("import without --catalog should fail")
	}
}
