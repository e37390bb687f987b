package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"API_PORT", "LOG_LEVEL", "LOG_FORMAT",
	"CATALOG_SOURCE", "CATALOG_PATH", "KNOWLEDGE_PATH", "CATALOG_WATCH", "DB_PATH",
	"BOOST_TABLE_PATH", "INTENT_TABLE_PATH", "TEMPLATE_TABLE_PATH",
	"RETRIEVAL_MODE", "INTENT_STRATEGY", "SEARCH_LIMIT", "SEMANTIC_THRESHOLD",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME", "EMBEDDING_VECTOR_SIZE",
	"VECTOR_BACKEND", "QDRANT_URL", "QDRANT_COLLECTION",
	"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY",
	"GENERATION_ENABLED", "GENERATION_TIMEOUT", "GENERATION_MAX_TOKENS", "GENERATION_TEMPERATURE",
	"COMPANY_CONTEXT",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CACHE_TTL",
}

// clearEnv unsets every variable Load reads for the duration of the test and
// points DB_PATH at a temporary directory.
func clearEnv(t *testing.T) string {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	dbPath := filepath.Join(t.TempDir(), "data", "test.db")
	t.Setenv("DB_PATH", dbPath)
	return dbPath
}

func TestLoad_Defaults(t *testing.T) {
	dbPath := clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"APIPort", cfg.APIPort, "9000"},
		{"LogLevel", cfg.LogLevel, slog.LevelInfo},
		{"LogFormat", cfg.LogFormat, "text"},
		{"CatalogSource", cfg.CatalogSource, SourceFile},
		{"CatalogPath", cfg.CatalogPath, "./data/products.json"},
		{"KnowledgePath", cfg.KnowledgePath, "./data/knowledge.json"},
		{"CatalogWatch", cfg.CatalogWatch, false},
		{"RetrievalMode", cfg.RetrievalMode, "hybrid"},
		{"IntentStrategy", cfg.IntentStrategy, "keyword"},
		{"SearchLimit", cfg.SearchLimit, 10},
		{"SemanticThreshold", cfg.SemanticThreshold, 0.3},
		{"EmbeddingVectorSize", cfg.EmbeddingVectorSize, 0},
		{"VectorBackend", cfg.VectorBackend, "memory"},
		{"QdrantCollection", cfg.QdrantCollection, "products"},
		{"GenerationEnabled", cfg.GenerationEnabled, true},
		{"GenerationTimeout", cfg.GenerationTimeout, 30 * time.Second},
		{"GenerationMaxTokens", cfg.GenerationMaxTokens, 150},
		{"GenerationTemperature", cfg.GenerationTemperature, 0.7},
		{"RedisDB", cfg.RedisDB, 0},
		{"CacheTTL", cfg.CacheTTL, 10 * time.Minute},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if cfg.SemanticEnabled() || cfg.CacheEnabled() {
		t.Error("semantic features and cache should be disabled by default")
	}
	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("data directory was not created: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("CATALOG_SOURCE", "sqlite")
	t.Setenv("RETRIEVAL_MODE", "semantic")
	t.Setenv("INTENT_STRATEGY", "semantic")
	t.Setenv("SEARCH_LIMIT", "25")
	t.Setenv("SEMANTIC_THRESHOLD", "-0.5")
	t.Setenv("EMBEDDING_VECTOR_SIZE", "768")
	t.Setenv("VECTOR_BACKEND", "qdrant")
	t.Setenv("QDRANT_URL", "http://localhost:6334")
	t.Setenv("GENERATION_ENABLED", "false")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "json" {
		t.Errorf("logging = %v %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.CatalogSource != SourceSQLite || cfg.RetrievalMode != "semantic" || cfg.IntentStrategy != "semantic" {
		t.Errorf("modes = %q %q %q", cfg.CatalogSource, cfg.RetrievalMode, cfg.IntentStrategy)
	}
	if cfg.SearchLimit != 25 || cfg.SemanticThreshold != -0.5 || cfg.EmbeddingVectorSize != 768 {
		t.Errorf("retrieval = %d %v %d", cfg.SearchLimit, cfg.SemanticThreshold, cfg.EmbeddingVectorSize)
	}
	if cfg.GenerationEnabled || cfg.GenerationTimeout != 5*time.Second {
		t.Errorf("generation = %v %v", cfg.GenerationEnabled, cfg.GenerationTimeout)
	}
	if !cfg.SemanticEnabled() || !cfg.CacheEnabled() || cfg.CacheTTL != time.Minute {
		t.Errorf("semantic = %v, cache = %v %v", cfg.SemanticEnabled(), cfg.CacheEnabled(), cfg.CacheTTL)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantVar string
	}{
		{"threshold above range", map[string]string{"SEMANTIC_THRESHOLD": "1.5"}, "SEMANTIC_THRESHOLD"},
		{"threshold below range", map[string]string{"SEMANTIC_THRESHOLD": "-2"}, "SEMANTIC_THRESHOLD"},
		{"threshold not a number", map[string]string{"SEMANTIC_THRESHOLD": "high"}, "SEMANTIC_THRESHOLD"},
		{"limit zero", map[string]string{"SEARCH_LIMIT": "0"}, "SEARCH_LIMIT"},
		{"limit too large", map[string]string{"SEARCH_LIMIT": "51"}, "SEARCH_LIMIT"},
		{"unknown retrieval mode", map[string]string{"RETRIEVAL_MODE": "fuzzy"}, "RETRIEVAL_MODE"},
		{"unknown intent strategy", map[string]string{"INTENT_STRATEGY": "llm"}, "INTENT_STRATEGY"},
		{"unknown catalog source", map[string]string{"CATALOG_SOURCE": "postgres"}, "CATALOG_SOURCE"},
		{"unknown log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"semantic retrieval without embeddings", map[string]string{"RETRIEVAL_MODE": "semantic"}, "RETRIEVAL_MODE"},
		{"semantic intents without embeddings", map[string]string{"INTENT_STRATEGY": "semantic"}, "INTENT_STRATEGY"},
		{"qdrant without url", map[string]string{"VECTOR_BACKEND": "qdrant", "EMBEDDING_VECTOR_SIZE": "768"}, "QDRANT_URL"},
		{"negative vector size", map[string]string{"EMBEDDING_VECTOR_SIZE": "-1"}, "EMBEDDING_VECTOR_SIZE"},
		{"bad timeout", map[string]string{"GENERATION_TIMEOUT": "soon"}, "GENERATION_TIMEOUT"},
		{"bad bool", map[string]string{"GENERATION_ENABLED": "maybe"}, "GENERATION_ENABLED"},
		{"watch without file source", map[string]string{"CATALOG_WATCH": "true", "CATALOG_SOURCE": "sqlite"}, "CATALOG_WATCH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantVar) {
				t.Errorf("Load() error = %q, want it to name %s", err, tt.wantVar)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("API_PORT=9191\nSEARCH_LIMIT=7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9191" || cfg.SearchLimit != 7 {
		t.Errorf(".env values not applied: port %q, limit %d", cfg.APIPort, cfg.SearchLimit)
	}
}
