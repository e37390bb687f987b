package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Catalog sources.
const (
	SourceFile   = "file"
	SourceSQLite = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	CatalogSource string
	CatalogPath   string
	KnowledgePath string
	CatalogWatch  bool
	DBPath        string

	// Optional YAML overrides of the built-in tables.
	BoostTablePath    string
	IntentTablePath   string
	TemplateTablePath string

	RetrievalMode     string
	IntentStrategy    string
	SearchLimit       int
	SemanticThreshold float64

	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingVectorSize int
	VectorBackend       string
	QdrantURL           string
	QdrantCollection    string

	LLMBaseURL            string
	LLMModelName          string
	LLMAPIKey             string
	GenerationEnabled     bool
	GenerationTimeout     time.Duration
	GenerationMaxTokens   int
	GenerationTemperature float64
	CompanyContext        string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

// SemanticEnabled reports whether embeddings are configured.
func (c *Config) SemanticEnabled() bool {
	return c.EmbeddingVectorSize > 0
}

// CacheEnabled reports whether the Redis response cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the result.
// If a .env file exists in the current directory or one of its parents, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		APIPort:   getEnv("API_PORT", "9000"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		CatalogSource: strings.ToLower(getEnv("CATALOG_SOURCE", SourceFile)),
		CatalogPath:   getEnv("CATALOG_PATH", "./data/products.json"),
		KnowledgePath: getEnv("KNOWLEDGE_PATH", "./data/knowledge.json"),
		DBPath:        getEnv("DB_PATH", "./data/catalog-assistant.db"),

		BoostTablePath:    getEnv("BOOST_TABLE_PATH", ""),
		IntentTablePath:   getEnv("INTENT_TABLE_PATH", ""),
		TemplateTablePath: getEnv("TEMPLATE_TABLE_PATH", ""),

		RetrievalMode:  strings.ToLower(getEnv("RETRIEVAL_MODE", "hybrid")),
		IntentStrategy: strings.ToLower(getEnv("INTENT_STRATEGY", "keyword")),

		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", "memory")),
		QdrantURL:          getEnv("QDRANT_URL", ""),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "products"),

		LLMBaseURL:     getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:   getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:      getEnv("LLM_API_KEY", "dummy-key"),
		CompanyContext: getEnv("COMPANY_CONTEXT", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
	}

	var err error
	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.CatalogWatch, err = getBool("CATALOG_WATCH", false); err != nil {
		return nil, err
	}
	if cfg.SearchLimit, err = getInt("SEARCH_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.SemanticThreshold, err = getFloat("SEMANTIC_THRESHOLD", 0.3); err != nil {
		return nil, err
	}
	// EMBEDDING_VECTOR_SIZE must match the output size of the embeddings model.
	// 0 disables embeddings, semantic search and the semantic classifier.
	if cfg.EmbeddingVectorSize, err = getInt("EMBEDDING_VECTOR_SIZE", 0); err != nil {
		return nil, err
	}
	if cfg.GenerationEnabled, err = getBool("GENERATION_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.GenerationTimeout, err = getDuration("GENERATION_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.GenerationMaxTokens, err = getInt("GENERATION_MAX_TOKENS", 150); err != nil {
		return nil, err
	}
	if cfg.GenerationTemperature, err = getFloat("GENERATION_TEMPERATURE", 0.7); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create the data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// Validate checks ranges, enum values and cross-field requirements.
func (c *Config) Validate() error {
	if err := oneOf("LOG_FORMAT", c.LogFormat, "text", "json"); err != nil {
		return err
	}
	if err := oneOf("CATALOG_SOURCE", c.CatalogSource, SourceFile, SourceSQLite); err != nil {
		return err
	}
	if err := oneOf("RETRIEVAL_MODE", c.RetrievalMode, "lexical", "semantic", "hybrid"); err != nil {
		return err
	}
	if err := oneOf("INTENT_STRATEGY", c.IntentStrategy, "keyword", "semantic"); err != nil {
		return err
	}
	if err := oneOf("VECTOR_BACKEND", c.VectorBackend, "memory", "qdrant"); err != nil {
		return err
	}

	if c.SearchLimit < 1 || c.SearchLimit > 50 {
		return fmt.Errorf("SEARCH_LIMIT must be between 1 and 50, got %d", c.SearchLimit)
	}
	if c.SemanticThreshold < -1 || c.SemanticThreshold > 1 {
		return fmt.Errorf("SEMANTIC_THRESHOLD must be between -1 and 1, got %v", c.SemanticThreshold)
	}
	if c.EmbeddingVectorSize < 0 {
		return fmt.Errorf("EMBEDDING_VECTOR_SIZE must not be negative")
	}
	if c.GenerationMaxTokens <= 0 {
		return fmt.Errorf("GENERATION_MAX_TOKENS must be greater than 0")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be greater than 0")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be greater than 0")
	}

	if !c.SemanticEnabled() {
		if c.RetrievalMode == "semantic" {
			return fmt.Errorf("RETRIEVAL_MODE=semantic requires EMBEDDING_VECTOR_SIZE")
		}
		if c.IntentStrategy == "semantic" {
			return fmt.Errorf("INTENT_STRATEGY=semantic requires EMBEDDING_VECTOR_SIZE")
		}
	}
	if c.VectorBackend == "qdrant" && c.QdrantURL == "" {
		return fmt.Errorf("VECTOR_BACKEND=qdrant requires QDRANT_URL")
	}
	if c.CatalogWatch && c.CatalogSource != SourceFile {
		return fmt.Errorf("CATALOG_WATCH requires CATALOG_SOURCE=file")
	}
	return nil
}

// loadDotEnv loads the first .env found in the working directory or up to
// five of its parents. A missing file is not an error.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %w", err)
	}
	return level, nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 30s: %w", key, err)
	}
	return v, nil
}
