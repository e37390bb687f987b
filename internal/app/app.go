// Package app wires the catalog assistant from a Config. Both binaries build
// through it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"catalog-assistant/internal/cache"
	"catalog-assistant/internal/config"
	"catalog-assistant/internal/handlers"
	"catalog-assistant/internal/indexer"
	"catalog-assistant/internal/intent"
	"catalog-assistant/internal/lexical"
	"catalog-assistant/internal/llm"
	"catalog-assistant/internal/rag"
	"catalog-assistant/internal/service"
	"catalog-assistant/internal/source"
	"catalog-assistant/internal/storage"
	"catalog-assistant/internal/vectorstore"
)

// App holds the wired components. Optional collaborators are nil when
// disabled by configuration.
type App struct {
	Config *config.Config

	DB        *sql.DB
	Catalog   *storage.CatalogRepo
	Loader    source.Loader
	Snapshots *rag.EngineContext
	Pipeline  *indexer.Pipeline
	Engine    rag.Engine
	Queries   service.QueryService

	Embedder *llm.EmbeddingsClient
	LLM      *llm.Client
	Models   *llm.ModelLoader
	Qdrant   *vectorstore.QdrantStore
	Cache    *cache.RedisCache
}

// Build opens the database, loads the tables and wires every component. It
// does not load the catalog; call Pipeline.Bootstrap or Pipeline.Reload.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := slog.Default()

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database initialized", "path", cfg.DBPath)

	a := &App{
		Config:    cfg,
		DB:        db,
		Catalog:   storage.NewCatalogRepo(db),
		Snapshots: rag.NewEngineContext(),
	}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	logger := slog.Default()

	switch cfg.CatalogSource {
	case config.SourceSQLite:
		a.Loader = source.NewDBLoader(a.Catalog)
	default:
		a.Loader = source.NewFileLoader(cfg.CatalogPath, cfg.KnowledgePath)
	}

	boosts := lexical.DefaultBoostTable()
	if cfg.BoostTablePath != "" {
		loaded, err := lexical.LoadBoostTable(cfg.BoostTablePath)
		if err != nil {
			return err
		}
		boosts = loaded
	}
	tables := intent.DefaultTables()
	if cfg.IntentTablePath != "" {
		loaded, err := intent.LoadTables(cfg.IntentTablePath)
		if err != nil {
			return err
		}
		tables = loaded
	}
	templates := rag.DefaultTemplateTable()
	if cfg.TemplateTablePath != "" {
		loaded, err := rag.LoadTemplateTable(cfg.TemplateTablePath)
		if err != nil {
			return err
		}
		templates = loaded
	}

	// Interface-typed collaborators stay untyped nil when disabled.
	var (
		embedder     rag.Embedder
		embedCache   storage.EmbeddingStore
		collections  vectorstore.CollectionStore
		generator    rag.Generator
		responses    rag.ResponseCache
		classifier   intent.Classifier
		fallbackRule intent.Classifier
	)

	keyword := intent.NewKeywordClassifier(tables)
	classifier = keyword

	if cfg.SemanticEnabled() {
		a.Embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize)
		embedder = a.Embedder
		embedCache = storage.NewEmbeddingRepo(a.DB)

		if cfg.VectorBackend == indexer.BackendQdrant {
			store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
			if err != nil {
				return err
			}
			a.Qdrant = store
			collections = store
		}

		if cfg.IntentStrategy == "semantic" {
			semantic, err := intent.NewSemanticClassifier(ctx, a.Embedder, tables)
			if err != nil {
				logger.Warn("Semantic classifier unavailable, using keyword rules", "error", err)
			} else {
				classifier = semantic
				fallbackRule = keyword
			}
		}
	}

	if cfg.GenerationEnabled {
		a.LLM = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
		a.Models = llm.NewModelLoader(cfg.LLMBaseURL)
		generator = a.LLM
	}

	if cfg.CacheEnabled() {
		c, err := cache.NewRedisCache(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			logger.Warn("Response cache unavailable, continuing without it", "addr", cfg.RedisAddr, "error", err)
		} else {
			a.Cache = c
			responses = c
		}
	}

	a.Pipeline = indexer.NewPipeline(indexer.Options{
		Loader:     a.Loader,
		Snapshots:  a.Snapshots,
		Embedder:   embedder,
		Cache:      embedCache,
		Model:      cfg.EmbeddingModelName,
		Backend:    cfg.VectorBackend,
		Qdrant:     collections,
		Collection: cfg.QdrantCollection,
	})

	a.Engine = rag.NewEngine(rag.Config{
		Mode:              cfg.RetrievalMode,
		DefaultLimit:      cfg.SearchLimit,
		SemanticThreshold: cfg.SemanticThreshold,
		GenerationEnabled: cfg.GenerationEnabled,
		GenerationTimeout: cfg.GenerationTimeout,
		MaxTokens:         cfg.GenerationMaxTokens,
		Temperature:       float32(cfg.GenerationTemperature),
		CompanyContext:    cfg.CompanyContext,
	}, rag.Options{
		Context:    a.Snapshots,
		Scorer:     lexical.NewScorer(boosts),
		Classifier: classifier,
		Fallback:   fallbackRule,
		Generator:  generator,
		Embedder:   embedder,
		Templates:  templates,
		Cache:      responses,
	})
	a.Queries = service.NewQueryService(a.Engine, a.Pipeline)

	logger.Info("Engine initialized",
		"retrieval_mode", cfg.RetrievalMode,
		"intent_strategy", cfg.IntentStrategy,
		"semantic", cfg.SemanticEnabled(),
		"vector_backend", cfg.VectorBackend,
		"generation", cfg.GenerationEnabled,
		"cache", a.Cache != nil,
	)
	return nil
}

// HealthOptions returns the readiness checks for the configured collaborators.
func (a *App) HealthOptions() handlers.HealthOptions {
	opts := handlers.HealthOptions{
		Snapshots:       a.Snapshots,
		SemanticEnabled: a.Pipeline.SemanticEnabled(),
		ModelName:       a.Config.LLMModelName,
	}
	if a.LLM != nil {
		opts.Generator = a.LLM
		opts.Models = a.Models
	}
	if a.Cache != nil {
		opts.Cache = a.Cache
	}
	return opts
}

// NewWatcher watches the catalog files and reloads on change. It returns nil
// when the catalog is not file-backed.
func (a *App) NewWatcher() (*source.Watcher, error) {
	files, ok := a.Loader.(*source.FileLoader)
	if !ok {
		return nil, nil
	}
	return source.NewWatcher(files.Paths(), source.DefaultDebounce, func(ctx context.Context) error {
		_, err := a.Pipeline.Reload(ctx)
		return err
	})
}

// Close releases the database and client connections.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Qdrant != nil {
		errs = append(errs, a.Qdrant.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
