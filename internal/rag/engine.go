package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=enginemock/mock_engine.go -package=enginemock catalog-assistant/internal/rag Engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/intent"
	"catalog-assistant/internal/lexical"
	"catalog-assistant/internal/llm"
)

const (
	// DefaultLimit is the listing size when a request does not set one.
	DefaultLimit = 10
	// MaxLimit caps the listing size.
	MaxLimit = 50
	// DefaultGenerationTimeout bounds a generation call.
	DefaultGenerationTimeout = 30 * time.Second
)

// Engine answers customer queries with the tiered fallback chain:
// generation, templates, merged catalog search and the no-results message.
type Engine interface {
	// Search classifies the query and routes it to conversation, a canned reply or catalog search.
	Search(ctx context.Context, req SearchRequest) (RankedResponse, error)
	// Converse answers a product question with generation, falling back to templates.
	Converse(ctx context.Context, req ConverseRequest) (RankedResponse, error)
	// Classify returns the intent of a message.
	Classify(ctx context.Context, message string) (intent.Intent, error)
	// Categories lists the categories of the active snapshot.
	Categories(ctx context.Context) ([]catalog.Category, error)
}

// Config tunes the engine.
type Config struct {
	// Mode is one of ModeLexical, ModeSemantic or ModeHybrid.
	Mode              string
	DefaultLimit      int
	SemanticThreshold float64

	GenerationEnabled bool
	GenerationTimeout time.Duration
	MaxTokens         int
	Temperature       float32
	CompanyContext    string
}

// Options holds the engine collaborators. Generator, Embedder, Fallback and
// Cache may be nil.
type Options struct {
	Context    *EngineContext
	Scorer     *lexical.Scorer
	Classifier intent.Classifier
	// Fallback classifies when Classifier fails.
	Fallback  intent.Classifier
	Generator Generator
	Embedder  Embedder
	Templates TemplateTable
	Cache     ResponseCache
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	cfg        Config
	snapshots  *EngineContext
	lexical    *LexicalStrategy
	strategies []RetrievalStrategy
	classifier intent.Classifier
	fallback   intent.Classifier
	generator  Generator
	templates  TemplateTable
	cache      ResponseCache
}

// NewEngine creates a new engine.
func NewEngine(cfg Config, opts Options) Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	if opts.Scorer == nil {
		opts.Scorer = lexical.NewScorer(lexical.DefaultBoostTable())
	}
	if opts.Classifier == nil {
		opts.Classifier = intent.NewKeywordClassifier(intent.DefaultTables())
	}
	if opts.Templates.General.English == "" && opts.Templates.General.Hindi == "" {
		opts.Templates = DefaultTemplateTable()
	}

	return &ragEngine{
		cfg:        cfg,
		snapshots:  opts.Context,
		lexical:    NewLexicalStrategy(opts.Scorer),
		strategies: strategiesFor(cfg.Mode, opts.Scorer, opts.Embedder, cfg.SemanticThreshold),
		classifier: opts.Classifier,
		fallback:   opts.Fallback,
		generator:  opts.Generator,
		templates:  opts.Templates,
		cache:      opts.Cache,
	}
}

// Search implements Engine.
func (e *ragEngine) Search(ctx context.Context, req SearchRequest) (RankedResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return RankedResponse{}, ErrEmptyQuery
	}
	snap := e.snapshots.Load()
	if snap == nil {
		return RankedResponse{}, ErrNoSnapshot
	}

	in := e.classify(ctx, query)
	logger.InfoContext(ctx, "search started",
		"query", query,
		"intent", in.Label,
		"confidence", in.Confidence,
		"generation", snap.Generation,
	)

	switch in.Label {
	case intent.Question:
		resp := e.converse(ctx, snap, query, nil)
		resp.Meta.Intent = string(in.Label)
		return resp, nil
	case intent.Greeting, intent.Thanks, intent.Help:
		if reply, ok := e.templates.Reply(in.Label); ok {
			return RankedResponse{
				Kind:    KindConversation,
				Items:   []catalog.ScoredResult{},
				Message: reply,
				Meta: Meta{
					Query:      query,
					Tier:       TierCanned,
					Intent:     string(in.Label),
					Generation: snap.Generation,
				},
			}, nil
		}
	}

	limit := e.clampLimit(req.Limit)
	key := CacheKey(snap.CacheScope(), limit, query)
	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			logger.WarnContext(ctx, "response cache read failed", "error", err)
		} else if ok {
			logger.DebugContext(ctx, "response cache hit", "query", query)
			// The entry may have been written by another process.
			cached.Meta.Query = query
			cached.Meta.Generation = snap.Generation
			return cached, nil
		}
	}

	retrievalQuery := query
	if in.Entity != "" {
		retrievalQuery = in.Entity
	}
	resp := e.searchCatalog(ctx, snap, query, retrievalQuery, limit)
	resp.Meta.Intent = string(in.Label)

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, resp); err != nil {
			logger.WarnContext(ctx, "response cache write failed", "error", err)
		}
	}
	return resp, nil
}

// Converse implements Engine.
func (e *ragEngine) Converse(ctx context.Context, req ConverseRequest) (RankedResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return RankedResponse{}, ErrEmptyQuery
	}
	snap := e.snapshots.Load()
	if snap == nil {
		return RankedResponse{}, ErrNoSnapshot
	}

	resp := e.converse(ctx, snap, question, req.ProductContext)
	resp.Meta.Intent = string(intent.Question)
	return resp, nil
}

// Classify implements Engine.
func (e *ragEngine) Classify(ctx context.Context, message string) (intent.Intent, error) {
	return e.classify(ctx, message), nil
}

// Categories implements Engine.
func (e *ragEngine) Categories(ctx context.Context) ([]catalog.Category, error) {
	snap := e.snapshots.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	out := make([]catalog.Category, len(snap.Categories()))
	copy(out, snap.Categories())
	return out, nil
}

// classify runs the configured classifier and degrades to the fallback on error.
func (e *ragEngine) classify(ctx context.Context, message string) intent.Intent {
	logger := contextutil.LoggerFromContext(ctx)

	in, err := e.classifier.Classify(ctx, message)
	if err == nil {
		return in
	}
	logger.WarnContext(ctx, "intent classification failed, using fallback", "error", err)
	if e.fallback == nil {
		return intent.UnknownIntent()
	}
	in, err = e.fallback.Classify(ctx, message)
	if err != nil {
		logger.WarnContext(ctx, "fallback classification failed", "error", err)
		return intent.UnknownIntent()
	}
	return in
}

// converse runs tier 1 and then tier 2.
func (e *ragEngine) converse(ctx context.Context, snap *Snapshot, question string, productContext map[string]any) RankedResponse {
	logger := contextutil.LoggerFromContext(ctx)

	resp := RankedResponse{
		Kind:  KindConversation,
		Items: []catalog.ScoredResult{},
		Meta: Meta{
			Query:      question,
			Generation: snap.Generation,
		},
	}

	answer, err := e.generate(ctx, snap, question, productContext)
	if err == nil {
		resp.Message = answer
		resp.Meta.Tier = TierGeneration
		logger.InfoContext(ctx, "answered by generation", "answer_length", len(answer))
		return resp
	}
	logger.WarnContext(ctx, "generation tier failed, using templates", "error", err)

	key, text := e.templates.Respond(question)
	resp.Message = text
	resp.Meta.Tier = TierTemplate
	logger.InfoContext(ctx, "answered by template", "template", key)
	return resp
}

// generate is tier 1. Every failure is reported as ErrGenerationUnavailable.
func (e *ragEngine) generate(ctx context.Context, snap *Snapshot, question string, productContext map[string]any) (string, error) {
	if e.generator == nil || !e.cfg.GenerationEnabled {
		return "", fmt.Errorf("%w: generator disabled", ErrGenerationUnavailable)
	}

	var derived string
	if len(productContext) == 0 {
		products, _ := e.lexical.Retrieve(ctx, snap, question, contextProducts)
		derived = deriveContext(products, snap.Knowledge.Retrieve(question))
	}
	messages := buildMessages(e.cfg.CompanyContext, question, productContext, derived)

	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerationTimeout)
	defer cancel()

	answer, err := e.generator.ChatWithMessages(genCtx, messages, llm.ChatParams{
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s", ErrGenerationUnavailable, e.cfg.GenerationTimeout)
		}
		return "", fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}

	accepted, ok := acceptAnswer(answer)
	if !ok {
		return "", fmt.Errorf("%w: answer too short", ErrGenerationUnavailable)
	}
	return accepted, nil
}

// searchCatalog is tier 3 with tier 4 as its empty outcome.
func (e *ragEngine) searchCatalog(ctx context.Context, snap *Snapshot, query, retrievalQuery string, limit int) RankedResponse {
	logger := contextutil.LoggerFromContext(ctx)

	var lists [][]catalog.ScoredResult
	for _, strategy := range e.strategies {
		results, err := strategy.Retrieve(ctx, snap, retrievalQuery, limit)
		if err != nil {
			logger.WarnContext(ctx, "retrieval strategy degraded",
				"strategy", strategy.Name(),
				"error", err,
			)
			continue
		}
		logger.DebugContext(ctx, "strategy results", "strategy", strategy.Name(), "count", len(results))
		lists = append(lists, results)
	}

	products := Merge(lists...)
	if len(products) > limit {
		products = products[:limit]
	}
	kb := snap.Knowledge.Retrieve(retrievalQuery)

	items := make([]catalog.ScoredResult, 0, len(products)+len(kb.Results))
	items = append(items, products...)
	items = append(items, kb.Results...)

	resp := RankedResponse{
		Kind:  KindSearch,
		Items: items,
		Meta: Meta{
			Query:      query,
			TotalFound: len(items),
			Generation: snap.Generation,
		},
	}

	if len(items) == 0 {
		resp.Message = formatNoResults(query, snap.Categories())
		resp.Meta.Tier = TierNoResults
		logger.InfoContext(ctx, "search found nothing", "query", query)
		return resp
	}

	resp.Message = formatListing(products, kb)
	resp.Meta.Tier = TierSearch
	logger.InfoContext(ctx, "search completed",
		"products", len(products),
		"knowledge", len(kb.Results),
	)
	return resp
}

// clampLimit applies the default and the MaxLimit cap.
func (e *ragEngine) clampLimit(limit int) int {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}
