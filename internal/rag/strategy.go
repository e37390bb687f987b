package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks catalog-assistant/internal/rag Embedder
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks catalog-assistant/internal/rag Generator

import (
	"context"
	"fmt"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/lexical"
	"catalog-assistant/internal/llm"
)

// Embedder produces one vector per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a conversational answer from chat messages.
type Generator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// RetrievalStrategy ranks catalog products for a query against one snapshot.
type RetrievalStrategy interface {
	Name() string
	Retrieve(ctx context.Context, snap *Snapshot, query string, limit int) ([]catalog.ScoredResult, error)
}

// Retrieval modes.
const (
	ModeLexical  = "lexical"
	ModeSemantic = "semantic"
	ModeHybrid   = "hybrid"
)

// LexicalStrategy ranks with the token-overlap scorer.
type LexicalStrategy struct {
	scorer *lexical.Scorer
}

// NewLexicalStrategy creates a lexical strategy.
func NewLexicalStrategy(scorer *lexical.Scorer) *LexicalStrategy {
	return &LexicalStrategy{scorer: scorer}
}

// Name implements RetrievalStrategy.
func (s *LexicalStrategy) Name() string { return ModeLexical }

// Retrieve implements RetrievalStrategy.
func (s *LexicalStrategy) Retrieve(ctx context.Context, snap *Snapshot, query string, limit int) ([]catalog.ScoredResult, error) {
	records := snap.Records()
	if len(records) == 0 {
		return nil, nil
	}
	return s.scorer.Rank(query, records, limit), nil
}

// SemanticStrategy embeds the query and searches the snapshot's semantic index.
type SemanticStrategy struct {
	embedder  Embedder
	threshold float64
}

// NewSemanticStrategy creates a semantic strategy. Similarities below threshold are dropped.
func NewSemanticStrategy(embedder Embedder, threshold float64) *SemanticStrategy {
	return &SemanticStrategy{embedder: embedder, threshold: threshold}
}

// Name implements RetrievalStrategy.
func (s *SemanticStrategy) Name() string { return ModeSemantic }

// Retrieve implements RetrievalStrategy. A missing index or embedder, or an
// embedding failure, is reported as ErrRetrievalDegraded.
func (s *SemanticStrategy) Retrieve(ctx context.Context, snap *Snapshot, query string, limit int) ([]catalog.ScoredResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrRetrievalDegraded)
	}
	if !snap.HasSemantic() {
		return nil, fmt.Errorf("%w: semantic index not built", ErrRetrievalDegraded)
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %w", ErrRetrievalDegraded, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", ErrRetrievalDegraded, len(vectors))
	}

	results, err := snap.Semantic.Search(ctx, vectors[0], limit, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: semantic search: %w", ErrRetrievalDegraded, err)
	}
	return results, nil
}

// strategiesFor returns the strategies a retrieval mode runs, in order.
// Hybrid without an embedder runs lexical only.
func strategiesFor(mode string, scorer *lexical.Scorer, embedder Embedder, threshold float64) []RetrievalStrategy {
	lex := NewLexicalStrategy(scorer)
	sem := NewSemanticStrategy(embedder, threshold)
	switch {
	case mode == ModeLexical:
		return []RetrievalStrategy{lex}
	case mode == ModeSemantic:
		return []RetrievalStrategy{sem}
	case embedder == nil:
		return []RetrievalStrategy{lex}
	default:
		return []RetrievalStrategy{lex, sem}
	}
}
