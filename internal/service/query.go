package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_service.go -package=mocks catalog-assistant/internal/service QueryService,Reloader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/indexer"
	"catalog-assistant/internal/intent"
	"catalog-assistant/internal/rag"
)

// SearchRequest represents a search request in the domain layer.
type SearchRequest struct {
	Query string
	Limit int
}

// ConverseRequest represents a product question in the domain layer.
type ConverseRequest struct {
	Question       string
	ProductContext map[string]any
}

// Reloader rebuilds and publishes the catalog snapshot.
type Reloader interface {
	Reload(ctx context.Context) (*indexer.Stats, error)
}

// QueryService validates customer input and runs it through the engine.
type QueryService interface {
	// Search classifies and answers a free-text query.
	Search(ctx context.Context, req SearchRequest) (rag.RankedResponse, error)
	// Converse answers a product question.
	Converse(ctx context.Context, req ConverseRequest) (rag.RankedResponse, error)
	// Classify returns the intent of a message.
	Classify(ctx context.Context, message string) (intent.Intent, error)
	// Categories lists the catalog categories.
	Categories(ctx context.Context) ([]catalog.Category, error)
	// Reload rebuilds the catalog snapshot from its source.
	Reload(ctx context.Context) (*indexer.Stats, error)
}

// queryService implements QueryService.
type queryService struct {
	engine   rag.Engine
	reloader Reloader
}

// NewQueryService creates a new QueryService. reloader may be nil, in which
// case Reload returns ErrNotFound.
func NewQueryService(engine rag.Engine, reloader Reloader) QueryService {
	return &queryService{engine: engine, reloader: reloader}
}

// Search implements QueryService.
func (s *queryService) Search(ctx context.Context, req SearchRequest) (rag.RankedResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Query) == "" {
		logger.WarnContext(ctx, "empty query in search request")
		return rag.RankedResponse{}, &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if req.Limit < 0 {
		return rag.RankedResponse{}, &ValidationError{Field: "limit", Message: "must not be negative"}
	}

	resp, err := s.engine.Search(ctx, rag.SearchRequest{Query: req.Query, Limit: req.Limit})
	if err != nil {
		return rag.RankedResponse{}, s.mapError(ctx, err, "query")
	}

	logger.InfoContext(ctx, "search request processed",
		"query_length", len(req.Query),
		"tier", resp.Meta.Tier,
		"items", len(resp.Items),
	)
	return resp, nil
}

// Converse implements QueryService.
func (s *queryService) Converse(ctx context.Context, req ConverseRequest) (rag.RankedResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in conversation request")
		return rag.RankedResponse{}, &ValidationError{Field: "question", Message: "cannot be empty"}
	}

	resp, err := s.engine.Converse(ctx, rag.ConverseRequest{
		Question:       req.Question,
		ProductContext: req.ProductContext,
	})
	if err != nil {
		return rag.RankedResponse{}, s.mapError(ctx, err, "question")
	}

	logger.InfoContext(ctx, "conversation request processed", "tier", resp.Meta.Tier)
	return resp, nil
}

// Classify implements QueryService.
func (s *queryService) Classify(ctx context.Context, message string) (intent.Intent, error) {
	if strings.TrimSpace(message) == "" {
		return intent.Intent{}, &ValidationError{Field: "message", Message: "cannot be empty"}
	}
	in, err := s.engine.Classify(ctx, message)
	if err != nil {
		return intent.Intent{}, s.mapError(ctx, err, "message")
	}
	return in, nil
}

// Categories implements QueryService.
func (s *queryService) Categories(ctx context.Context) ([]catalog.Category, error) {
	cats, err := s.engine.Categories(ctx)
	if err != nil {
		return nil, s.mapError(ctx, err, "")
	}
	return cats, nil
}

// Reload implements QueryService. Catalog structure errors are returned
// unwrapped so callers can match them with errors.As.
func (s *queryService) Reload(ctx context.Context) (*indexer.Stats, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if s.reloader == nil {
		return nil, WrapError(ErrNotFound, "reload is not configured")
	}
	stats, err := s.reloader.Reload(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "reload failed", "error", err)
		return nil, err
	}
	return stats, nil
}

// mapError converts engine errors into service errors.
func (s *queryService) mapError(ctx context.Context, err error, field string) error {
	switch {
	case errors.Is(err, rag.ErrEmptyQuery):
		return &ValidationError{Field: field, Message: "cannot be empty"}
	case errors.Is(err, rag.ErrNoSnapshot):
		return WrapError(ErrNotReady, err.Error())
	case errors.Is(err, rag.ErrGenerationUnavailable), errors.Is(err, rag.ErrRetrievalDegraded):
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "upstream call failed", "error", err)
		return fmt.Errorf("%w: %w", ErrExternalService, err)
	default:
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "engine request failed", "error", err)
		return WrapError(err, "engine request failed")
	}
}
