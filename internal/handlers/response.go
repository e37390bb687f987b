package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghhtml "github.com/yuin/goldmark/renderer/html"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/rag"
	"catalog-assistant/internal/service"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// QueryResponse is the payload of the search and conversation endpoints.
//
// swagger:model QueryResponse
type QueryResponse struct {
	// Type is "search" for product listings and "conversation" for answers.
	Type string `json:"type"`
	// Results holds the ranked products and knowledge entries. It is nil for
	// conversation payloads and never nil for search, so an empty search still
	// carries "results": [].
	Results *[]catalog.ScoredResult `json:"results,omitempty"`
	// Response is the customer-facing message in markdown.
	Response string `json:"response"`
	Query    string `json:"query,omitempty"`
	Total    int    `json:"total"`
	Intent   string `json:"intent,omitempty"`
	// Tier names the fallback stage that produced the response.
	Tier       string `json:"tier"`
	Generation uint64 `json:"generation"`
	// HTML is Response rendered to HTML, present with ?format=html.
	HTML string `json:"html,omitempty"`
}

// newQueryResponse converts an engine response to the HTTP payload.
func newQueryResponse(resp rag.RankedResponse) QueryResponse {
	out := QueryResponse{
		Type:       string(resp.Kind),
		Response:   resp.Message,
		Query:      resp.Meta.Query,
		Total:      resp.Meta.TotalFound,
		Intent:     resp.Meta.Intent,
		Tier:       string(resp.Meta.Tier),
		Generation: resp.Meta.Generation,
	}
	if resp.Kind == rag.KindSearch {
		items := resp.Items
		if items == nil {
			items = []catalog.ScoredResult{}
		}
		out.Results = &items
	}
	return out
}

// markdownRenderer converts engine messages to HTML. Raw HTML in messages is
// escaped.
type markdownRenderer struct {
	md goldmark.Markdown
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
			),
			goldmark.WithRendererOptions(
				ghhtml.WithHardWraps(),
			),
		),
	}
}

func (m *markdownRenderer) render(source string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// wantsHTML reports whether the request asked for a rendered message.
func wantsHTML(r *http.Request) bool {
	return r.URL.Query().Get("format") == "html"
}

// writeJSON writes v with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		logger.WarnContext(ctx, "validation error", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	var buildErr *catalog.IndexBuildError
	if errors.As(err, &buildErr) {
		logger.WarnContext(ctx, "catalog rejected", "error", err)
		writeError(w, http.StatusUnprocessableEntity, buildErr.Error())
		return
	}

	logger.ErrorContext(ctx, "service error", "error", err)

	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, rag.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, service.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "Catalog not ready")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrExternalService):
		writeError(w, http.StatusBadGateway, "External service error")
	default:
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}
