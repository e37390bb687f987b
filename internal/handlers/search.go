package handlers

import (
	"encoding/json"
	"net/http"

	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/service"
)

// SearchHandler handles HTTP requests for free-text catalog queries.
type SearchHandler struct {
	queryService service.QueryService
	markdown     *markdownRenderer
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(queryService service.QueryService) *SearchHandler {
	return &SearchHandler{
		queryService: queryService,
		markdown:     newMarkdownRenderer(),
	}
}

// SearchRequest represents the HTTP request payload for search.
//
// swagger:model SearchRequest
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// ServeHTTP handles HTTP requests for search.
//
// swagger:route POST /api/search search
//
// # Search the catalog
//
// Classifies the query and answers it with a product listing, a canned reply
// or a conversational answer. Use `format=html` to include the rendered message.
//
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/QueryResponse"
//	'400':
//	  description: Empty query or invalid limit
//	'503':
//	  description: Catalog not loaded yet
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.queryService.Search(ctx, service.SearchRequest{Query: req.Query, Limit: req.Limit})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process search request")
		return
	}

	out := newQueryResponse(resp)
	if wantsHTML(r) {
		html, err := h.markdown.render(resp.Message)
		if err != nil {
			logger.ErrorContext(ctx, "failed to render message", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to render response")
			return
		}
		out.HTML = html
	}
	writeJSON(ctx, w, http.StatusOK, out)
}
