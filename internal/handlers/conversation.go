package handlers

import (
	"encoding/json"
	"net/http"

	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/service"
)

// ConversationHandler answers product questions.
type ConversationHandler struct {
	queryService service.QueryService
	markdown     *markdownRenderer
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(queryService service.QueryService) *ConversationHandler {
	return &ConversationHandler{
		queryService: queryService,
		markdown:     newMarkdownRenderer(),
	}
}

// ConversationRequest represents the HTTP request payload for a product question.
//
// swagger:model ConversationRequest
type ConversationRequest struct {
	Question string `json:"question"`
	// ProductContext is passed to the generator as-is.
	ProductContext map[string]any `json:"product_context,omitempty"`
}

// ServeHTTP handles HTTP requests for conversation.
//
// swagger:route POST /api/conversation conversation
//
// # Ask a product question
//
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/QueryResponse"
//	'400':
//	  description: Empty question
func (h *ConversationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.queryService.Converse(ctx, service.ConverseRequest{
		Question:       req.Question,
		ProductContext: req.ProductContext,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process conversation request")
		return
	}

	out := newQueryResponse(resp)
	out.Query = req.Question
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
