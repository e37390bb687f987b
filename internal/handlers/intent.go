package handlers

import (
	"encoding/json"
	"net/http"

	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/service"
)

// IntentHandler classifies a message without answering it.
type IntentHandler struct {
	queryService service.QueryService
}

// NewIntentHandler creates a new IntentHandler.
func NewIntentHandler(queryService service.QueryService) *IntentHandler {
	return &IntentHandler{queryService: queryService}
}

// IntentRequest represents the HTTP request payload for intent classification.
type IntentRequest struct {
	Message string `json:"message"`
}

// ServeHTTP handles HTTP requests for intent classification.
func (h *IntentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.queryService.Classify(ctx, req.Message)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to classify message")
		return
	}
	writeJSON(ctx, w, http.StatusOK, in)
}
