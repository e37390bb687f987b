package handlers

import (
	"net/http"

	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/indexer"
	"catalog-assistant/internal/service"
)

// ReloadHandler rebuilds the catalog snapshot on demand.
type ReloadHandler struct {
	queryService service.QueryService
}

// NewReloadHandler creates a new ReloadHandler.
func NewReloadHandler(queryService service.QueryService) *ReloadHandler {
	return &ReloadHandler{queryService: queryService}
}

// ReloadResponse represents the response from the reload endpoint.
type ReloadResponse struct {
	Status string         `json:"status"`
	Stats  *indexer.Stats `json:"stats"`
}

// ServeHTTP runs a reload and waits for it, unlike startup which embeds in
// the background. A rejected catalog leaves the previous snapshot active and
// returns 422.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	logger.InfoContext(ctx, "reload triggered via API")

	stats, err := h.queryService.Reload(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to reload catalog")
		return
	}

	status := "ok"
	if stats.SemanticIndex == indexer.SemanticDegraded {
		status = "degraded"
	}
	writeJSON(ctx, w, http.StatusOK, ReloadResponse{Status: status, Stats: stats})
}
