package handlers

import (
	"net/http"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/service"
)

// CategoriesHandler lists the catalog categories.
type CategoriesHandler struct {
	queryService service.QueryService
}

// NewCategoriesHandler creates a new CategoriesHandler.
func NewCategoriesHandler(queryService service.QueryService) *CategoriesHandler {
	return &CategoriesHandler{queryService: queryService}
}

// CategoriesResponse represents the categories payload.
type CategoriesResponse struct {
	Categories []catalog.Category `json:"categories"`
	Total      int                `json:"total"`
}

func (h *CategoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cats, err := h.queryService.Categories(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list categories")
		return
	}
	if cats == nil {
		cats = []catalog.Category{}
	}
	writeJSON(ctx, w, http.StatusOK, CategoriesResponse{Categories: cats, Total: len(cats)})
}
