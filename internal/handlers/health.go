package handlers

import (
	"context"
	"net/http"
	"time"

	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/rag"
)

// SnapshotLoader returns the active snapshot, nil before the first load.
type SnapshotLoader interface {
	Load() *rag.Snapshot
}

// Pinger checks that a collaborator is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker reports whether the generation model is loaded.
type ModelChecker interface {
	IsModelLoaded(ctx context.Context, modelName string) (bool, error)
}

// HealthOptions configures a HealthHandler. Nil collaborators are reported
// as disabled.
type HealthOptions struct {
	Snapshots       SnapshotLoader
	SemanticEnabled bool
	Generator       Pinger
	Models          ModelChecker
	ModelName       string
	Cache           Pinger
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	opts               HealthOptions
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(opts HealthOptions) *HealthHandler {
	return &HealthHandler{
		opts:               opts,
		healthCheckTimeout: 5 * time.Second,
	}
}

// Check results.
const (
	checkOK          = "ok"
	checkError       = "error"
	checkDisabled    = "disabled"
	checkNotLoaded   = "not_loaded"
	checkUnavailable = "unavailable"
)

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Generation of the active catalog snapshot
	Generation uint64 `json:"generation,omitempty"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 OK when the catalog is loaded, even if optional collaborators
// are down (status "degraded"), and 503 Service Unavailable before the first
// catalog load.
//
// swagger:route GET /api/health healthCheck
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Catalog loaded
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: Catalog not loaded
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	response := HealthResponse{Timestamp: time.Now().UTC().Format(time.RFC3339)}

	snap := h.opts.Snapshots.Load()
	if snap == nil {
		checks["catalog"] = checkNotLoaded
		issues = append(issues, "catalog_not_loaded")
	} else {
		checks["catalog"] = checkOK
		response.Generation = snap.Generation
	}

	switch {
	case !h.opts.SemanticEnabled:
		checks["semantic_index"] = checkDisabled
	case snap != nil && snap.HasSemantic():
		checks["semantic_index"] = checkOK
	default:
		checks["semantic_index"] = checkUnavailable
		issues = append(issues, "semantic_index_unavailable")
	}

	checks["generator"] = h.checkGenerator(checkCtx)
	if checks["generator"] != checkOK && checks["generator"] != checkDisabled {
		issues = append(issues, "generator_unavailable")
	}

	if h.opts.Cache != nil {
		if err := h.opts.Cache.Ping(checkCtx); err != nil {
			logger.WarnContext(ctx, "cache health check failed", "error", err)
			checks["cache"] = checkError
			issues = append(issues, "cache_unavailable")
		} else {
			checks["cache"] = checkOK
		}
	}

	response.Status = "healthy"
	httpStatus := http.StatusOK
	switch {
	case snap == nil:
		response.Status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case len(issues) > 0:
		response.Status = "degraded"
	}
	response.Checks = checks
	response.Issues = issues

	writeJSON(ctx, w, httpStatus, response)
}

// checkGenerator pings the generation server and, when a model checker is
// configured, verifies the model is loaded.
func (h *HealthHandler) checkGenerator(ctx context.Context) string {
	logger := contextutil.LoggerFromContext(ctx)

	if h.opts.Generator == nil {
		return checkDisabled
	}
	if err := h.opts.Generator.Ping(ctx); err != nil {
		logger.WarnContext(ctx, "generator health check failed", "error", err)
		return checkError
	}
	if h.opts.Models == nil {
		return checkOK
	}
	loaded, err := h.opts.Models.IsModelLoaded(ctx, h.opts.ModelName)
	if err != nil {
		logger.WarnContext(ctx, "model status check failed", "model", h.opts.ModelName, "error", err)
		return checkError
	}
	if !loaded {
		return checkNotLoaded
	}
	return checkOK
}
