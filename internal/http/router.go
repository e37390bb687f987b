package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"catalog-assistant/internal/handlers"
	"catalog-assistant/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QueryService service.QueryService
	Health       handlers.HealthOptions
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	searchHandler := handlers.NewSearchHandler(deps.QueryService)
	conversationHandler := handlers.NewConversationHandler(deps.QueryService)
	intentHandler := handlers.NewIntentHandler(deps.QueryService)
	categoriesHandler := handlers.NewCategoriesHandler(deps.QueryService)
	reloadHandler := handlers.NewReloadHandler(deps.QueryService)
	healthHandler := handlers.NewHealthHandler(deps.Health)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/search", searchHandler)
		r.Method(http.MethodPost, "/conversation", conversationHandler)
		r.Method(http.MethodPost, "/classify-intent", intentHandler)
		r.Method(http.MethodGet, "/categories", categoriesHandler)
		r.Method(http.MethodPost, "/reload", reloadHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
