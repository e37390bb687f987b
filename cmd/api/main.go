package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-assistant/internal/app"
	"catalog-assistant/internal/config"
	"catalog-assistant/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers customer queries against a product catalog and a DIY
// knowledge base with hybrid lexical and semantic retrieval.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Catalog Assistant API
//   description: |
//     Product search, intent classification and conversational answers over a
//     product catalog. Responses fall back from generation to templates to
//     catalog search when a collaborator is unavailable.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	// Serve lexical search as soon as the catalog is parsed
	stats, err := a.Pipeline.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	slog.Info("Catalog loaded",
		"generation", stats.Generation,
		"products", stats.Products,
		"skipped", stats.SkippedProducts,
		"knowledge", stats.KnowledgeEntries,
	)

	// Build the semantic index in background after the lexical snapshot is live
	if a.Pipeline.SemanticEnabled() {
		go func() {
			slog.Info("Starting background embedding of catalog")
			if _, err := a.Pipeline.Reload(ctx); err != nil {
				slog.Error("Background reload failed", "error", err)
			}
		}()
	}

	if cfg.CatalogWatch {
		watcher, err := a.NewWatcher()
		if err != nil {
			log.Fatalf("Failed to watch catalog files: %v", err)
		}
		if watcher != nil {
			defer func() {
				_ = watcher.Close()
			}()
			go watcher.Run(ctx)
			slog.Info("Watching catalog files", "catalog", cfg.CatalogPath, "knowledge", cfg.KnowledgePath)
		}
	}

	router := http.NewRouter(&http.Deps{
		QueryService: a.Queries,
		Health:       a.HealthOptions(),
	})

	// Start API server
	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName, "enabled", cfg.GenerationEnabled)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
	slog.Info("API server stopped")
}
