package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/rag"
	"catalog-assistant/internal/vectorstore"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type stubModels struct {
	loaded bool
	err    error
}

func (m stubModels) IsModelLoaded(ctx context.Context, modelName string) (bool, error) {
	return m.loaded, m.err
}

func semanticSnapshot(t *testing.T) *rag.Snapshot {
	t.Helper()
	rec := &catalog.ProductRecord{ID: "1001", Name: "Acetic Acid"}
	index, err := vectorstore.NewMemoryIndex([]*catalog.ProductRecord{rec}, [][]float32{{1, 0}})
	if err != nil {
		t.Fatalf("NewMemoryIndex() error = %v", err)
	}
	return &rag.Snapshot{Generation: 7, Semantic: index}
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		snapshot   func(t *testing.T) *rag.Snapshot
		opts       HealthOptions
		wantStatus int
		wantState  string
		wantChecks map[string]string
	}{
		{
			name:       "catalog not loaded",
			snapshot:   func(t *testing.T) *rag.Snapshot { return nil },
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			wantChecks: map[string]string{"catalog": "not_loaded", "semantic_index": "disabled", "generator": "disabled"},
		},
		{
			name:       "lexical only deployment",
			snapshot:   func(t *testing.T) *rag.Snapshot { return &rag.Snapshot{Generation: 1} },
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			wantChecks: map[string]string{"catalog": "ok", "semantic_index": "disabled", "generator": "disabled"},
		},
		{
			name:     "everything up",
			snapshot: semanticSnapshot,
			opts: HealthOptions{
				SemanticEnabled: true,
				Generator:       stubPinger{},
				Models:          stubModels{loaded: true},
				Cache:           stubPinger{},
			},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			wantChecks: map[string]string{"catalog": "ok", "semantic_index": "ok", "generator": "ok", "cache": "ok"},
		},
		{
			name:       "semantic index still building",
			snapshot:   func(t *testing.T) *rag.Snapshot { return &rag.Snapshot{Generation: 1} },
			opts:       HealthOptions{SemanticEnabled: true},
			wantStatus: http.StatusOK,
			wantState:  "degraded",
			wantChecks: map[string]string{"semantic_index": "unavailable"},
		},
		{
			name:       "generator down",
			snapshot:   semanticSnapshot,
			opts:       HealthOptions{SemanticEnabled: true, Generator: stubPinger{err: errors.New("connection refused")}},
			wantStatus: http.StatusOK,
			wantState:  "degraded",
			wantChecks: map[string]string{"generator": "error"},
		},
		{
			name:       "model not loaded",
			snapshot:   semanticSnapshot,
			opts:       HealthOptions{Generator: stubPinger{}, Models: stubModels{loaded: false}, ModelName: "qwen"},
			wantStatus: http.StatusOK,
			wantState:  "degraded",
			wantChecks: map[string]string{"generator": "not_loaded"},
		},
		{
			name:       "cache down",
			snapshot:   semanticSnapshot,
			opts:       HealthOptions{Cache: stubPinger{err: errors.New("dial tcp")}},
			wantStatus: http.StatusOK,
			wantState:  "degraded",
			wantChecks: map[string]string{"cache": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshots := rag.NewEngineContext()
			if snap := tt.snapshot(t); snap != nil {
				snapshots.Swap(snap)
			}
			opts := tt.opts
			opts.Snapshots = snapshots

			w := httptest.NewRecorder()
			NewHealthHandler(opts).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %v, want %v", w.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("status = %q, want %q (issues %v)", resp.Status, tt.wantState, resp.Issues)
			}
			for check, want := range tt.wantChecks {
				if resp.Checks[check] != want {
					t.Errorf("checks[%s] = %q, want %q", check, resp.Checks[check], want)
				}
			}
		})
	}
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(HealthOptions{Snapshots: rag.NewEngineContext()}).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %v, want 405", w.Code)
	}
}
