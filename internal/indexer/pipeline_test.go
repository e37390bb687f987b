package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/rag"
	"catalog-assistant/internal/source"
	"catalog-assistant/internal/storage"
	storage_mocks "catalog-assistant/internal/storage/mocks"
	"catalog-assistant/internal/vectorstore"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const pipelineCatalog = `{"categories": {
  "cleaning": {"name": "Cleaning", "products": [
    {"id": 1, "name": "Floor Cleaner", "mrp": 99},
    {"id": 2, "name": "Phenyl", "mrp": 60},
    {"name": "No ID"},
    {"id": 1, "name": "Duplicate"}
  ]},
  "brushes": {"name": "Brushes", "products": [
    {"id": 3, "name": "Broom", "mrp": 150}
  ]}
}}`

const pipelineKnowledge = `{"products_knowledge": {"phenyl_kit": {"keywords": ["phenyl"]}, "broken": "x"}}`

type staticLoader struct {
	mu    sync.Mutex
	raw   source.Raw
	err   error
	calls int
}

func newStaticLoader(t *testing.T, catalogJSON string) *staticLoader {
	t.Helper()
	rawCatalog, err := catalog.DecodeCatalog([]byte(catalogJSON))
	if err != nil {
		t.Fatalf("DecodeCatalog() error = %v", err)
	}
	rawKnowledge, err := catalog.DecodeKnowledge([]byte(pipelineKnowledge))
	if err != nil {
		t.Fatalf("DecodeKnowledge() error = %v", err)
	}
	return &staticLoader{raw: source.Raw{Catalog: rawCatalog, Knowledge: rawKnowledge}}
}

func (l *staticLoader) Load(ctx context.Context) (source.Raw, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.raw, l.err
}

// countingEmbedder returns a two-dimensional vector derived from text length.
type countingEmbedder struct {
	mu     sync.Mutex
	calls  int
	texts  int
	err    error
	during func()
}

func (e *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.during != nil {
		e.during()
	}
	if e.err != nil {
		return nil, e.err
	}
	e.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func TestNewPipeline_Defaults(t *testing.T) {
	p := NewPipeline(Options{})
	if p.opts.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", p.opts.BatchSize, DefaultBatchSize)
	}
	if p.opts.Backend != BackendMemory {
		t.Errorf("Backend = %q, want memory", p.opts.Backend)
	}
	if p.SemanticEnabled() {
		t.Error("SemanticEnabled() without an embedder should be false")
	}
}

func TestPipeline_ReloadLexicalOnly(t *testing.T) {
	snapshots := rag.NewEngineContext()
	p := NewPipeline(Options{Loader: newStaticLoader(t, pipelineCatalog), Snapshots: snapshots})

	stats, err := p.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if stats.Products != 3 || stats.Categories != 2 {
		t.Errorf("stats products/categories = %d/%d, want 3/2", stats.Products, stats.Categories)
	}
	if stats.SkippedProducts != 2 {
		t.Errorf("SkippedProducts = %d, want 2", stats.SkippedProducts)
	}
	if stats.KnowledgeEntries != 1 {
		t.Errorf("KnowledgeEntries = %d, want 1", stats.KnowledgeEntries)
	}
	if len(stats.Warnings) != 3 {
		t.Errorf("Warnings = %v, want 3 entries", stats.Warnings)
	}
	if stats.SemanticIndex != SemanticNone {
		t.Errorf("SemanticIndex = %q, want none", stats.SemanticIndex)
	}
	if stats.Generation != 1 {
		t.Errorf("Generation = %d, want 1 for a single lexical load", stats.Generation)
	}

	snap := snapshots.Load()
	if snap == nil || snap.Generation != stats.Generation {
		t.Fatalf("published snapshot = %+v, stats generation %d", snap, stats.Generation)
	}
	if snap.HasSemantic() {
		t.Error("snapshot should have no semantic index without an embedder")
	}
	if snap.Knowledge.Len() != 1 {
		t.Errorf("knowledge entries = %d, want 1", snap.Knowledge.Len())
	}
}

func TestPipeline_ReloadMemoryIndex(t *testing.T) {
	snapshots := rag.NewEngineContext()
	embedder := &countingEmbedder{}
	var sawLexicalFirst bool
	embedder.during = func() {
		if cur := snapshots.Load(); cur != nil && !cur.HasSemantic() {
			sawLexicalFirst = true
		}
	}

	p := NewPipeline(Options{
		Loader:    newStaticLoader(t, pipelineCatalog),
		Snapshots: snapshots,
		Embedder:  embedder,
		Model:     "test-model",
		BatchSize: 2,
	})

	stats, err := p.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if !sawLexicalFirst {
		t.Error("a lexical-only snapshot should be served while embedding")
	}
	if embedder.calls != 2 || embedder.texts != 3 {
		t.Errorf("embedder calls/texts = %d/%d, want 2/3", embedder.calls, embedder.texts)
	}
	if stats.SemanticIndex != SemanticMemory || stats.VectorsEmbedded != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.IndexVersion == "" || stats.IndexVersion != indexVersion("test-model", 2) {
		t.Errorf("IndexVersion = %q", stats.IndexVersion)
	}

	snap := snapshots.Load()
	if !snap.HasSemantic() || snap.Semantic.Len() != 3 {
		t.Fatalf("semantic index not attached: %+v", snap)
	}
	if snap.Generation != 2 || stats.Generation != 2 {
		t.Errorf("generation = %d, want 2 (lexical-only snapshot was 1)", snap.Generation)
	}
}

func TestPipeline_EmbeddingCache(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	embedder := &countingEmbedder{}
	p := NewPipeline(Options{
		Loader:    newStaticLoader(t, pipelineCatalog),
		Snapshots: rag.NewEngineContext(),
		Embedder:  embedder,
		Cache:     storage.NewEmbeddingRepo(db),
		Model:     "test-model",
	})

	first, err := p.Reload(context.Background())
	if err != nil {
		t.Fatalf("first Reload() error = %v", err)
	}
	if first.VectorsEmbedded != 3 || first.VectorsCached != 0 {
		t.Errorf("first reload embedded/cached = %d/%d, want 3/0", first.VectorsEmbedded, first.VectorsCached)
	}

	second, err := p.Reload(context.Background())
	if err != nil {
		t.Fatalf("second Reload() error = %v", err)
	}
	if second.VectorsEmbedded != 0 || second.VectorsCached != 3 {
		t.Errorf("second reload embedded/cached = %d/%d, want 0/3", second.VectorsEmbedded, second.VectorsCached)
	}
	if embedder.calls != 1 {
		t.Errorf("embedder calls = %d, want 1", embedder.calls)
	}
	if second.Generation <= first.Generation {
		t.Errorf("generation did not advance: %d then %d", first.Generation, second.Generation)
	}
}

func TestPipeline_CacheReadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cache := storage_mocks.NewMockEmbeddingStore(ctrl)
	cache.EXPECT().Get(gomock.Any(), "m", gomock.Any()).Return(nil, errors.New("disk I/O error"))
	cache.EXPECT().Put(gomock.Any(), "m", gomock.Len(3)).Return(nil)

	embedder := &countingEmbedder{}
	p := NewPipeline(Options{
		Loader:    newStaticLoader(t, pipelineCatalog),
		Snapshots: rag.NewEngineContext(),
		Embedder:  embedder,
		Cache:     cache,
		Model:     "m",
	})

	stats, err := p.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if stats.VectorsEmbedded != 3 || stats.SemanticIndex != SemanticMemory {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPipeline_EmbeddingFailureDegrades(t *testing.T) {
	snapshots := rag.NewEngineContext()
	p := NewPipeline(Options{
		Loader:    newStaticLoader(t, pipelineCatalog),
		Snapshots: snapshots,
		Embedder:  &countingEmbedder{err: errors.New("connection refused")},
	})

	stats, err := p.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if stats.SemanticIndex != SemanticDegraded || stats.SemanticError == "" {
		t.Errorf("stats = %+v, want degraded", stats)
	}
	snap := snapshots.Load()
	if snap == nil || snap.HasSemantic() || snap.Catalog.Len() != 3 {
		t.Fatalf("expected a lexical-only snapshot, got %+v", snap)
	}
}

func TestPipeline_FailedReloadKeepsPrevious(t *testing.T) {
	snapshots := rag.NewEngineContext()
	loader := newStaticLoader(t, pipelineCatalog)
	p := NewPipeline(Options{Loader: loader, Snapshots: snapshots})

	if _, err := p.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	before := snapshots.Load()

	tests := []struct {
		name      string
		raw       catalog.RawCatalog
		err       error
		wantBuild bool
	}{
		{
			name:      "category not an object",
			raw:       catalog.RawCatalog{Categories: []catalog.RawCategory{{Key: "bad", Value: "x"}}},
			wantBuild: true,
		},
		{
			name: "loader error",
			err:  errors.New("file vanished"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader.mu.Lock()
			loader.raw = source.Raw{Catalog: tt.raw}
			loader.err = tt.err
			loader.mu.Unlock()

			_, err := p.Reload(context.Background())
			if err == nil {
				t.Fatal("Reload() should fail")
			}
			var buildErr *catalog.IndexBuildError
			if errors.As(err, &buildErr) != tt.wantBuild {
				t.Errorf("Reload() error = %v, IndexBuildError = %v", err, tt.wantBuild)
			}
			if snapshots.Load() != before {
				t.Error("a failed reload replaced the active snapshot")
			}
		})
	}
}

func TestPipeline_Bootstrap(t *testing.T) {
	snapshots := rag.NewEngineContext()
	embedder := &countingEmbedder{}
	p := NewPipeline(Options{
		Loader:    newStaticLoader(t, pipelineCatalog),
		Snapshots: snapshots,
		Embedder:  embedder,
	})

	stats, err := p.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if embedder.calls != 0 {
		t.Errorf("Bootstrap() embedded %d batches, want 0", embedder.calls)
	}
	if stats.SemanticIndex != SemanticNone || stats.Generation != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if snap := snapshots.Load(); snap == nil || snap.HasSemantic() {
		t.Fatalf("expected lexical snapshot, got %+v", snap)
	}

	// A following reload adds the semantic index without a second lexical publish.
	stats, err = p.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if stats.Generation != 2 || !snapshots.Load().HasSemantic() {
		t.Errorf("generation = %d, semantic = %v", stats.Generation, snapshots.Load().HasSemantic())
	}
}

// collectionStore is an in-memory vectorstore.CollectionStore. Searching a
// dropped collection fails the way Qdrant does.
type collectionStore struct {
	collections map[string]map[string]vectorstore.Point
	deleted     []string
}

func (s *collectionStore) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	for _, p := range points {
		s.collections[collection][p.ID] = p
	}
	return nil
}

func (s *collectionStore) Search(ctx context.Context, collection string, query []float32, k int, threshold float64) ([]vectorstore.SearchResult, error) {
	points, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collection)
	}
	var hits []vectorstore.SearchResult
	for _, p := range points {
		sim, err := vectorstore.Cosine(query, p.Vec)
		if err != nil {
			return nil, err
		}
		if sim >= threshold {
			hits = append(hits, vectorstore.SearchResult{PointID: p.ID, Score: float32(sim), Meta: p.Meta})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *collectionStore) GetCollectionInfo(ctx context.Context, collection string) (*vectorstore.CollectionInfo, error) {
	return &vectorstore.CollectionInfo{PointsCount: len(s.collections[collection])}, nil
}

func (s *collectionStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, ok := s.collections[collection]
	return ok, nil
}

func (s *collectionStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = make(map[string]vectorstore.Point)
	}
	return nil
}

func (s *collectionStore) DeleteCollection(ctx context.Context, collection string) error {
	s.deleted = append(s.deleted, collection)
	delete(s.collections, collection)
	return nil
}

func TestPipeline_QdrantBackend(t *testing.T) {
	store := &collectionStore{collections: make(map[string]map[string]vectorstore.Point)}
	snapshots := rag.NewEngineContext()
	p := NewPipeline(Options{
		Loader:     newStaticLoader(t, pipelineCatalog),
		Snapshots:  snapshots,
		Embedder:   &countingEmbedder{},
		Backend:    BackendQdrant,
		Qdrant:     store,
		Collection: "products",
	})

	stats, err := p.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if stats.SemanticIndex != SemanticQdrant {
		t.Fatalf("SemanticIndex = %q, want qdrant", stats.SemanticIndex)
	}
	index, ok := snapshots.Load().Semantic.(*vectorstore.QdrantIndex)
	if !ok {
		t.Fatalf("semantic index is %T, want *QdrantIndex", snapshots.Load().Semantic)
	}
	if index.Collection() != "products_g2" || len(store.collections["products_g2"]) != 3 {
		t.Errorf("collection = %s with %d points", index.Collection(), len(store.collections["products_g2"]))
	}

	if _, err := p.Reload(context.Background()); err != nil {
		t.Fatalf("second Reload() error = %v", err)
	}
	if len(store.deleted) != 0 {
		t.Errorf("deleted collections = %v, want none after one swap", store.deleted)
	}
	if got := snapshots.Load().Semantic.(*vectorstore.QdrantIndex).Collection(); got != "products_g3" {
		t.Errorf("active collection = %s, want products_g3", got)
	}

	if _, err := p.Reload(context.Background()); err != nil {
		t.Fatalf("third Reload() error = %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "products_g2" {
		t.Errorf("deleted collections = %v, want [products_g2]", store.deleted)
	}
	if _, ok := store.collections["products_g3"]; !ok {
		t.Error("products_g3 should survive until the next swap")
	}
}

func TestPipeline_QdrantHeldSnapshotSurvivesReload(t *testing.T) {
	store := &collectionStore{collections: make(map[string]map[string]vectorstore.Point)}
	snapshots := rag.NewEngineContext()
	embedder := &countingEmbedder{}
	p := NewPipeline(Options{
		Loader:     newStaticLoader(t, pipelineCatalog),
		Snapshots:  snapshots,
		Embedder:   embedder,
		Backend:    BackendQdrant,
		Qdrant:     store,
		Collection: "products",
	})
	ctx := context.Background()

	if _, err := p.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	held := snapshots.Load()

	if _, err := p.Reload(ctx); err != nil {
		t.Fatalf("second Reload() error = %v", err)
	}
	if snapshots.Load() == held {
		t.Fatal("second Reload() did not publish a new snapshot")
	}

	query, err := embedder.EmbedTexts(ctx, []string{"floor cleaner"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	results, err := held.Semantic.Search(ctx, query[0], 5, 0)
	if err != nil {
		t.Fatalf("held snapshot Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Errorf("held snapshot returned %d results, want 3", len(results))
	}
}

func TestPipeline_QdrantBackendWithoutStore(t *testing.T) {
	p := NewPipeline(Options{
		Loader:    newStaticLoader(t, pipelineCatalog),
		Snapshots: rag.NewEngineContext(),
		Embedder:  &countingEmbedder{},
		Backend:   BackendQdrant,
	})
	stats, err := p.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if stats.SemanticIndex != SemanticDegraded {
		t.Errorf("SemanticIndex = %q, want degraded", stats.SemanticIndex)
	}
}

func TestUniqueKeys(t *testing.T) {
	got := uniqueKeys([]string{"a", "b", "a", "c", "b"})
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("uniqueKeys() = %v", got)
	}
}
