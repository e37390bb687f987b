package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/contextutil"
	"catalog-assistant/internal/knowledge"
	"catalog-assistant/internal/rag"
	"catalog-assistant/internal/source"
	"catalog-assistant/internal/storage"
	"catalog-assistant/internal/vectorstore"
)

// DefaultBatchSize is the number of texts per embedding request.
const DefaultBatchSize = 32

// Vector backends.
const (
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

// Options configures a Pipeline. Embedder, Cache and Qdrant may be nil.
type Options struct {
	Loader    source.Loader
	Snapshots *rag.EngineContext
	Embedder  rag.Embedder

	// Cache stores vectors across reloads, keyed by Model and text hash.
	Cache storage.EmbeddingStore
	Model string

	// Backend is BackendMemory or BackendQdrant.
	Backend    string
	Qdrant     vectorstore.CollectionStore
	Collection string
	BatchSize  int
}

// Pipeline builds snapshots from the configured source and publishes them.
// Reloads are serialized; searches keep reading the previous snapshot until
// the new one is swapped in.
type Pipeline struct {
	mu   sync.Mutex
	opts Options
	// retired is the Qdrant collection of the snapshot replaced by the last
	// swap. Requests may still hold that snapshot, so it is dropped one swap later.
	retired string
}

// NewPipeline creates a new reload pipeline.
func NewPipeline(opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Backend == "" {
		opts.Backend = BackendMemory
	}
	return &Pipeline{opts: opts}
}

// SemanticEnabled reports whether reloads build a semantic index.
func (p *Pipeline) SemanticEnabled() bool {
	return p.opts.Embedder != nil
}

// Bootstrap publishes a lexical-only snapshot. Startup calls it before serving
// and runs Reload in the background to add the semantic index.
func (p *Pipeline) Bootstrap(ctx context.Context) (*Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	snap, stats, err := p.build(ctx)
	if err != nil {
		return nil, err
	}
	p.publish(ctx, snap)
	stats.Generation = snap.Generation
	stats.SemanticIndex = SemanticNone
	return finish(stats, start), nil
}

// Reload loads the source, rebuilds the catalog, knowledge and semantic
// indexes, and swaps the result in. A structural catalog error leaves the
// previous snapshot active. An embedding failure publishes the snapshot
// without a semantic index.
func (p *Pipeline) Reload(ctx context.Context) (*Stats, error) {
	logger := contextutil.LoggerFromContext(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	snap, stats, err := p.build(ctx)
	if err != nil {
		return nil, err
	}

	if p.opts.Embedder != nil && p.opts.Snapshots.Load() == nil {
		// Serve lexical search while the semantic index builds.
		lexicalOnly := *snap
		p.publish(ctx, &lexicalOnly)
	}

	stats.SemanticIndex = SemanticNone
	if p.opts.Embedder != nil {
		index, kind, err := p.buildSemantic(ctx, snap, stats)
		if err != nil {
			logger.WarnContext(ctx, "semantic index unavailable, publishing lexical-only snapshot", "error", err)
			stats.SemanticIndex = SemanticDegraded
			stats.SemanticError = err.Error()
		} else {
			snap.Semantic = index
			stats.SemanticIndex = kind
		}
	}

	prev := p.publish(ctx, snap)
	p.retireCollection(ctx, prev, snap)

	stats.Generation = snap.Generation
	finish(stats, start)
	logger.InfoContext(ctx, "catalog reloaded",
		"generation", stats.Generation,
		"products", stats.Products,
		"skipped", stats.SkippedProducts,
		"knowledge", stats.KnowledgeEntries,
		"semantic", stats.SemanticIndex,
		"embedded", stats.VectorsEmbedded,
		"cached", stats.VectorsCached,
		"duration_ms", stats.DurationMS,
	)
	return stats, nil
}

// build loads and indexes the documents. The returned snapshot has no
// generation and no semantic index yet.
func (p *Pipeline) build(ctx context.Context) (*rag.Snapshot, *Stats, error) {
	logger := contextutil.LoggerFromContext(ctx)

	raw, err := p.opts.Loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	idx, err := catalog.Build(raw.Catalog)
	if err != nil {
		return nil, nil, err
	}
	entries, knowledgeWarnings := catalog.BuildKnowledge(raw.Knowledge)

	stats := &Stats{
		Categories:       len(idx.Categories),
		Products:         idx.Len(),
		SkippedProducts:  countRawProducts(raw.Catalog) - idx.Len(),
		KnowledgeEntries: len(entries),
		TextTokens:       searchTextStats(idx.Records),
	}
	stats.Warnings = append(stats.Warnings, idx.Warnings...)
	stats.Warnings = append(stats.Warnings, knowledgeWarnings...)
	for _, w := range stats.Warnings {
		logger.WarnContext(ctx, "catalog warning", "warning", w)
	}

	return &rag.Snapshot{
		Digest:    catalog.Digest(raw.Catalog, raw.Knowledge),
		Catalog:   idx,
		Knowledge: knowledge.NewRetriever(entries),
		BuiltAt:   time.Now(),
	}, stats, nil
}

// publish assigns the next generation to snap and swaps it in.
func (p *Pipeline) publish(ctx context.Context, snap *rag.Snapshot) *rag.Snapshot {
	snap.Generation = p.opts.Snapshots.NextGeneration()
	prev := p.opts.Snapshots.Swap(snap)
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "snapshot published",
		"generation", snap.Generation,
		"semantic", snap.HasSemantic(),
	)
	return prev
}

// buildSemantic embeds every record and builds the configured index.
func (p *Pipeline) buildSemantic(ctx context.Context, snap *rag.Snapshot, stats *Stats) (vectorstore.SemanticIndex, string, error) {
	records := make([]*catalog.ProductRecord, len(snap.Catalog.Records))
	for i := range snap.Catalog.Records {
		records[i] = &snap.Catalog.Records[i]
	}

	vectors, err := p.embedRecords(ctx, records, stats)
	if err != nil {
		return nil, "", err
	}
	if len(vectors) > 0 {
		stats.IndexVersion = indexVersion(p.opts.Model, len(vectors[0]))
	}

	switch p.opts.Backend {
	case BackendQdrant:
		if p.opts.Qdrant == nil {
			return nil, "", errors.New("qdrant backend selected without a qdrant store")
		}
		// The next generation is the one this snapshot will be published under.
		collection := vectorstore.GenerationCollection(p.opts.Collection, p.peekGeneration())
		index, err := vectorstore.PublishQdrantIndex(ctx, p.opts.Qdrant, collection, records, vectors)
		if err != nil {
			return nil, "", fmt.Errorf("failed to publish qdrant index: %w", err)
		}
		return index, SemanticQdrant, nil
	default:
		index, err := vectorstore.NewMemoryIndex(records, vectors)
		if err != nil {
			return nil, "", fmt.Errorf("failed to build memory index: %w", err)
		}
		return index, SemanticMemory, nil
	}
}

// peekGeneration returns the generation the next publish will assign. Reloads
// hold p.mu, so nothing else publishes in between.
func (p *Pipeline) peekGeneration() uint64 {
	if cur := p.opts.Snapshots.Load(); cur != nil {
		return cur.Generation + 1
	}
	return 1
}

// embedRecords returns one vector per record, serving repeated texts from the
// cache and embedding the rest in batches.
func (p *Pipeline) embedRecords(ctx context.Context, records []*catalog.ProductRecord, stats *Stats) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	hashes := make([]string, len(records))
	textByHash := make(map[string]string, len(records))
	for i, rec := range records {
		h := textHash(rec.SearchText)
		hashes[i] = h
		textByHash[h] = rec.SearchText
	}

	known := make(map[string][]float32, len(textByHash))
	if p.opts.Cache != nil {
		cached, err := p.opts.Cache.Get(ctx, p.opts.Model, uniqueKeys(hashes))
		if err != nil {
			logger.WarnContext(ctx, "embedding cache read failed, embedding everything", "error", err)
		} else {
			for h, vec := range cached {
				known[h] = vec
			}
			stats.VectorsCached = len(cached)
		}
	}

	var missing []string
	for _, h := range uniqueKeys(hashes) {
		if _, ok := known[h]; !ok {
			missing = append(missing, h)
		}
	}

	fresh := make(map[string][]float32, len(missing))
	for start := 0; start < len(missing); start += p.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+p.opts.BatchSize, len(missing))
		batch := missing[start:end]

		texts := make([]string, len(batch))
		for i, h := range batch {
			texts[i] = textByHash[h]
		}
		vectors, err := p.opts.Embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
		}
		for i, h := range batch {
			fresh[h] = vectors[i]
			known[h] = vectors[i]
		}
		logger.DebugContext(ctx, "embedded batch", "start", start, "size", len(batch))
	}
	stats.VectorsEmbedded = len(fresh)

	if p.opts.Cache != nil && len(fresh) > 0 {
		if err := p.opts.Cache.Put(ctx, p.opts.Model, fresh); err != nil {
			logger.WarnContext(ctx, "embedding cache write failed", "error", err)
		}
	}

	out := make([][]float32, len(records))
	for i, h := range hashes {
		out[i] = known[h]
	}
	return out, nil
}

// retireCollection drops the collection retired by the previous swap and
// retires the one prev was reading. A request that loaded prev before this
// swap keeps a working semantic index until the next reload.
func (p *Pipeline) retireCollection(ctx context.Context, prev, next *rag.Snapshot) {
	if p.opts.Qdrant == nil {
		return
	}
	current := collectionOf(next)

	if p.retired != "" && p.retired != current {
		if err := p.opts.Qdrant.DeleteCollection(ctx, p.retired); err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to drop retired collection",
				"collection", p.retired,
				"error", err,
			)
		}
	}

	p.retired = ""
	if old := collectionOf(prev); old != "" && old != current {
		p.retired = old
	}
}

func collectionOf(snap *rag.Snapshot) string {
	if snap == nil {
		return ""
	}
	if index, ok := snap.Semantic.(*vectorstore.QdrantIndex); ok {
		return index.Collection()
	}
	return ""
}

func finish(stats *Stats, start time.Time) *Stats {
	stats.Duration = time.Since(start)
	stats.DurationMS = stats.Duration.Milliseconds()
	return stats
}

func textHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
