package rag

import (
	"strconv"
	"sync/atomic"
	"time"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/knowledge"
	"catalog-assistant/internal/vectorstore"
)

// Snapshot is an immutable view of the catalog, knowledge base and semantic index.
// Requests read one snapshot for their whole lifetime.
type Snapshot struct {
	Generation uint64
	// Digest hashes the source documents the snapshot was built from. Unlike
	// Generation it is stable across processes.
	Digest    string
	Catalog   *catalog.Index
	Knowledge *knowledge.Retriever
	// Semantic is nil until embeddings have been built, or when they failed.
	Semantic vectorstore.SemanticIndex
	BuiltAt  time.Time
}

// Records returns the catalog records, or nil for an empty snapshot.
func (s *Snapshot) Records() []catalog.ProductRecord {
	if s == nil || s.Catalog == nil {
		return nil
	}
	return s.Catalog.Records
}

// Categories returns the catalog categories in document order.
func (s *Snapshot) Categories() []catalog.Category {
	if s == nil || s.Catalog == nil {
		return nil
	}
	return s.Catalog.Categories
}

// CacheScope identifies the snapshot's searchable content for shared response
// caches: the document digest plus whether semantic retrieval is available.
// Snapshots without a digest fall back to their process-local generation.
func (s *Snapshot) CacheScope() string {
	scope := s.Digest
	if scope == "" {
		scope = "generation:" + strconv.FormatUint(s.Generation, 10)
	}
	if s.HasSemantic() {
		scope += "|semantic"
	}
	return scope
}

// HasSemantic reports whether a non-empty semantic index is attached.
func (s *Snapshot) HasSemantic() bool {
	return s != nil && s.Semantic != nil && s.Semantic.Len() > 0
}

// EngineContext publishes snapshots with copy-on-write semantics. Readers never
// lock; a reload builds a new Snapshot off to the side and swaps it in.
type EngineContext struct {
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
}

// NewEngineContext creates an empty context. Load returns nil until the first Swap.
func NewEngineContext() *EngineContext {
	return &EngineContext{}
}

// Load returns the active snapshot.
func (c *EngineContext) Load() *Snapshot {
	return c.current.Load()
}

// NextGeneration reserves the generation number for the next snapshot.
func (c *EngineContext) NextGeneration() uint64 {
	return c.generation.Add(1)
}

// Swap publishes snap and returns the snapshot it replaced.
func (c *EngineContext) Swap(snap *Snapshot) *Snapshot {
	return c.current.Swap(snap)
}
