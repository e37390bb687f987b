package vectorstore

import (
	"context"

	"catalog-assistant/internal/catalog"
)

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore is the point-level API of a remote vector database.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns at most k points with similarity >= threshold.
	Search(ctx context.Context, collection string, query []float32, k int, threshold float64) ([]SearchResult, error)
}

// SemanticIndex is a read-only nearest-neighbour index over catalog records.
// Implementations never mutate stored vectors and are safe for concurrent Search calls.
type SemanticIndex interface {
	// Search returns records with cosine similarity >= threshold, best first,
	// truncated to k. An empty index returns an empty slice.
	Search(ctx context.Context, query []float32, k int, threshold float64) ([]catalog.ScoredResult, error)

	// Len returns the number of indexed vectors.
	Len() int
}

const (
	// DefaultK is used when a caller passes k <= 0.
	DefaultK = 10
	// MaxK caps the number of results a single search may return.
	MaxK = 50
	// DefaultThreshold is the default minimum cosine similarity.
	DefaultThreshold = 0.3
)

// ClampK applies the default and maximum result counts.
func ClampK(k int) int {
	if k <= 0 {
		return DefaultK
	}
	if k > MaxK {
		return MaxK
	}
	return k
}
