package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"catalog-assistant/internal/catalog"
)

// MemoryIndex is an immutable in-process semantic index. It is built once per
// catalog snapshot, so searches need no locking.
type MemoryIndex struct {
	records []*catalog.ProductRecord
	vectors [][]float32
	dim     int
}

// NewMemoryIndex builds an index over records and their vectors. Vectors are
// copied so later changes by the caller cannot leak into the index.
func NewMemoryIndex(records []*catalog.ProductRecord, vectors [][]float32) (*MemoryIndex, error) {
	if len(records) != len(vectors) {
		return nil, fmt.Errorf("got %d records and %d vectors", len(records), len(vectors))
	}

	idx := &MemoryIndex{
		records: make([]*catalog.ProductRecord, len(records)),
		vectors: make([][]float32, len(vectors)),
	}
	copy(idx.records, records)

	for i, v := range vectors {
		if i == 0 {
			idx.dim = len(v)
		} else if len(v) != idx.dim {
			return nil, fmt.Errorf("vector %d: %w: got %d, want %d", i, ErrDimensionMismatch, len(v), idx.dim)
		}
		vec := make([]float32, len(v))
		copy(vec, v)
		idx.vectors[i] = vec
	}
	return idx, nil
}

// Len returns the number of indexed vectors.
func (m *MemoryIndex) Len() int {
	if m == nil {
		return 0
	}
	return len(m.vectors)
}

// Dim returns the vector dimensionality, or 0 for an empty index.
func (m *MemoryIndex) Dim() int {
	if m == nil {
		return 0
	}
	return m.dim
}

// Search scans every vector and keeps those with similarity >= threshold.
// Results are ordered by raw similarity; the returned Score is floored at 0 and
// the raw similarity is kept in the match reason.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int, threshold float64) ([]catalog.ScoredResult, error) {
	type hit struct {
		index int
		sim   float64
	}

	results := make([]catalog.ScoredResult, 0)
	if m.Len() == 0 {
		return results, nil
	}
	if len(query) != m.dim {
		return nil, fmt.Errorf("query: %w: got %d, want %d", ErrDimensionMismatch, len(query), m.dim)
	}

	var hits []hit
	for i, vec := range m.vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim, err := Cosine(query, vec)
		if err != nil {
			return nil, err
		}
		if sim >= threshold {
			hits = append(hits, hit{index: i, sim: sim})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		return m.records[hits[i].index].Position < m.records[hits[j].index].Position
	})

	for _, h := range hits {
		results = append(results, catalog.ScoredResult{
			Product:      m.records[h.index],
			Score:        math.Max(h.sim, 0),
			MatchReasons: []string{fmt.Sprintf("cosine %.3f", h.sim)},
			Source:       catalog.SourceSemantic,
		})
	}

	if k = ClampK(k); len(results) > k {
		results = results[:k]
	}
	return results, nil
}
