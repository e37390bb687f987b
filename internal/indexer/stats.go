package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"catalog-assistant/internal/catalog"
)

const (
	// IndexerVersion identifies how search texts are built and embedded.
	// Update this when the embedded text changes.
	IndexerVersion = "v1.0"
	// TokensPerRune is an approximation for token counting (4 chars per token).
	TokensPerRune = 4.0
)

// Semantic index states reported in Stats.
const (
	SemanticNone     = "none"
	SemanticMemory   = "memory"
	SemanticQdrant   = "qdrant"
	SemanticDegraded = "degraded"
)

// Stats describes one reload.
type Stats struct {
	// Generation is the generation of the published snapshot.
	Generation uint64 `json:"generation"`
	Categories int    `json:"categories"`
	Products   int    `json:"products"`
	// SkippedProducts counts malformed or duplicate products left out of the index.
	SkippedProducts  int      `json:"skipped_products"`
	Warnings         []string `json:"warnings,omitempty"`
	KnowledgeEntries int      `json:"knowledge_entries"`
	// VectorsEmbedded counts texts sent to the embedding server.
	VectorsEmbedded int `json:"vectors_embedded"`
	// VectorsCached counts vectors served from the embedding cache.
	VectorsCached int `json:"vectors_cached"`
	// SemanticIndex is one of none, memory, qdrant or degraded.
	SemanticIndex string `json:"semantic_index"`
	SemanticError string `json:"semantic_error,omitempty"`
	// TextTokens are estimated token counts of the embedded search texts.
	TextTokens TokenStats `json:"text_tokens"`
	// IndexVersion is a hash identifying the build (indexer version + embedding model + dimension).
	IndexVersion string        `json:"index_version"`
	Duration     time.Duration `json:"-"`
	DurationMS   int64         `json:"duration_ms"`
}

// TokenStats contains statistics about token counts.
type TokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// searchTextStats estimates token counts of every record's search text.
func searchTextStats(records []catalog.ProductRecord) TokenStats {
	counts := make([]int, 0, len(records))
	for i := range records {
		runeCount := utf8.RuneCountInString(records[i].SearchText)
		tokenCount := int(math.Round(float64(runeCount) / TokensPerRune))
		if tokenCount < 1 {
			tokenCount = 1
		}
		counts = append(counts, tokenCount)
	}
	return computeTokenStats(counts)
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) TokenStats {
	if len(tokenCounts) == 0 {
		return TokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return TokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}

// indexVersion hashes what determines the stored vectors.
func indexVersion(model string, dim int) string {
	input := fmt.Sprintf("%s|%s|dim=%d", IndexerVersion, model, dim)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits
}

// countRawProducts counts list entries under every category's products field.
func countRawProducts(raw catalog.RawCatalog) int {
	var n int
	for _, cat := range raw.Categories {
		obj, ok := cat.Value.(map[string]any)
		if !ok {
			continue
		}
		if list, ok := obj["products"].([]any); ok {
			n += len(list)
		}
	}
	return n
}
