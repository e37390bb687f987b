package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/contextutil"
)

const upsertBatchSize = 64

// pointNamespace scopes the deterministic point ids derived from product ids.
var pointNamespace = uuid.MustParse("6f1c1e0a-8d0b-4c55-9a52-3f7b1b2f9c11")

// CollectionStore is the part of QdrantStore needed to publish a snapshot collection.
type CollectionStore interface {
	VectorStore
	CollectionExists(ctx context.Context, collection string) (bool, error)
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error
	DeleteCollection(ctx context.Context, collection string) error
	GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)
}

// PointID returns the stable Qdrant point id for a product id.
func PointID(productID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(productID)).String()
}

// GenerationCollection names the collection that holds one snapshot generation.
func GenerationCollection(base string, generation uint64) string {
	return fmt.Sprintf("%s_g%d", base, generation)
}

// QdrantIndex is a SemanticIndex backed by one Qdrant collection. The collection
// is written once by PublishQdrantIndex and only read afterwards.
type QdrantIndex struct {
	store      VectorStore
	collection string
	records    map[string]*catalog.ProductRecord
}

// PublishQdrantIndex writes records and vectors into a fresh collection and returns
// an index reading from it. An existing collection with the same name is replaced.
// The point count is checked before the index is returned.
func PublishQdrantIndex(ctx context.Context, store CollectionStore, collection string, records []*catalog.ProductRecord, vectors [][]float32) (*QdrantIndex, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(records) != len(vectors) {
		return nil, fmt.Errorf("got %d records and %d vectors", len(records), len(vectors))
	}
	if len(vectors) == 0 {
		return NewQdrantIndex(store, collection, nil), nil
	}

	exists, err := store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := store.DeleteCollection(ctx, collection); err != nil {
			return nil, err
		}
	}
	if err := store.EnsureCollection(ctx, collection, len(vectors[0])); err != nil {
		return nil, err
	}

	points := make([]Point, 0, upsertBatchSize)
	for i, rec := range records {
		points = append(points, Point{
			ID:  PointID(rec.ID),
			Vec: vectors[i],
			Meta: map[string]any{
				"product_id":   rec.ID,
				"name":         rec.Name,
				"category_key": rec.CategoryKey,
			},
		})
		if len(points) == upsertBatchSize || i == len(records)-1 {
			if err := store.Upsert(ctx, collection, points); err != nil {
				return nil, err
			}
			points = points[:0]
		}
	}

	info, err := store.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, err
	}
	if info.PointsCount != len(records) {
		return nil, fmt.Errorf("collection %s holds %d points after upsert, want %d", collection, info.PointsCount, len(records))
	}

	logger.InfoContext(ctx, "published qdrant collection", "collection", collection, "points", info.PointsCount, "status", info.Status)
	return NewQdrantIndex(store, collection, records), nil
}

// NewQdrantIndex wraps an already populated collection.
func NewQdrantIndex(store VectorStore, collection string, records []*catalog.ProductRecord) *QdrantIndex {
	byID := make(map[string]*catalog.ProductRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	return &QdrantIndex{store: store, collection: collection, records: byID}
}

// Collection returns the backing collection name.
func (q *QdrantIndex) Collection() string {
	return q.collection
}

// Len returns the number of records published to the collection.
func (q *QdrantIndex) Len() int {
	if q == nil {
		return 0
	}
	return len(q.records)
}

// Search queries Qdrant and maps the returned points back to catalog records.
// Points whose product is no longer in the snapshot are dropped.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int, threshold float64) ([]catalog.ScoredResult, error) {
	results := make([]catalog.ScoredResult, 0)
	if q.Len() == 0 {
		return results, nil
	}

	hits, err := q.store.Search(ctx, q.collection, query, ClampK(k), threshold)
	if err != nil {
		return nil, err
	}

	for _, hit := range hits {
		id, _ := hit.Meta["product_id"].(string)
		rec, ok := q.records[id]
		if !ok {
			continue
		}
		sim := float64(hit.Score)
		if sim < threshold {
			continue
		}
		if sim > 1 {
			sim = 1
		}
		score := sim
		if score < 0 {
			score = 0
		}
		results = append(results, catalog.ScoredResult{
			Product:      rec,
			Score:        score,
			MatchReasons: []string{fmt.Sprintf("cosine %.3f", sim)},
			Source:       catalog.SourceSemantic,
		})
	}
	return results, nil
}
