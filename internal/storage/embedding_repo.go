package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedding_store.go -package=mocks catalog-assistant/internal/storage EmbeddingStore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// maxLookupBatch keeps IN clauses under SQLite's default variable limit.
const maxLookupBatch = 500

// EmbeddingStore caches embedding vectors by model and text hash.
type EmbeddingStore interface {
	// Get returns the cached vectors for the given hashes. Missing hashes are absent from the map.
	Get(ctx context.Context, model string, hashes []string) (map[string][]float32, error)
	// Put stores vectors keyed by text hash, replacing existing entries.
	Put(ctx context.Context, model string, vectors map[string][]float32) error
}

// EmbeddingRepo provides methods for embedding cache operations.
// It implements the EmbeddingStore interface.
type EmbeddingRepo struct {
	db *sql.DB
}

// NewEmbeddingRepo creates a new EmbeddingRepo.
func NewEmbeddingRepo(db *sql.DB) *EmbeddingRepo {
	return &EmbeddingRepo{db: db}
}

// Get returns the cached vectors for hashes under model.
func (r *EmbeddingRepo) Get(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(hashes))

	for start := 0; start < len(hashes); start += maxLookupBatch {
		end := min(start+maxLookupBatch, len(hashes))
		batch := hashes[start:end]

		args := make([]any, 0, len(batch)+1)
		args = append(args, model)
		for _, h := range batch {
			args = append(args, h)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		rows, err := r.db.QueryContext(ctx,
			"SELECT text_hash, dim, vector FROM embeddings WHERE model = ? AND text_hash IN ("+placeholders+")",
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query embeddings: %w", err)
		}

		for rows.Next() {
			var (
				hash string
				dim  int
				blob []byte
			)
			if err := rows.Scan(&hash, &dim, &blob); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan embedding: %w", err)
			}
			vec, err := decodeVector(blob, dim)
			if err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("embedding %s: %w", hash, err)
			}
			out[hash] = vec
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate embeddings: %w", err)
		}
	}

	return out, nil
}

// Put stores vectors under model in one transaction.
func (r *EmbeddingRepo) Put(ctx context.Context, model string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO embeddings (model, text_hash, dim, vector) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare embedding insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for hash, vec := range vectors {
		if _, err := stmt.ExecContext(ctx, model, hash, len(vec), encodeVector(vec)); err != nil {
			return fmt.Errorf("failed to insert embedding %s: %w", hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}
	return nil
}

// encodeVector packs vec as little-endian float32 values.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dim int) ([]float32, error) {
	if len(blob) != 4*dim {
		return nil, fmt.Errorf("blob has %d bytes, want %d", len(blob), 4*dim)
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}
