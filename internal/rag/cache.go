package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"catalog-assistant/internal/catalog"
)

// ResponseCache stores search responses. A miss is (zero, false, nil).
type ResponseCache interface {
	Get(ctx context.Context, key string) (RankedResponse, bool, error)
	Set(ctx context.Context, key string, resp RankedResponse) error
}

// CacheKey identifies a search response. scope is Snapshot.CacheScope, so
// processes sharing a cache only share listings built from the same documents.
func CacheKey(scope string, limit int, query string) string {
	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(limit)))
	h.Write([]byte{'|'})
	h.Write([]byte(catalog.Normalize(query)))
	return hex.EncodeToString(h.Sum(nil))
}
