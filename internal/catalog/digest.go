package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Digest hashes the decoded catalog and knowledge documents. Equal content
// gives equal digests across processes; object keys are encoded sorted, so
// only category, product and entry order are significant.
func Digest(cat RawCatalog, kb RawKnowledge) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	// Decoded JSON values always re-encode.
	_ = enc.Encode(cat)
	_ = enc.Encode(kb)
	return hex.EncodeToString(h.Sum(nil))
}
