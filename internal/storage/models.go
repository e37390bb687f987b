package storage

import "time"

// CatalogInfo summarizes what has been imported into the database.
type CatalogInfo struct {
	Categories       int
	Products         int
	KnowledgeEntries int
	UpdatedAt        time.Time // Latest category import; zero when nothing is imported
}

// EmbeddingKey identifies a cached vector.
type EmbeddingKey struct {
	Model    string // Embedding model name
	TextHash string // SHA256 hex string of the embedded text
}
