package rag

import "catalog-assistant/internal/catalog"

// Kind is the shape of a RankedResponse.
type Kind string

const (
	KindSearch       Kind = "search"
	KindConversation Kind = "conversation"
)

// Tier names the fallback stage that produced a response.
type Tier string

const (
	TierGeneration Tier = "generation"
	TierTemplate   Tier = "template"
	TierSearch     Tier = "search"
	TierNoResults  Tier = "no_results"
	TierCanned     Tier = "canned"
)

// SearchRequest is a free-text catalog query.
type SearchRequest struct {
	// Query is the customer's message.
	Query string `json:"query"`
	// Limit caps the listed products. 0 selects the configured default; values
	// above MaxLimit are clamped.
	Limit int `json:"limit,omitempty"`
}

// ConverseRequest is a product question with optional caller-supplied context.
type ConverseRequest struct {
	// Question is the customer's question.
	Question string `json:"question"`
	// ProductContext is passed to the generator verbatim. When nil, context is
	// derived from the catalog and knowledge base.
	ProductContext map[string]any `json:"product_context,omitempty"`
}

// Meta describes how a response was produced.
type Meta struct {
	Query      string `json:"query"`
	TotalFound int    `json:"total_found"`
	Tier       Tier   `json:"tier"`
	Intent     string `json:"intent,omitempty"`
	Generation uint64 `json:"generation"`
}

// RankedResponse is the engine's answer to a query. Items is never nil.
type RankedResponse struct {
	Kind    Kind                   `json:"kind"`
	Items   []catalog.ScoredResult `json:"items"`
	Message string                 `json:"message"`
	Meta    Meta                   `json:"meta"`
}
