package rag

import "errors"

var (
	// ErrEmptyQuery is returned for a blank query or question.
	ErrEmptyQuery = errors.New("empty query")
	// ErrNoSnapshot is returned when the engine is used before the first catalog load.
	ErrNoSnapshot = errors.New("catalog not loaded")
	// ErrGenerationUnavailable marks a generation call that failed, timed out or
	// produced an unusable answer. It is absorbed by the template tier.
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrRetrievalDegraded marks a strategy that could not run. It is absorbed by
	// the remaining strategies or the no-results tier.
	ErrRetrievalDegraded = errors.New("retrieval degraded")
)
