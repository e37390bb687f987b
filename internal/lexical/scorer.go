package lexical

import (
	"fmt"
	"sort"
	"strings"

	"catalog-assistant/internal/catalog"
)

const (
	nameJaccardWeight     = 2.0
	categoryJaccardWeight = 1.5
	nameTokenBonus        = 0.8
	categoryTokenBonus    = 0.5
	exactNameBonus        = 2.0

	// MinScore is the exclusive lower bound for a result to be kept.
	MinScore = 0.1
)

// Scorer ranks catalog records against a query with token and substring heuristics.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	boosts BoostTable
}

// NewScorer creates a Scorer using the given boost table.
func NewScorer(boosts BoostTable) *Scorer {
	return &Scorer{boosts: boosts.normalized()}
}

// Score computes the lexical score of record for query. Every positive
// contribution appends a match reason.
func (s *Scorer) Score(query string, record *catalog.ProductRecord) catalog.ScoredResult {
	result := catalog.ScoredResult{Product: record, Source: catalog.SourceLexical}

	normQuery := catalog.Normalize(query)
	queryTokens := strings.Fields(normQuery)
	if len(queryTokens) == 0 {
		return result
	}

	name := record.NormalizedName()
	category := record.NormalizedCategory()

	if j := jaccard(queryTokens, strings.Fields(name)); j > 0 {
		result.Score += j * nameJaccardWeight
		result.MatchReasons = append(result.MatchReasons, fmt.Sprintf("name overlap %.2f", j))
	}
	if j := jaccard(queryTokens, strings.Fields(category)); j > 0 {
		result.Score += j * categoryJaccardWeight
		result.MatchReasons = append(result.MatchReasons, fmt.Sprintf("category overlap %.2f", j))
	}

	for _, token := range queryTokens {
		if strings.Contains(name, token) {
			result.Score += nameTokenBonus
			result.MatchReasons = append(result.MatchReasons, fmt.Sprintf("%q in name", token))
		}
		if strings.Contains(category, token) {
			result.Score += categoryTokenBonus
			result.MatchReasons = append(result.MatchReasons, fmt.Sprintf("%q in category", token))
		}
	}

	if strings.Contains(name, normQuery) {
		result.Score += exactNameBonus
		result.MatchReasons = append(result.MatchReasons, "query in name")
	}

	for _, rule := range s.boosts.Rules {
		if containsAny(normQuery, rule.QueryTerms) && containsAny(name, rule.ProductTerms) {
			result.Score += rule.Bonus
			result.MatchReasons = append(result.MatchReasons, fmt.Sprintf("boost %s +%g", rule.ProductTerms[0], rule.Bonus))
		}
	}

	return result
}

// Rank scores every record, drops those at or below MinScore, and sorts the rest
// by score descending with ties kept in catalog order. limit <= 0 keeps all.
func (s *Scorer) Rank(query string, records []catalog.ProductRecord, limit int) []catalog.ScoredResult {
	results := make([]catalog.ScoredResult, 0)
	for i := range records {
		r := s.Score(query, &records[i])
		if r.Score > MinScore {
			results = append(results, r)
		}
	}

	SortResults(results)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SortResults orders results by score descending, breaking ties by position.
func SortResults(results []catalog.ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position() < results[j].Position()
	})
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	var intersection int
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
