package rag

import (
	"sort"

	"catalog-assistant/internal/catalog"
)

// Merge fuses per-strategy result lists. Raw scores are not comparable across
// strategies, so each list is converted to rank percentiles first:
//
//	percentile = 1 - (#results with a strictly higher score) / n
//
// The fused score is the mean percentile over the lists that returned results;
// a result missing from a list contributes 0 for it. Ties keep catalog order.
// A single non-empty list is returned unchanged.
func Merge(lists ...[]catalog.ScoredResult) []catalog.ScoredResult {
	var ran [][]catalog.ScoredResult
	for _, list := range lists {
		if len(list) > 0 {
			ran = append(ran, list)
		}
	}
	switch len(ran) {
	case 0:
		return nil
	case 1:
		out := make([]catalog.ScoredResult, len(ran[0]))
		copy(out, ran[0])
		return out
	}

	type fused struct {
		result catalog.ScoredResult
		sum    float64
	}
	byKey := make(map[string]*fused)
	var order []string

	for _, list := range ran {
		percentiles := rankPercentiles(list)
		for i, r := range list {
			key := r.Key()
			f, ok := byKey[key]
			if !ok {
				f = &fused{result: catalog.ScoredResult{
					Product:   r.Product,
					Knowledge: r.Knowledge,
					Source:    catalog.SourceHybrid,
				}}
				byKey[key] = f
				order = append(order, key)
			}
			f.sum += percentiles[i]
			f.result.MatchReasons = append(f.result.MatchReasons, r.MatchReasons...)
		}
	}

	out := make([]catalog.ScoredResult, 0, len(order))
	for _, key := range order {
		f := byKey[key]
		f.result.Score = f.sum / float64(len(ran))
		out = append(out, f.result)
	}
	sortByScore(out)
	return out
}

// rankPercentiles returns the percentile of each entry of list, by index.
func rankPercentiles(list []catalog.ScoredResult) []float64 {
	n := len(list)
	desc := make([]float64, n)
	for i, r := range list {
		desc[i] = r.Score
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(desc)))

	out := make([]float64, n)
	for i, r := range list {
		higher := sort.Search(n, func(j int) bool { return desc[j] <= r.Score })
		out[i] = 1 - float64(higher)/float64(n)
	}
	return out
}

// sortByScore orders results by score descending, then by catalog position.
func sortByScore(results []catalog.ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position() < results[j].Position()
	})
}
