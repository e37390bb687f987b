package knowledge

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"catalog-assistant/internal/catalog"
)

const (
	// MaxResults caps the entries returned by Retrieve.
	MaxResults = 3
	// MaxExcerptSteps caps the recipe steps rendered in an excerpt.
	MaxExcerptSteps = 3
)

// Retrieval holds the ranked knowledge matches and an excerpt of the best one.
type Retrieval struct {
	Results []catalog.ScoredResult
	Excerpt string
}

// Retriever matches queries against knowledge entries by keyword and substring.
// It holds an immutable copy of the entries and is safe for concurrent use.
type Retriever struct {
	entries []catalog.KnowledgeEntry
}

// NewRetriever creates a retriever over entries.
func NewRetriever(entries []catalog.KnowledgeEntry) *Retriever {
	copied := make([]catalog.KnowledgeEntry, len(entries))
	copy(copied, entries)
	return &Retriever{entries: copied}
}

// Len returns the number of entries.
func (r *Retriever) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns the entries in load order.
func (r *Retriever) Entries() []catalog.KnowledgeEntry {
	if r == nil {
		return nil
	}
	return r.entries
}

// Retrieve scores every entry against query and returns at most MaxResults matches.
func (r *Retriever) Retrieve(query string) Retrieval {
	q := catalog.Normalize(query)
	if r == nil || q == "" {
		return Retrieval{}
	}

	var results []catalog.ScoredResult
	for i := range r.entries {
		entry := &r.entries[i]
		score, reasons, ok := match(q, entry)
		if !ok {
			continue
		}
		results = append(results, catalog.ScoredResult{
			Knowledge:    entry,
			Score:        score,
			MatchReasons: reasons,
			Source:       catalog.SourceKnowledge,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position() < results[j].Position()
	})
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}

	out := Retrieval{Results: results}
	if len(results) > 0 {
		out.Excerpt = FormatExcerpt(results[0].Knowledge, MaxExcerptSteps)
	}
	return out
}

// match reports whether entry qualifies for the normalized query q.
func match(q string, entry *catalog.KnowledgeEntry) (float64, []string, bool) {
	var (
		score   float64
		reasons []string
		ok      bool
	)

	for _, kw := range entry.Keywords {
		if kw != "" && strings.Contains(q, kw) {
			score++
			reasons = append(reasons, fmt.Sprintf("keyword %q", kw))
			ok = true
		}
	}

	if strings.Contains(catalog.Normalize(entry.Name), q) {
		score += 2
		reasons = append(reasons, "query in name")
		ok = true
	}

	w := walker{query: q}
	for _, key := range slices.Sorted(maps.Keys(entry.Content)) {
		if key == "name" || key == "keywords" {
			continue
		}
		w.walk(key, entry.Content[key])
	}
	if w.score > 0 {
		score += w.score
		reasons = append(reasons, w.reasons...)
		ok = true
	}

	return score, reasons, ok
}

type walker struct {
	query   string
	score   float64
	reasons []string
}

func (w *walker) walk(path string, v any) {
	switch val := v.(type) {
	case string:
		if strings.Contains(catalog.Normalize(val), w.query) {
			w.score++
			w.reasons = append(w.reasons, fmt.Sprintf("query in %s", path))
		}
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(val)) {
			w.walk(path+"."+key, val[key])
		}
	case []any:
		for i, item := range val {
			switch elem := item.(type) {
			case string:
				if strings.Contains(catalog.Normalize(elem), w.query) {
					w.score += 0.5
					w.reasons = append(w.reasons, fmt.Sprintf("query in %s[%d]", path, i))
				}
			case map[string]any, []any:
				w.walk(fmt.Sprintf("%s[%d]", path, i), elem)
			}
		}
	}
}

// FormatExcerpt renders entry as a short block: name, price summary, description
// and the first maxSteps recipe steps. Later steps are omitted whole.
func FormatExcerpt(entry *catalog.KnowledgeEntry, maxSteps int) string {
	if entry == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", entry.Name)
	if summary := entry.Price.Summary(); summary != "" {
		fmt.Fprintf(&b, "Price: %s\n", summary)
	}
	if entry.Description != "" {
		b.WriteString(entry.Description)
		b.WriteString("\n")
	}

	steps := entry.RecipeSteps
	if maxSteps >= 0 && len(steps) > maxSteps {
		steps = steps[:maxSteps]
	}
	for _, step := range steps {
		switch {
		case step.Title != "" && step.Instruction != "":
			fmt.Fprintf(&b, "%d. %s: %s\n", step.Number, step.Title, step.Instruction)
		case step.Title != "":
			fmt.Fprintf(&b, "%d. %s\n", step.Number, step.Title)
		default:
			fmt.Fprintf(&b, "%d. %s\n", step.Number, step.Instruction)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
