package intent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"catalog-assistant/internal/catalog"
)

// Label is the classified purpose of a message.
type Label string

const (
	Search   Label = "search"
	Question Label = "question"
	Greeting Label = "greeting"
	Thanks   Label = "thanks"
	Help     Label = "help"
	Price    Label = "price"
	Unknown  Label = "unknown"
)

// Intent is the result of classifying one message.
type Intent struct {
	Label      Label   `json:"intent"`
	Confidence float64 `json:"confidence"`
	// Entity is the residual query after stop-word removal; "" when nothing remains.
	Entity    string `json:"entity,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// UnknownIntent is returned for empty or unmatched messages.
func UnknownIntent() Intent {
	return Intent{Label: Unknown, Confidence: 0}
}

// Classifier labels a message. Implementations return UnknownIntent for an
// empty message instead of failing.
type Classifier interface {
	Classify(ctx context.Context, message string) (Intent, error)
}

// Embedder produces one vector per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Tables groups every data-driven part of classification.
type Tables struct {
	Keywords  []KeywordRule      `yaml:"keywords"`
	Exemplars []Exemplar         `yaml:"exemplars"`
	StopWords map[Label][]string `yaml:"stop_words"`
}

// DefaultTables returns the built-in English and Hindi tables.
func DefaultTables() Tables {
	return Tables{
		Keywords:  DefaultKeywordRules(),
		Exemplars: DefaultExemplars(),
		StopWords: DefaultStopWords(),
	}
}

// LoadTables reads classification tables from YAML. Sections missing from the
// file keep their defaults.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read intent tables: %w", err)
	}

	var loaded Tables
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Tables{}, fmt.Errorf("failed to parse intent tables: %w", err)
	}

	tables := DefaultTables()
	if len(loaded.Keywords) > 0 {
		tables.Keywords = loaded.Keywords
	}
	if len(loaded.Exemplars) > 0 {
		tables.Exemplars = loaded.Exemplars
	}
	if len(loaded.StopWords) > 0 {
		tables.StopWords = loaded.StopWords
	}
	return tables, nil
}

// DefaultStopWords returns the entity stop-word lists for search and price messages.
func DefaultStopWords() map[Label][]string {
	return map[Label][]string{
		Search: {"do", "you", "have", "show", "me", "find", "get", "need", "want", "looking", "for",
			"i", "a", "an", "the", "any", "some", "please", "search", "browse"},
		Price: {"what", "is", "the", "price", "cost", "rate", "of", "for", "how", "much", "tell", "me"},
	}
}

// ExtractEntity removes stop words from message and joins the remaining tokens.
func ExtractEntity(message string, stopWords []string) string {
	stop := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		stop[catalog.Normalize(w)] = struct{}{}
	}

	var kept []string
	for _, token := range tokenize(message) {
		if _, ok := stop[token]; ok {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

func withEntity(in Intent, message string, stopWords map[Label][]string) Intent {
	if in.Label != Search && in.Label != Price {
		return in
	}
	in.Entity = ExtractEntity(message, stopWords[in.Label])
	return in
}

// tokenize splits a normalized message into words. Marks are kept so Devanagari
// vowel signs and viramas stay attached to their letters.
func tokenize(message string) []string {
	normalized := catalog.Normalize(message)
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}
