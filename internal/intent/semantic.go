package intent

import (
	"context"
	"fmt"
	"strings"

	"catalog-assistant/internal/vectorstore"
)

// Exemplar lists example phrases for one label.
type Exemplar struct {
	Label    Label    `yaml:"label"`
	Examples []string `yaml:"examples"`
}

// DefaultExemplars returns the built-in example phrases.
func DefaultExemplars() []Exemplar {
	return []Exemplar{
		{Label: Greeting, Examples: []string{
			"hello", "hi", "hey", "good morning", "good afternoon", "how are you", "namaste", "vanakkam", "adaab",
		}},
		{Label: Search, Examples: []string{
			"do you have brushes", "show me cleaning products", "find acetic acid", "looking for perfumes",
			"need chemicals", "what products do you sell", "browse items",
		}},
		{Label: Price, Examples: []string{
			"what is the price", "how much does it cost", "rate of acetic acid", "tell me the cost",
			"price list", "how expensive",
		}},
		{Label: Help, Examples: []string{
			"help me", "how to use", "what can you do", "assistance needed", "i need help", "guide me",
		}},
		{Label: Thanks, Examples: []string{
			"thank you", "thanks", "appreciate it", "great service", "nice", "good job",
		}},
	}
}

type labelVectors struct {
	label   Label
	vectors [][]float32
}

// SemanticClassifier picks the label whose closest example is most similar to
// the message. Example vectors are computed once at construction.
type SemanticClassifier struct {
	embedder  Embedder
	labels    []labelVectors
	stopWords map[Label][]string
}

// NewSemanticClassifier embeds every exemplar phrase in a single batch.
func NewSemanticClassifier(ctx context.Context, embedder Embedder, tables Tables) (*SemanticClassifier, error) {
	var texts []string
	for _, ex := range tables.Exemplars {
		texts = append(texts, ex.Examples...)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("no intent exemplars configured")
	}

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed intent exemplars: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d exemplar vectors, got %d", len(texts), len(vectors))
	}

	c := &SemanticClassifier{embedder: embedder, stopWords: tables.StopWords}
	offset := 0
	for _, ex := range tables.Exemplars {
		c.labels = append(c.labels, labelVectors{
			label:   ex.Label,
			vectors: vectors[offset : offset+len(ex.Examples)],
		})
		offset += len(ex.Examples)
	}
	return c, nil
}

// Classify embeds message and compares it against every exemplar. Confidence is
// the best similarity floored at 0. An embedding failure yields Unknown plus the error.
func (c *SemanticClassifier) Classify(ctx context.Context, message string) (Intent, error) {
	if strings.TrimSpace(message) == "" {
		return UnknownIntent(), nil
	}

	vectors, err := c.embedder.EmbedTexts(ctx, []string{message})
	if err != nil {
		return UnknownIntent(), fmt.Errorf("failed to embed message: %w", err)
	}
	if len(vectors) != 1 {
		return UnknownIntent(), fmt.Errorf("expected 1 message vector, got %d", len(vectors))
	}
	query := vectors[0]

	best := UnknownIntent()
	bestSim := 0.0
	for _, lv := range c.labels {
		for _, vec := range lv.vectors {
			sim, err := vectorstore.Cosine(query, vec)
			if err != nil {
				return UnknownIntent(), err
			}
			if sim > bestSim {
				bestSim = sim
				best = Intent{
					Label:      lv.label,
					Confidence: sim,
					Reasoning:  fmt.Sprintf("semantic similarity: %.3f", sim),
				}
			}
		}
	}
	return withEntity(best, message, c.stopWords), nil
}
