package intent

import (
	"context"
	"fmt"
	"strings"
)

// KeywordRule assigns Label when any indicator appears as a whole word or phrase.
type KeywordRule struct {
	Label      Label    `yaml:"label"`
	Indicators []string `yaml:"indicators"`
}

// DefaultKeywordRules returns the rules in priority order: question beats search.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Label: Question, Indicators: []string{
			"does", "is", "can", "will", "how", "what", "which", "when", "where", "why",
			"color", "colour", "water", "mix", "use", "safe",
			"क्या", "कैसे", "कौन", "कब", "कहाँ", "किस", "मिलता", "उपलब्ध", "रंग", "पानी", "मिला", "उपयोग",
			"kya", "kaise", "kab", "kahan", "kaun",
		}},
		{Label: Search, Indicators: []string{
			"show", "find", "search", "get", "need", "want", "looking", "browse", "buy",
			"दिखा", "दिखाओ", "चाहिए", "खोज",
			"dikhao", "chahiye",
		}},
		{Label: Price, Indicators: []string{
			"price", "prices", "cost", "rate", "mrp", "कीमत", "दाम", "keemat", "daam",
		}},
		{Label: Greeting, Indicators: []string{
			"hello", "hi", "hey", "namaste", "vanakkam", "adaab", "नमस्ते",
			"good morning", "good afternoon", "good evening",
		}},
		{Label: Thanks, Indicators: []string{
			"thanks", "thank", "thankyou", "धन्यवाद", "shukriya", "dhanyavad",
		}},
		{Label: Help, Indicators: []string{
			"help", "assist", "assistance", "guide", "मदद", "madad",
		}},
	}
}

// KeywordClassifier matches messages against ordered indicator lists.
// It has no external dependencies and never returns an error.
type KeywordClassifier struct {
	rules     []KeywordRule
	stopWords map[Label][]string
}

// NewKeywordClassifier creates a classifier from tables. The first matching rule wins.
func NewKeywordClassifier(tables Tables) *KeywordClassifier {
	rules := make([]KeywordRule, 0, len(tables.Keywords))
	for _, rule := range tables.Keywords {
		normalized := KeywordRule{Label: rule.Label}
		for _, ind := range rule.Indicators {
			if tokens := tokenize(ind); len(tokens) > 0 {
				normalized.Indicators = append(normalized.Indicators, strings.Join(tokens, " "))
			}
		}
		rules = append(rules, normalized)
	}
	return &KeywordClassifier{rules: rules, stopWords: tables.StopWords}
}

// Classify returns the first rule whose indicator occurs in message with
// confidence 1.0, or Unknown with confidence 0. A '?' counts as a question.
func (c *KeywordClassifier) Classify(ctx context.Context, message string) (Intent, error) {
	tokens := tokenize(message)
	if len(tokens) == 0 {
		return UnknownIntent(), nil
	}
	padded := " " + strings.Join(tokens, " ") + " "
	hasQuestionMark := strings.ContainsAny(message, "?？")

	for _, rule := range c.rules {
		if rule.Label == Question && hasQuestionMark {
			return Intent{Label: Question, Confidence: 1.0, Reasoning: "question mark"}, nil
		}
		for _, ind := range rule.Indicators {
			if strings.Contains(padded, " "+ind+" ") {
				in := Intent{
					Label:      rule.Label,
					Confidence: 1.0,
					Reasoning:  fmt.Sprintf("keyword %q", ind),
				}
				return withEntity(in, message, c.stopWords), nil
			}
		}
	}
	return UnknownIntent(), nil
}
