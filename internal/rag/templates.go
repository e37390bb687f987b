package rag

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/intent"
)

// TemplateRule is a canned bilingual answer selected by trigger words.
type TemplateRule struct {
	Key      string   `yaml:"key"`
	Triggers []string `yaml:"triggers"`
	English  string   `yaml:"english"`
	Hindi    string   `yaml:"hindi"`
}

// TemplateTable holds the template tier data and the canned replies for
// greeting, thanks and help messages.
type TemplateTable struct {
	// Rules are tried in order; the first rule with a matching trigger wins.
	Rules []TemplateRule `yaml:"rules"`
	// General answers questions no rule matches.
	General TemplateRule `yaml:"general"`
	// HindiMarkers are Latin-script words that select the Hindi variant.
	HindiMarkers []string                `yaml:"hindi_markers"`
	Replies      map[intent.Label]string `yaml:"replies"`
}

// DefaultTemplateTable returns the built-in color, water, usage and safety answers.
func DefaultTemplateTable() TemplateTable {
	return TemplateTable{
		Rules: []TemplateRule{
			{
				Key:      "color",
				Triggers: []string{"color", "colour", "colors", "colours", "रंग", "rang"},
				English:  "Our products are available in various colors. Please contact us for specific color information.",
				Hindi:    "हमारे उत्पाद विभिन्न रंगों में उपलब्ध हैं। कृपया विशिष्ट रंग की जानकारी के लिए हमसे संपर्क करें।",
			},
			{
				Key:      "water",
				Triggers: []string{"water", "mix", "mixing", "dilute", "ratio", "पानी", "मिला", "मिलाना", "pani", "paani"},
				English:  "For mixing ratios, please check the product label or contact our team.",
				Hindi:    "मिश्रण के अनुपात के लिए कृपया उत्पाद लेबल देखें या हमारी टीम से संपर्क करें।",
			},
			{
				Key:      "usage",
				Triggers: []string{"use", "usage", "how", "apply", "उपयोग", "इस्तेमाल", "कैसे", "istemal", "kaise"},
				English:  "For usage instructions, please check the product directions or ask us.",
				Hindi:    "उपयोग की विधि के लिए कृपया उत्पाद के निर्देश देखें या हमसे पूछें।",
			},
			{
				Key:      "safety",
				Triggers: []string{"safe", "safety", "compatible", "toxic", "सुरक्षित", "surakshit"},
				English:  "For safety information, please check the product safety sheet or contact our team.",
				Hindi:    "सुरक्षा जानकारी के लिए कृपया उत्पाद की सुरक्षा शीट देखें या हमारी टीम से संपर्क करें।",
			},
		},
		General: TemplateRule{
			Key:     "general",
			English: "Thank you for your question! For detailed information, please contact our customer service team.",
			Hindi:   "आपके प्रश्न के लिए धन्यवाद! विस्तृत जानकारी के लिए कृपया हमारी कस्टमर सर्विस टीम से संपर्क करें।",
		},
		HindiMarkers: []string{"kya", "kaise", "hai", "hain", "kitna", "kitne", "chahiye", "mein", "nahi", "kab", "kahan", "kaun"},
		Replies: map[intent.Label]string{
			intent.Greeting: "Hello! 👋 Welcome!\n\nI can help you with:\n• Finding products and prices\n• DIY kit recipes and instructions\n• Product recommendations\n\nJust ask me anything about our products!",
			intent.Thanks:   "You're welcome! 😊 Let me know if you need anything else.",
			intent.Help:     "I can help you:\n• Search products: \"show me floor cleaner\"\n• Check prices: \"price of acetic acid\"\n• Ask questions: \"how do I use phenyl?\"\n• Get DIY kit recipes: \"fabric conditioner kit\"",
		},
	}
}

// LoadTemplateTable reads a template table from YAML. Sections missing from the
// file keep their defaults.
func LoadTemplateTable(path string) (TemplateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TemplateTable{}, fmt.Errorf("failed to read template table: %w", err)
	}

	var loaded TemplateTable
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return TemplateTable{}, fmt.Errorf("failed to parse template table: %w", err)
	}

	table := DefaultTemplateTable()
	if len(loaded.Rules) > 0 {
		table.Rules = loaded.Rules
	}
	if loaded.General.English != "" || loaded.General.Hindi != "" {
		table.General = loaded.General
		if table.General.Key == "" {
			table.General.Key = "general"
		}
	}
	if len(loaded.HindiMarkers) > 0 {
		table.HindiMarkers = loaded.HindiMarkers
	}
	for label, reply := range loaded.Replies {
		table.Replies[label] = reply
	}
	return table, table.Validate()
}

// Validate checks that every rule has triggers and at least one variant.
func (t TemplateTable) Validate() error {
	for i, rule := range t.Rules {
		if len(rule.Triggers) == 0 {
			return fmt.Errorf("template rule %d (%s): no triggers", i, rule.Key)
		}
		if rule.English == "" && rule.Hindi == "" {
			return fmt.Errorf("template rule %d (%s): no response text", i, rule.Key)
		}
	}
	if t.General.English == "" && t.General.Hindi == "" {
		return fmt.Errorf("general template: no response text")
	}
	return nil
}

// Respond returns the key and text of the first rule triggered by question,
// or the general answer. The Hindi variant is used for Hindi questions.
func (t TemplateTable) Respond(question string) (string, string) {
	padded := " " + strings.Join(words(question), " ") + " "
	hindi := t.isHindi(question, padded)

	for _, rule := range t.Rules {
		for _, trigger := range rule.Triggers {
			w := strings.Join(words(trigger), " ")
			if w != "" && strings.Contains(padded, " "+w+" ") {
				return rule.Key, rule.text(hindi)
			}
		}
	}
	return t.General.Key, t.General.text(hindi)
}

// Reply returns the canned reply for a greeting, thanks or help intent.
func (t TemplateTable) Reply(label intent.Label) (string, bool) {
	reply, ok := t.Replies[label]
	return reply, ok && reply != ""
}

func (t TemplateTable) isHindi(question, padded string) bool {
	for _, r := range question {
		if unicode.Is(unicode.Devanagari, r) {
			return true
		}
	}
	for _, marker := range t.HindiMarkers {
		if strings.Contains(padded, " "+catalog.Normalize(marker)+" ") {
			return true
		}
	}
	return false
}

func (r TemplateRule) text(hindi bool) string {
	if hindi && r.Hindi != "" {
		return r.Hindi
	}
	if r.English != "" {
		return r.English
	}
	return r.Hindi
}

// words normalizes s and splits it into letter, digit and mark runs.
func words(s string) []string {
	return strings.FieldsFunc(catalog.Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}
