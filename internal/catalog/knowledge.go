package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BuildKnowledge converts raw knowledge entries. Entries that are not objects are
// skipped and reported in the returned warnings.
func BuildKnowledge(raw RawKnowledge) ([]KnowledgeEntry, []string) {
	var (
		entries  []KnowledgeEntry
		warnings []string
	)
	for _, e := range raw.Entries {
		obj, ok := e.Value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("knowledge entry %q is not an object", e.Key))
			continue
		}
		entry := KnowledgeEntry{
			Key:         e.Key,
			Name:        strings.TrimSpace(stringValue(obj["name"])),
			Description: strings.TrimSpace(stringValue(obj["description"])),
			Price:       knowledgePrice(obj["price"]),
			RecipeSteps: recipeSteps(obj),
			Content:     obj,
			Position:    len(entries),
		}
		if entry.Name == "" {
			entry.Name = humanizeKey(e.Key)
		}
		for _, kw := range stringList(obj["keywords"]) {
			if n := Normalize(kw); n != "" {
				entry.Keywords = append(entry.Keywords, n)
			}
		}
		entries = append(entries, entry)
	}
	return entries, warnings
}

// humanizeKey turns "fabric_conditioner_kit" into "Fabric Conditioner Kit".
func humanizeKey(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

func knowledgePrice(v any) KnowledgePrice {
	switch p := v.(type) {
	case map[string]any:
		unit := scalarString(p["kit_price"])
		if unit == "" {
			unit = scalarString(p["unit_price"])
		}
		if unit == "" {
			unit = scalarString(p["price"])
		}
		return KnowledgePrice{UnitPrice: unit, Yield: scalarString(p["yield"])}
	default:
		return KnowledgePrice{UnitPrice: scalarString(p)}
	}
}

// recipeSteps reads recipe.steps, falling back to a top-level steps list.
func recipeSteps(obj map[string]any) []RecipeStep {
	var list []any
	if recipe, ok := obj["recipe"].(map[string]any); ok {
		list, _ = recipe["steps"].([]any)
	}
	if list == nil {
		list, _ = obj["steps"].([]any)
	}

	steps := make([]RecipeStep, 0, len(list))
	for i, item := range list {
		step := RecipeStep{Number: i + 1}
		switch s := item.(type) {
		case string:
			step.Instruction = strings.TrimSpace(s)
		case map[string]any:
			if n, ok := s["step"].(float64); ok && n > 0 {
				step.Number = int(n)
			}
			step.Title = strings.TrimSpace(stringValue(s["title"]))
			step.Instruction = strings.TrimSpace(stringValue(s["instruction"]))
		default:
			continue
		}
		if step.Instruction == "" && step.Title == "" {
			continue
		}
		steps = append(steps, step)
	}
	return steps
}
