package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Source identifies which retrieval path produced a ScoredResult.
type Source string

const (
	SourceLexical   Source = "lexical"
	SourceSemantic  Source = "semantic"
	SourceHybrid    Source = "hybrid"
	SourceKnowledge Source = "knowledge"
)

// unknownPrice is rendered whenever a product carries no usable price.
const unknownPrice = "N/A"

// Price is a product price. The zero value is the unknown sentinel.
type Price struct {
	Amount float64
	Known  bool
}

// KnownPrice returns a Price holding amount.
func KnownPrice(amount float64) Price {
	return Price{Amount: amount, Known: true}
}

// String renders the amount without trailing zeros, or "N/A" when unknown.
func (p Price) String() string {
	if !p.Known {
		return unknownPrice
	}
	return strconv.FormatFloat(p.Amount, 'f', -1, 64)
}

// MarshalJSON encodes a known price as a number and an unknown one as "N/A".
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Known {
		return json.Marshal(unknownPrice)
	}
	return json.Marshal(p.Amount)
}

// UnmarshalJSON accepts a number, a numeric string, or the "N/A" sentinel.
func (p *Price) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to decode price: %w", err)
	}
	*p = parsePrice(v)
	return nil
}

// ProductRecord is a flattened catalog product.
type ProductRecord struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CategoryKey  string   `json:"category_key"`
	CategoryName string   `json:"category"`
	Price        Price    `json:"price"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags,omitempty"`
	PackSize     string   `json:"pack_size,omitempty"`

	// SearchText is the normalized "name category description" string, built once.
	SearchText string `json:"-"`
	// Position is the record's insertion order within its catalog snapshot.
	Position int `json:"-"`

	nameNorm     string
	categoryNorm string
}

// NormalizedName returns the normalized product name.
func (r *ProductRecord) NormalizedName() string {
	if r.nameNorm == "" && r.Name != "" {
		return Normalize(r.Name)
	}
	return r.nameNorm
}

// NormalizedCategory returns the normalized category name.
func (r *ProductRecord) NormalizedCategory() string {
	if r.categoryNorm == "" && r.CategoryName != "" {
		return Normalize(r.CategoryName)
	}
	return r.categoryNorm
}

// Category summarizes one catalog category.
type Category struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}

// KnowledgePrice is the price block of a DIY kit.
type KnowledgePrice struct {
	UnitPrice string `json:"unit_price,omitempty"`
	Yield     string `json:"yield,omitempty"`
}

// Summary renders the price as "₹<unit> (makes <yield>)".
func (p KnowledgePrice) Summary() string {
	if p.UnitPrice == "" {
		return ""
	}
	unit := p.UnitPrice
	if !strings.HasPrefix(unit, "₹") {
		unit = "₹" + unit
	}
	if p.Yield == "" {
		return unit
	}
	return fmt.Sprintf("%s (makes %s)", unit, p.Yield)
}

// RecipeStep is one step of a knowledge entry recipe.
type RecipeStep struct {
	Number      int    `json:"step"`
	Title       string `json:"title,omitempty"`
	Instruction string `json:"instruction"`
}

// KnowledgeEntry is a structured how-to record such as a DIY kit recipe.
type KnowledgeEntry struct {
	Key         string         `json:"key"`
	Name        string         `json:"name"`
	Keywords    []string       `json:"keywords,omitempty"`
	Price       KnowledgePrice `json:"price"`
	Description string         `json:"description,omitempty"`
	RecipeSteps []RecipeStep   `json:"recipe_steps,omitempty"`

	// Content is the raw decoded entry, used for substring matching.
	Content  map[string]any `json:"-"`
	Position int            `json:"-"`
}

// ScoredResult pairs a product or knowledge entry with a score.
// Exactly one of Product and Knowledge is set.
type ScoredResult struct {
	Product      *ProductRecord  `json:"product,omitempty"`
	Knowledge    *KnowledgeEntry `json:"knowledge,omitempty"`
	Score        float64         `json:"score"`
	MatchReasons []string        `json:"match_reasons"`
	Source       Source          `json:"source"`
}

// Key identifies the underlying record across strategies.
func (r ScoredResult) Key() string {
	if r.Product != nil {
		return "product:" + r.Product.ID
	}
	if r.Knowledge != nil {
		return "knowledge:" + r.Knowledge.Key
	}
	return ""
}

// Position returns the insertion order of the underlying record.
func (r ScoredResult) Position() int {
	if r.Product != nil {
		return r.Product.Position
	}
	if r.Knowledge != nil {
		return r.Knowledge.Position
	}
	return 0
}
