package lexical

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"catalog-assistant/internal/catalog"
)

// BoostRule adds Bonus when the query contains any QueryTerm and the product
// name contains any ProductTerm.
type BoostRule struct {
	QueryTerms   []string `yaml:"query_terms"`
	ProductTerms []string `yaml:"product_terms"`
	Bonus        float64  `yaml:"bonus"`
}

// BoostTable is the domain co-occurrence bonus configuration.
type BoostTable struct {
	Rules []BoostRule `yaml:"rules"`
}

// DefaultBoostTable returns the built-in household and chemical product boosts.
func DefaultBoostTable() BoostTable {
	return BoostTable{Rules: []BoostRule{
		{QueryTerms: []string{"broom", "brush", "sweep"}, ProductTerms: []string{"broom", "brush"}, Bonus: 3},
		{QueryTerms: []string{"clean", "cleaner", "cleaning"}, ProductTerms: []string{"clean", "cleaner"}, Bonus: 2},
		{QueryTerms: []string{"detergent", "liquid", "wash"}, ProductTerms: []string{"detergent", "liquid"}, Bonus: 3},
		{QueryTerms: []string{"fabric", "conditioner", "softener"}, ProductTerms: []string{"fabric", "conditioner"}, Bonus: 3},
		{QueryTerms: []string{"floor", "mop"}, ProductTerms: []string{"floor", "mop"}, Bonus: 3},
		{QueryTerms: []string{"dish", "utensil"}, ProductTerms: []string{"dish"}, Bonus: 3},
		{QueryTerms: []string{"phenyl", "disinfectant"}, ProductTerms: []string{"phenyl"}, Bonus: 3},
	}}
}

// LoadBoostTable reads a boost table from a YAML file.
func LoadBoostTable(path string) (BoostTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BoostTable{}, fmt.Errorf("failed to read boost table: %w", err)
	}

	var table BoostTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return BoostTable{}, fmt.Errorf("failed to parse boost table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return BoostTable{}, err
	}
	return table.normalized(), nil
}

// Validate rejects rules that could never fire or would lower a score.
func (t BoostTable) Validate() error {
	for i, rule := range t.Rules {
		if len(rule.QueryTerms) == 0 || len(rule.ProductTerms) == 0 {
			return fmt.Errorf("boost rule %d: query_terms and product_terms are required", i)
		}
		if rule.Bonus <= 0 {
			return fmt.Errorf("boost rule %d: bonus must be greater than 0", i)
		}
	}
	return nil
}

func (t BoostTable) normalized() BoostTable {
	out := BoostTable{Rules: make([]BoostRule, 0, len(t.Rules))}
	for _, rule := range t.Rules {
		out.Rules = append(out.Rules, BoostRule{
			QueryTerms:   normalizeTerms(rule.QueryTerms),
			ProductTerms: normalizeTerms(rule.ProductTerms),
			Bonus:        rule.Bonus,
		})
	}
	return out
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if n := catalog.Normalize(term); n != "" {
			out = append(out, n)
		}
	}
	return out
}
