package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IndexBuildError reports a structural violation in a raw catalog or knowledge document.
// Malformed individual products are not build errors; they are skipped with a warning.
type IndexBuildError struct {
	Reason string
	Err    error
}

func (e *IndexBuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index build: %s: %v", e.Reason, e.Err)
	}
	return "index build: " + e.Reason
}

func (e *IndexBuildError) Unwrap() error {
	return e.Err
}

// Index is an immutable, flattened catalog snapshot.
type Index struct {
	Records    []ProductRecord
	Categories []Category
	Warnings   []string
}

// Len returns the number of indexed products.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Records)
}

// Record returns the product with the given id.
func (idx *Index) Record(id string) (*ProductRecord, bool) {
	if idx == nil {
		return nil, false
	}
	for i := range idx.Records {
		if idx.Records[i].ID == id {
			return &idx.Records[i], true
		}
	}
	return nil, false
}

func (idx *Index) warnf(format string, args ...any) {
	idx.Warnings = append(idx.Warnings, fmt.Sprintf(format, args...))
}

// Build flattens raw categories into product records.
// It fails only when a category value is not an object.
func Build(raw RawCatalog) (*Index, error) {
	idx := &Index{}
	seen := make(map[string]struct{})

	for _, cat := range raw.Categories {
		obj, ok := cat.Value.(map[string]any)
		if !ok {
			return nil, &IndexBuildError{Reason: fmt.Sprintf("category %q is not an object", cat.Key)}
		}

		category := Category{Key: cat.Key, Name: stringValue(obj["name"])}
		if category.Name == "" {
			category.Name = cat.Key
		}

		var products []any
		switch v := obj["products"].(type) {
		case nil:
		case []any:
			products = v
		default:
			idx.warnf("category %q: products is not a list", cat.Key)
		}

		for i, p := range products {
			product, ok := p.(map[string]any)
			if !ok {
				idx.warnf("category %q: product %d is not an object", cat.Key, i)
				continue
			}
			rec, err := buildProduct(product, category)
			if err != nil {
				idx.warnf("category %q: product %d skipped: %v", cat.Key, i, err)
				continue
			}
			if _, dup := seen[rec.ID]; dup {
				idx.warnf("category %q: duplicate product id %q skipped", cat.Key, rec.ID)
				continue
			}
			seen[rec.ID] = struct{}{}
			rec.Position = len(idx.Records)
			idx.Records = append(idx.Records, rec)
			category.ProductCount++
		}

		idx.Categories = append(idx.Categories, category)
	}

	return idx, nil
}

func buildProduct(obj map[string]any, category Category) (ProductRecord, error) {
	id := idValue(obj["id"])
	if id == "" {
		return ProductRecord{}, fmt.Errorf("missing id")
	}
	name := strings.TrimSpace(stringValue(obj["name"]))
	if name == "" {
		return ProductRecord{}, fmt.Errorf("product %s has no name", id)
	}

	priceRaw, ok := obj["mrp"]
	if !ok {
		priceRaw = obj["price"]
	}

	rec := ProductRecord{
		ID:           id,
		Name:         name,
		CategoryKey:  category.Key,
		CategoryName: category.Name,
		Price:        parsePrice(priceRaw),
		Description:  strings.TrimSpace(stringValue(obj["description"])),
		Tags:         stringList(obj["tags"]),
		PackSize:     scalarString(obj["pack_size"]),
	}
	rec.nameNorm = Normalize(rec.Name)
	rec.categoryNorm = Normalize(rec.CategoryName)
	rec.SearchText = Normalize(strings.Join([]string{rec.Name, rec.CategoryName, rec.Description}, " "))
	return rec, nil
}

// parsePrice accepts numbers and numeric strings such as "₹120" or "1,250.50".
func parsePrice(v any) Price {
	switch p := v.(type) {
	case float64:
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return Price{}
		}
		return KnownPrice(p)
	case int:
		if p < 0 {
			return Price{}
		}
		return KnownPrice(float64(p))
	case string:
		s := strings.TrimSpace(p)
		s = strings.TrimPrefix(s, "₹")
		s = strings.TrimPrefix(s, "Rs.")
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return Price{}
		}
		return KnownPrice(f)
	default:
		return Price{}
	}
}

func idValue(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// scalarString renders strings and numbers; other values give "".
func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := scalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
