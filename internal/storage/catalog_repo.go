package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-assistant/internal/catalog"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// CatalogRepo stores the raw catalog and knowledge documents. Category, product
// and knowledge order is preserved through the position columns.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo creates a new CatalogRepo.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// ReplaceCatalog replaces every stored category and product in one transaction.
// A category whose products value is a list is stored one product per row;
// any other products value stays inside the category body.
func (r *CatalogRepo) ReplaceCatalog(ctx context.Context, raw catalog.RawCatalog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
		return fmt.Errorf("failed to clear products: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM categories"); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}

	for pos, cat := range raw.Categories {
		body, products, hasList := splitCategory(cat.Value)
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode category %q: %w", cat.Key, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO categories (key, position, body, has_product_list) VALUES (?, ?, ?, ?)",
			cat.Key, pos, string(encoded), hasList,
		); err != nil {
			return fmt.Errorf("failed to insert category %q: %w", cat.Key, err)
		}

		for i, p := range products {
			encoded, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to encode product %d of %q: %w", i, cat.Key, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO products (category_key, position, body) VALUES (?, ?, ?)",
				cat.Key, i, string(encoded),
			); err != nil {
				return fmt.Errorf("failed to insert product %d of %q: %w", i, cat.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

// LoadCatalog rebuilds the raw catalog in stored order.
// Returns ErrNotFound when no catalog has been imported.
func (r *CatalogRepo) LoadCatalog(ctx context.Context) (catalog.RawCatalog, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT key, body, has_product_list FROM categories ORDER BY position",
	)
	if err != nil {
		return catalog.RawCatalog{}, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var (
		raw     catalog.RawCatalog
		hasList []bool
	)
	for rows.Next() {
		var (
			key, body string
			listed    bool
		)
		if err := rows.Scan(&key, &body, &listed); err != nil {
			return catalog.RawCatalog{}, fmt.Errorf("failed to scan category: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(body), &value); err != nil {
			return catalog.RawCatalog{}, fmt.Errorf("failed to decode category %q: %w", key, err)
		}
		raw.Categories = append(raw.Categories, catalog.RawCategory{Key: key, Value: value})
		hasList = append(hasList, listed)
	}
	if err := rows.Err(); err != nil {
		return catalog.RawCatalog{}, fmt.Errorf("failed to iterate categories: %w", err)
	}
	if len(raw.Categories) == 0 {
		return catalog.RawCatalog{}, ErrNotFound
	}

	for i, cat := range raw.Categories {
		if !hasList[i] {
			continue
		}
		obj, ok := cat.Value.(map[string]any)
		if !ok {
			continue
		}
		products, err := r.loadProducts(ctx, cat.Key)
		if err != nil {
			return catalog.RawCatalog{}, err
		}
		obj["products"] = products
	}

	return raw, nil
}

func (r *CatalogRepo) loadProducts(ctx context.Context, categoryKey string) ([]any, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT body FROM products WHERE category_key = ? ORDER BY position",
		categoryKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	products := make([]any, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(body), &value); err != nil {
			return nil, fmt.Errorf("failed to decode product of %q: %w", categoryKey, err)
		}
		products = append(products, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// ReplaceKnowledge replaces every stored knowledge entry in one transaction.
func (r *CatalogRepo) ReplaceKnowledge(ctx context.Context, raw catalog.RawKnowledge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM knowledge_entries"); err != nil {
		return fmt.Errorf("failed to clear knowledge: %w", err)
	}
	for pos, entry := range raw.Entries {
		encoded, err := json.Marshal(entry.Value)
		if err != nil {
			return fmt.Errorf("failed to encode knowledge entry %q: %w", entry.Key, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO knowledge_entries (key, position, body) VALUES (?, ?, ?)",
			entry.Key, pos, string(encoded),
		); err != nil {
			return fmt.Errorf("failed to insert knowledge entry %q: %w", entry.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit knowledge: %w", err)
	}
	return nil
}

// LoadKnowledge returns the stored knowledge entries in order. An empty table
// is not an error; the knowledge base is optional.
func (r *CatalogRepo) LoadKnowledge(ctx context.Context) (catalog.RawKnowledge, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT key, body FROM knowledge_entries ORDER BY position",
	)
	if err != nil {
		return catalog.RawKnowledge{}, fmt.Errorf("failed to query knowledge: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var raw catalog.RawKnowledge
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return catalog.RawKnowledge{}, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(body), &value); err != nil {
			return catalog.RawKnowledge{}, fmt.Errorf("failed to decode knowledge entry %q: %w", key, err)
		}
		raw.Entries = append(raw.Entries, catalog.RawEntry{Key: key, Value: value})
	}
	if err := rows.Err(); err != nil {
		return catalog.RawKnowledge{}, fmt.Errorf("failed to iterate knowledge: %w", err)
	}
	return raw, nil
}

// Info counts the imported rows.
func (r *CatalogRepo) Info(ctx context.Context) (CatalogInfo, error) {
	var (
		info      CatalogInfo
		updatedAt sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM categories),
		(SELECT COUNT(*) FROM products),
		(SELECT COUNT(*) FROM knowledge_entries),
		(SELECT MAX(updated_at) FROM categories)`,
	).Scan(&info.Categories, &info.Products, &info.KnowledgeEntries, &updatedAt)
	if err != nil {
		return CatalogInfo{}, fmt.Errorf("failed to count catalog rows: %w", err)
	}

	if updatedAt.Valid {
		// SQLite CURRENT_TIMESTAMP format, with RFC3339 as a fallback
		info.UpdatedAt, err = time.Parse("2006-01-02 15:04:05", updatedAt.String)
		if err != nil {
			info.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
		}
	}
	return info, nil
}

// splitCategory separates a list-valued "products" field from the rest of the
// category object.
func splitCategory(value any) (body any, products []any, hasList bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return value, nil, false
	}
	list, ok := obj["products"].([]any)
	if !ok {
		return obj, nil, false
	}
	rest := make(map[string]any, len(obj))
	for k, v := range obj {
		if k != "products" {
			rest[k] = v
		}
	}
	return rest, list, true
}
