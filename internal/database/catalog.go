package database

import (
	"context"

	"github.com/google/uuid"
)

const listCategories = `
SELECT id, name, sort_order, is_active, created_at, updated_at
FROM categories
WHERE is_active = true
ORDER BY sort_order, name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

const productColumns = `id, category_id, name, price, is_active, sort_order, created_at, updated_at`

const listActiveProducts = `
SELECT ` + productColumns + `
FROM products
WHERE is_active = true
ORDER BY sort_order, name
`

func (q *Queries) ListActiveProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listActiveProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

const getProductsByIDs = `
SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1::uuid[])
`

// GetProductsByIDs batch-resolves products for order capture.
func (q *Queries) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, getProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

const getModifiersByIDs = `
SELECT id, name, price_override, is_active, created_at, updated_at
FROM modifiers
WHERE id = ANY($1::uuid[])
`

func (q *Queries) GetModifiersByIDs(ctx context.Context, ids []uuid.UUID) ([]Modifier, error) {
	rows, err := q.db.Query(ctx, getModifiersByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Modifier
	for rows.Next() {
		var m Modifier
		if err := rows.Scan(&m.ID, &m.Name, &m.PriceOverride, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func scanProducts(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Product, error) {
	var result []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Price, &p.IsActive, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
