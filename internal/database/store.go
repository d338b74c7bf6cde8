package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tene/catalog-import/internal/types"
)

// DBTX is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store writes brands, products and product-category links directly to the
// destination database
type Store struct {
	db DBTX
}

// NewStore wraps a pool or mock
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

const insertBrandSQL = `
	INSERT INTO brands (id, name)
	VALUES ($1, $2)
	ON CONFLICT (name) DO NOTHING
`

// InsertBrand inserts a brand with its legacy id unless a brand with the same
// name exists. It reports whether a row was inserted.
func (s *Store) InsertBrand(ctx context.Context, b types.Brand) (bool, error) {
	tag, err := s.db.Exec(ctx, insertBrandSQL, b.ID, b.Name)
	if err != nil {
		return false, fmt.Errorf("insert brand %d %q: %w", b.ID, b.Name, err)
	}
	return tag.RowsAffected() > 0, nil
}

const advanceBrandSequenceSQL = `SELECT setval('brands_id_seq', (SELECT COALESCE(MAX(id), 1) FROM brands))`

// AdvanceBrandSequence moves the brand id sequence past the highest stored id
// so later inserts do not collide with carried-over ids
func (s *Store) AdvanceBrandSequence(ctx context.Context) (int64, error) {
	var next int64
	if err := s.db.QueryRow(ctx, advanceBrandSequenceSQL).Scan(&next); err != nil {
		return 0, fmt.Errorf("advance brands_id_seq: %w", err)
	}
	return next, nil
}

// brand_id and warranty only move from null to a value; enabled always follows the export
const upsertProductSQL = `
	INSERT INTO products (id, name, description, price, discount, quantity, specifications, brand_id, warranty, enabled)
	VALUES ($1, $2, $3, $4, $5, $6, '{}'::jsonb, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		brand_id = COALESCE(EXCLUDED.brand_id, products.brand_id),
		warranty = COALESCE(EXCLUDED.warranty, products.warranty),
		enabled = EXCLUDED.enabled
`

// UpsertProduct inserts a product or merges it into the existing row
func (s *Store) UpsertProduct(ctx context.Context, p types.Product) error {
	_, err := s.db.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Discount, p.Quantity,
		p.BrandID, p.Warranty, p.Enabled,
	)
	if err != nil {
		return fmt.Errorf("upsert product %d: %w", p.ID, err)
	}
	return nil
}

const linkProductCategorySQL = `
	INSERT INTO product_categories (product_id, category_id)
	VALUES ($1, $2)
	ON CONFLICT DO NOTHING
`

// LinkProductCategory links a product to a destination category. Linking an
// existing pair is a no-op; the result reports whether a row was added.
func (s *Store) LinkProductCategory(ctx context.Context, productID, categoryID int32) (bool, error) {
	tag, err := s.db.Exec(ctx, linkProductCategorySQL, productID, categoryID)
	if err != nil {
		return false, fmt.Errorf("link product %d to category %d: %w", productID, categoryID, err)
	}
	return tag.RowsAffected() > 0, nil
}

const categorySlugsSQL = `SELECT id, slug FROM categories`

// CategorySlugs returns destination category ids keyed by slug
func (s *Store) CategorySlugs(ctx context.Context) (map[string]int32, error) {
	rows, err := s.db.Query(ctx, categorySlugsSQL)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int32)
	for rows.Next() {
		var (
			id   int32
			slug string
		)
		if err := rows.Scan(&id, &slug); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out[slug] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}
