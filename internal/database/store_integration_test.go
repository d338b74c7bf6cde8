package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tene/catalog-import/internal/types"
)

const testSchema = `
	CREATE TABLE brands (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);
	CREATE TABLE categories (
		id SERIAL PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE
	);
	CREATE TABLE products (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		price DOUBLE PRECISION NOT NULL DEFAULT 0,
		discount DOUBLE PRECISION NOT NULL DEFAULT 0,
		quantity INTEGER NOT NULL DEFAULT 0,
		specifications JSONB NOT NULL DEFAULT '{}'::jsonb,
		brand_id INTEGER REFERENCES brands(id),
		warranty TEXT,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	);
	CREATE TABLE product_categories (
		product_id INTEGER NOT NULL REFERENCES products(id),
		category_id INTEGER NOT NULL REFERENCES categories(id),
		PRIMARY KEY (product_id, category_id)
	);
`

// setupIntegrationDB starts a throwaway postgres with the tables the store writes to
func setupIntegrationDB(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Connect(ctx, connStr, PoolOptions{MaxConns: 4, MinConns: 1}))
	t.Cleanup(Close)
	require.NoError(t, Status(ctx))
	pool := Pool()

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)
	return pool
}

func TestStoreIntegration(t *testing.T) {
	ctx := context.Background()
	pool := setupIntegrationDB(ctx, t)
	store := NewStore(pool)

	t.Run("brands keep legacy ids and advance the sequence", func(t *testing.T) {
		inserted, err := store.InsertBrand(ctx, types.Brand{ID: 40, Name: "Acme"})
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = store.InsertBrand(ctx, types.Brand{ID: 41, Name: "Acme"})
		require.NoError(t, err)
		assert.False(t, inserted)

		next, err := store.AdvanceBrandSequence(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(40), next)

		var id int32
		require.NoError(t, pool.QueryRow(ctx, `INSERT INTO brands (name) VALUES ('Fresh') RETURNING id`).Scan(&id))
		assert.Equal(t, int32(41), id)
	})

	t.Run("upsert keeps curated brand and warranty", func(t *testing.T) {
		first := types.Product{ID: 1, Name: "Phone", BrandID: types.Int32Ptr(40), Warranty: types.StringPtr("2 years"), Enabled: true}
		require.NoError(t, store.UpsertProduct(ctx, first))

		second := types.Product{ID: 1, Name: "Phone", Enabled: false}
		require.NoError(t, store.UpsertProduct(ctx, second))

		var (
			brandID  *int32
			warranty *string
			enabled  bool
		)
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT brand_id, warranty, enabled FROM products WHERE id = 1`,
		).Scan(&brandID, &warranty, &enabled))

		require.NotNil(t, brandID)
		assert.Equal(t, int32(40), *brandID)
		require.NotNil(t, warranty)
		assert.Equal(t, "2 years", *warranty)
		assert.False(t, enabled)
	})

	t.Run("linking twice adds one row", func(t *testing.T) {
		var categoryID int32
		require.NoError(t, pool.QueryRow(ctx, `INSERT INTO categories (slug) VALUES ('phones') RETURNING id`).Scan(&categoryID))

		added, err := store.LinkProductCategory(ctx, 1, categoryID)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = store.LinkProductCategory(ctx, 1, categoryID)
		require.NoError(t, err)
		assert.False(t, added)

		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM product_categories`).Scan(&n))
		assert.Equal(t, 1, n)

		slugs, err := store.CategorySlugs(ctx)
		require.NoError(t, err)
		assert.Equal(t, categoryID, slugs["phones"])
	})

	stats := Stats()
	require.NotNil(t, stats)
	assert.Positive(t, stats.AcquireCount())
	assert.LessOrEqual(t, stats.MaxConns(), int32(4))
}
