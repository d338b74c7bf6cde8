package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tene/catalog-import/internal/storage"
	"github.com/tene/catalog-import/internal/types"
)

func TestInspectCategories(t *testing.T) {
	stats := InspectCategories([]types.LegacyCategoryRow{
		{ID: 1, Title: "Root", Photo: "root.png", LinkCat: "10"},
		{ID: 2, ParentID: 1, Title: "Child", LinkCat: "0"},
		{ID: 3, ParentID: 2, Title: "Grandchild", LinkCat: "30"},
		{ID: 4, ParentID: 99, Title: "Orphan"},
		{ID: 5, ParentID: 6, Title: "Loop A"},
		{ID: 6, ParentID: 5, Title: "Loop B"},
	}, 2)

	assert.Equal(t, &CategoryStats{
		Rows:          8,
		InvalidRows:   2,
		Roots:         1,
		Children:      5,
		MissingParent: 1,
		MaxDepth:      3,
		WithPhotos:    1,
		LinkKeys:      2,
	}, stats)
}

func TestInspectProducts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.jpg"), []byte("d"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unused.png"), []byte("u"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "old"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old", "x.jpg"), []byte("x"), 0o644))
	images, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	categories := []types.LegacyCategoryRow{{ID: 1, Title: "Root", LinkCat: "10"}}
	rows := []types.LegacyProductRow{
		{ID: "1", Code: "P-1", Title: "A", Photo: "./a.jpg", Category: "10", Brand: "3", BrandTitle: "Acme"},
		{ID: "2", Code: "P-2", Title: "B", Photo: "b.jpg", Parent: "10"},
		{ID: "3", Code: "P-3", Category: "77"},
		{Code: "none", Title: "D", Photo: "d.jpg"},
	}

	stats, err := InspectProducts(context.Background(), rows, categories, images)
	require.NoError(t, err)
	assert.Equal(t, &ProductStats{
		Rows:               4,
		UnresolvableIDs:    1,
		EmptyNames:         1,
		Brands:             1,
		WithPhotos:         2,
		MissingPhotos:      1,
		Linkable:           2,
		UnreferencedImages: 2,
		UnreferencedKeys:   []string{"old/x.jpg", "unused.png"},
	}, stats)

	stats, err = InspectProducts(context.Background(), rows, categories, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, stats.MissingPhotos)
	assert.Equal(t, -1, stats.UnreferencedImages)
	assert.Nil(t, stats.UnreferencedKeys)
}
