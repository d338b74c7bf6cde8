package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tene/catalog-import/internal/idmap"
	"github.com/tene/catalog-import/internal/types"
)

func TestCategoryPayload(t *testing.T) {
	parent := int32(1000)

	p := CategoryPayload(types.LegacyCategoryRow{Title: "Mobile Phones", Sort: 3}, &parent)
	assert.Equal(t, "Mobile Phones", p.Name)
	assert.Equal(t, "mobile-phones", p.Slug)
	assert.Nil(t, p.Description)
	assert.Equal(t, int32(3), p.DisplayOrder)
	assert.Equal(t, &parent, p.ParentID)
	assert.True(t, p.Enabled)

	p = CategoryPayload(types.LegacyCategoryRow{Title: "Phones", Seo: "telefonebi", SeoBottomText: "All phones"}, nil)
	assert.Equal(t, "telefonebi", p.Slug)
	require.NotNil(t, p.Description)
	assert.Equal(t, "All phones", *p.Description)
	assert.Nil(t, p.ParentID)
}

func TestCategoryImporterRootAndChild(t *testing.T) {
	e := newEnv(t, nil)
	ids := idmap.NewCategoryIDMap()

	importer := &CategoryImporter{API: e.api, IDs: ids, Concurrency: 10, MaxPasses: 1}
	result := importer.Run(context.Background(), []types.LegacyCategoryRow{
		{ID: 10, ParentID: 0, Title: "Electronics"},
		{ID: 11, ParentID: 10, Title: "Phones"},
	})

	assert.Equal(t, 2, result.Created)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Skipped)

	electronics, ok := e.server.CategoryByName("Electronics")
	require.True(t, ok)
	phones, ok := e.server.CategoryByName("Phones")
	require.True(t, ok)

	assert.Nil(t, electronics.ParentID)
	require.NotNil(t, phones.ParentID)
	assert.Equal(t, electronics.ID, *phones.ParentID)
	assert.NotEqual(t, int32(10), electronics.ID)
	assert.NotEqual(t, int32(11), phones.ID)

	newID, ok := ids.Get(11)
	require.True(t, ok)
	assert.Equal(t, phones.ID, newID)
}

func TestCategoryImporterDuplicateLegacyIDKeepsFirstMapping(t *testing.T) {
	e := newEnv(t, nil)
	ids := idmap.NewCategoryIDMap()

	importer := &CategoryImporter{API: e.api, IDs: ids, Concurrency: 10, MaxPasses: 1}
	result := importer.Run(context.Background(), []types.LegacyCategoryRow{
		{ID: 10, Title: "Electronics"},
		{ID: 10, Title: "Gadgets"},
		{ID: 11, ParentID: 10, Title: "Phones"},
	})

	assert.Equal(t, 3, result.Created)

	electronics, ok := e.server.CategoryByName("Electronics")
	require.True(t, ok)
	gadgets, ok := e.server.CategoryByName("Gadgets")
	require.True(t, ok)
	phones, ok := e.server.CategoryByName("Phones")
	require.True(t, ok)

	mapped, ok := ids.Get(10)
	require.True(t, ok)
	assert.Equal(t, electronics.ID, mapped)
	assert.NotEqual(t, gadgets.ID, mapped)
	require.NotNil(t, phones.ParentID)
	assert.Equal(t, electronics.ID, *phones.ParentID)
}

func TestCategoryImporterSkipsOrphansAndChildrenOfFailures(t *testing.T) {
	e := newEnv(t, nil)
	e.server.FailCategory = func(p types.CategoryPayload) int {
		if p.Name == "Broken" {
			return http.StatusInternalServerError
		}
		return 0
	}
	ids := idmap.NewCategoryIDMap()

	importer := &CategoryImporter{API: e.api, IDs: ids, Concurrency: 4, MaxPasses: 3}
	result := importer.Run(context.Background(), []types.LegacyCategoryRow{
		{ID: 1, Title: "Broken"},
		{ID: 2, Title: "Fine"},
		{ID: 3, ParentID: 1, Title: "Child of broken"},
		{ID: 4, ParentID: 99, Title: "Orphan"},
		{ID: 5, ParentID: 2, Title: "Child of fine"},
	})

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, result.Passes, "rows whose parent failed or does not exist are not retried")

	for _, id := range []int32{1, 3, 4} {
		_, ok := ids.Get(id)
		assert.False(t, ok, "legacy id %d must not be mapped", id)
	}
	_, ok := e.server.CategoryByName("Orphan")
	assert.False(t, ok)
}

func TestCategoryImporterThreeTiers(t *testing.T) {
	rows := []types.LegacyCategoryRow{
		{ID: 1, Title: "Root"},
		{ID: 3, ParentID: 2, Title: "Grandchild"},
		{ID: 2, ParentID: 1, Title: "Child"},
	}

	t.Run("single pass drops the grandchild", func(t *testing.T) {
		e := newEnv(t, nil)
		ids := idmap.NewCategoryIDMap()

		result := (&CategoryImporter{API: e.api, IDs: ids, Concurrency: 1, MaxPasses: 1}).Run(context.Background(), rows)

		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 1, result.Skipped)
		_, ok := e.server.CategoryByName("Grandchild")
		assert.False(t, ok)
	})

	t.Run("second pass creates it under the right parent", func(t *testing.T) {
		e := newEnv(t, nil)
		ids := idmap.NewCategoryIDMap()

		result := (&CategoryImporter{API: e.api, IDs: ids, Concurrency: 1, MaxPasses: 2}).Run(context.Background(), rows)

		assert.Equal(t, 3, result.Created)
		assert.Zero(t, result.Skipped)
		assert.Equal(t, 2, result.Passes)

		child, ok := e.server.CategoryByName("Child")
		require.True(t, ok)
		grandchild, ok := e.server.CategoryByName("Grandchild")
		require.True(t, ok)
		require.NotNil(t, grandchild.ParentID)
		assert.Equal(t, child.ID, *grandchild.ParentID)
	})
}

func TestCategoryImporterNeverUsesLegacyParentIDs(t *testing.T) {
	e := newEnv(t, nil)
	ids := idmap.NewCategoryIDMap()

	rows := []types.LegacyCategoryRow{{ID: 1, Title: "Root"}}
	for i := int32(2); i < 40; i++ {
		parent := int32(1)
		if i > 20 {
			parent = i - 19 // a child of an earlier child
		}
		rows = append(rows, types.LegacyCategoryRow{ID: i, ParentID: parent, Title: fmt.Sprintf("Node %d", i)})
	}

	(&CategoryImporter{API: e.api, IDs: ids, Concurrency: 10, MaxPasses: 1}).Run(context.Background(), rows)

	for _, c := range e.server.Categories() {
		if c.ParentID == nil {
			continue
		}
		// every recorded parent is a destination id the server issued
		found := false
		for _, other := range e.server.Categories() {
			if other.ID == *c.ParentID {
				found = true
			}
		}
		assert.True(t, found, "%s has parent %d that the API never issued", c.Name, *c.ParentID)
	}
}

func TestCategoryImporterConcurrencyCap(t *testing.T) {
	e := newEnv(t, nil)
	e.server.Delay = 20 * time.Millisecond
	ids := idmap.NewCategoryIDMap()

	rows := []types.LegacyCategoryRow{{ID: 1, Title: "Root"}}
	for i := int32(2); i <= 41; i++ {
		rows = append(rows, types.LegacyCategoryRow{ID: i, ParentID: 1, Title: fmt.Sprintf("Child %d", i)})
	}

	result := (&CategoryImporter{API: e.api, IDs: ids, Concurrency: 10, MaxPasses: 1}).Run(context.Background(), rows)

	assert.Equal(t, 41, result.Created)
	assert.LessOrEqual(t, e.server.MaxInFlight(), 10)
	assert.Greater(t, e.server.MaxInFlight(), 1)
}

func TestCategoryImporterImages(t *testing.T) {
	e := newEnv(t, nil)
	ids := idmap.NewCategoryIDMap()

	importer := &CategoryImporter{API: e.api, Images: e.uploader, IDs: ids, Concurrency: 2, MaxPasses: 1}
	result := importer.Run(context.Background(), []types.LegacyCategoryRow{
		{ID: 10, Title: "Electronics", Photo: "electronics.png"},
		{ID: 11, ParentID: 10, Title: "Phones", Photo: "missing.jpg"},
		{ID: 12, ParentID: 10, Title: "Cables"},
	})

	assert.Equal(t, 3, result.Created, "image failures do not undo a created category")
	assert.Equal(t, 1, result.ImagesUploaded)
	assert.Equal(t, 1, result.ImagesFailed)

	electronics, _ := e.server.CategoryByName("Electronics")
	up, ok := e.server.Upload(fmt.Sprintf("categories/%d", electronics.ID))
	require.True(t, ok)
	assert.Equal(t, "legacy:/electronics.png", string(up.Data))
	assert.Equal(t, "image/png", up.ContentType)
}

func TestRebuildCategoryMap(t *testing.T) {
	store := newMemStore()
	store.slugs["electronics"] = 501
	store.slugs["telefonebi"] = 502

	ids := idmap.NewCategoryIDMap()
	matched, err := RebuildCategoryMap(context.Background(), store, []types.LegacyCategoryRow{
		{ID: 10, Title: "Electronics"},
		{ID: 11, ParentID: 10, Title: "Phones", Seo: "telefonebi"},
		{ID: 12, ParentID: 10, Title: "Unknown"},
	}, ids)
	require.NoError(t, err)

	assert.Equal(t, 2, matched)
	assert.Equal(t, map[int32]int32{10: 501, 11: 502}, ids.Snapshot())
}
