package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tene/catalog-import/internal/idmap"
	"github.com/tene/catalog-import/internal/metrics"
	"github.com/tene/catalog-import/internal/normalize"
	"github.com/tene/catalog-import/internal/types"
)

// categoryState is the outcome of one row's creation attempt
type categoryState int

const (
	categoryCreated categoryState = iota
	categoryFailed
	// parent has no destination id yet
	categoryParentMissing
)

type categoryOutcome struct {
	state         categoryState
	imageUploaded bool
	imageFailed   bool
}

// CategorySlug is the explicit seo value, or the slugified title
func CategorySlug(row types.LegacyCategoryRow) string {
	if row.Seo != "" {
		return row.Seo
	}
	return normalize.Slugify(row.Title)
}

// CategoryPayload builds the create request for a row
func CategoryPayload(row types.LegacyCategoryRow, parentID *int32) types.CategoryPayload {
	return types.CategoryPayload{
		Name:         row.Title,
		Slug:         CategorySlug(row),
		Description:  types.StringPtr(row.SeoBottomText),
		DisplayOrder: row.Sort,
		ParentID:     parentID,
		Enabled:      true,
	}
}

// CategoryImporter creates the category tree through the admin API and
// records each legacy id's destination id
type CategoryImporter struct {
	API CategoryAPI
	// Images is nil when category images are skipped
	Images      ImageUploader
	IDs         *idmap.CategoryIDMap
	Concurrency int
	// MaxPasses bounds how often children with a not yet created parent are retried
	MaxPasses int

	mu     sync.Mutex
	failed map[int32]bool
}

// Run creates roots one at a time in input order, then children under the
// concurrency cap. No failure stops the batch.
func (c *CategoryImporter) Run(ctx context.Context, rows []types.LegacyCategoryRow) *types.CategoriesResult {
	c.failed = make(map[int32]bool)
	result := &types.CategoriesResult{}

	var roots, children []types.LegacyCategoryRow
	known := make(map[int32]bool, len(rows))
	for _, r := range rows {
		known[r.ID] = true
		if r.IsRoot() {
			roots = append(roots, r)
		} else {
			children = append(children, r)
		}
	}

	log.Info().Int("roots", len(roots)).Int("children", len(children)).Msg("Importing categories")

	// Roots are sequential so the id map is complete before any child reads it
	for _, r := range roots {
		c.tally(result, c.create(ctx, r))
	}

	pending := children
	maxPasses := c.MaxPasses
	if maxPasses < 1 {
		maxPasses = 1
	}

	for pass := 1; len(pending) > 0 && pass <= maxPasses; pass++ {
		result.Passes = pass
		outcomes := c.runPass(ctx, pending)

		var retry []types.LegacyCategoryRow
		createdThisPass := 0
		for i, o := range outcomes {
			if o.state == categoryCreated {
				createdThisPass++
			}
			if o.state == categoryParentMissing && pass < maxPasses && c.retryable(pending[i], known) {
				retry = append(retry, pending[i])
				continue
			}
			c.tally(result, o)
			if o.state == categoryParentMissing {
				c.logParentMissing(pending[i])
			}
		}

		if createdThisPass == 0 && len(retry) > 0 {
			// nothing new to hang the remaining rows on
			for _, r := range retry {
				c.tally(result, categoryOutcome{state: categoryParentMissing})
				c.logParentMissing(r)
			}
			retry = nil
		}
		if len(retry) > 0 {
			log.Info().Int("pass", pass).Int("retrying", len(retry)).Msg("Retrying categories whose parent was created later")
		}
		pending = retry
	}

	log.Info().
		Int("created", result.Created).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Int("images_uploaded", result.ImagesUploaded).
		Int("images_failed", result.ImagesFailed).
		Msg("Categories imported")
	return result
}

func (c *CategoryImporter) runPass(ctx context.Context, rows []types.LegacyCategoryRow) []categoryOutcome {
	limit := c.Concurrency
	if limit < 1 {
		limit = 1
	}

	outcomes := make([]categoryOutcome, len(rows))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, r := range rows {
		g.Go(func() error {
			outcomes[i] = c.create(ctx, r)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// retryable reports whether a later pass could still find the row's parent
func (c *CategoryImporter) retryable(row types.LegacyCategoryRow, known map[int32]bool) bool {
	if !known[row.ParentID] {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.failed[row.ParentID]
}

func (c *CategoryImporter) create(ctx context.Context, row types.LegacyCategoryRow) categoryOutcome {
	var parentID *int32
	if !row.IsRoot() {
		id, ok := c.IDs.Get(row.ParentID)
		if !ok {
			return categoryOutcome{state: categoryParentMissing}
		}
		parentID = &id
	}

	newID, err := c.API.CreateCategory(ctx, CategoryPayload(row, parentID))
	if err != nil {
		log.Error().Err(err).Str("name", row.Title).Int32("id", row.ID).Msg("Failed to create category")
		c.mu.Lock()
		c.failed[row.ID] = true
		c.mu.Unlock()
		return categoryOutcome{state: categoryFailed}
	}

	if !c.IDs.SetIfAbsent(row.ID, newID) {
		kept, _ := c.IDs.Get(row.ID)
		log.Warn().Str("name", row.Title).Int32("old_id", row.ID).Int32("new_id", newID).Int32("kept_id", kept).
			Msg("Duplicate legacy category id, keeping the first mapping")
	}
	log.Debug().Str("name", row.Title).Int32("old_id", row.ID).Int32("new_id", newID).Msg("Category created")

	out := categoryOutcome{state: categoryCreated}
	if row.Photo != "" && c.Images != nil {
		if err := c.Images.UploadCategoryImage(ctx, newID, row.Photo); err != nil {
			log.Warn().Err(err).Int32("category_id", newID).Str("photo", row.Photo).Msg("Failed to upload category image")
			metrics.Images.WithLabelValues("category", metrics.ResultFailed).Inc()
			out.imageFailed = true
		} else {
			log.Debug().Int32("category_id", newID).Msg("Category image uploaded")
			metrics.Images.WithLabelValues("category", metrics.ResultUploaded).Inc()
			out.imageUploaded = true
		}
	}
	return out
}

func (c *CategoryImporter) tally(result *types.CategoriesResult, o categoryOutcome) {
	switch o.state {
	case categoryCreated:
		result.Created++
		metrics.Categories.WithLabelValues(metrics.ResultCreated).Inc()
	case categoryFailed:
		result.Failed++
		metrics.Categories.WithLabelValues(metrics.ResultFailed).Inc()
	case categoryParentMissing:
		result.Skipped++
		metrics.Categories.WithLabelValues(metrics.ResultSkipped).Inc()
	}
	if o.imageUploaded {
		result.ImagesUploaded++
	}
	if o.imageFailed {
		result.ImagesFailed++
	}
}

func (c *CategoryImporter) logParentMissing(row types.LegacyCategoryRow) {
	log.Warn().Str("name", row.Title).Int32("id", row.ID).Int32("parent_id", row.ParentID).Msg("Skipping category, parent not found")
}

// RebuildCategoryMap fills ids from categories already in the database by
// matching each row's slug. It returns the number of rows matched.
func RebuildCategoryMap(ctx context.Context, store Store, rows []types.LegacyCategoryRow, ids *idmap.CategoryIDMap) (int, error) {
	slugs, err := store.CategorySlugs(ctx)
	if err != nil {
		return 0, err
	}

	matched := 0
	for _, r := range rows {
		if id, ok := slugs[CategorySlug(r)]; ok {
			ids.Set(r.ID, id)
			matched++
		}
	}
	return matched, nil
}
