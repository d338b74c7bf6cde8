package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tene/catalog-import/internal/idmap"
	"github.com/tene/catalog-import/internal/telemetry"
	"github.com/tene/catalog-import/internal/types"
)

// Options selects stages and tunes concurrency
type Options struct {
	SkipBrands         bool
	SkipCategories     bool
	SkipProducts       bool
	SkipImages         bool
	SkipCategoryImages bool
	// RebuildCategoryMap matches existing categories by slug when categories are skipped
	RebuildCategoryMap bool

	CategoryConcurrency int
	ImageConcurrency    int
	CategoryMaxPasses   int
}

// Inputs are the parsed legacy exports
type Inputs struct {
	Categories []types.LegacyCategoryRow
	// CategoryRowErrors counts category rows dropped while reading
	CategoryRowErrors int
	Products          []types.LegacyProductRow
}

// Deps are the collaborators a run talks to
type Deps struct {
	Store  Store
	API    CategoryAPI
	Images ImageUploader
}

// Run executes brands, categories and products (with images) in that order.
// Only missing collaborators are errors; everything else is counted.
func Run(ctx context.Context, deps Deps, in Inputs, opts Options) (*types.RunResult, error) {
	if err := validate(deps, opts); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()
	result := &types.RunResult{RunID: runID}
	ids := idmap.NewCategoryIDMap()

	ctx, span := telemetry.Tracer().Start(ctx, "catalog_import.run")
	span.SetAttributes(attribute.String("run.id", runID))
	defer span.End()

	// Every line logged during the run carries its id.
	prevLogger := log.Logger
	log.Logger = log.With().Str("run_id", runID).Logger()
	defer func() { log.Logger = prevLogger }()

	log.Info().Msg("Starting catalog import")

	if !opts.SkipBrands {
		stage(ctx, "brands", func(ctx context.Context) []attribute.KeyValue {
			result.Brands = ImportBrands(ctx, deps.Store, in.Products)
			return []attribute.KeyValue{
				attribute.Int("brands.found", result.Brands.Found),
				attribute.Int("brands.inserted", result.Brands.Inserted),
				attribute.Int("brands.failed", result.Brands.Failed),
			}
		})
	}

	if !opts.SkipCategories {
		stage(ctx, "categories", func(ctx context.Context) []attribute.KeyValue {
			importer := &CategoryImporter{
				API:         deps.API,
				IDs:         ids,
				Concurrency: opts.CategoryConcurrency,
				MaxPasses:   opts.CategoryMaxPasses,
			}
			if !opts.SkipCategoryImages {
				importer.Images = deps.Images
			}
			result.Categories = importer.Run(ctx, in.Categories)
			result.Categories.Skipped += in.CategoryRowErrors
			return []attribute.KeyValue{
				attribute.Int("categories.created", result.Categories.Created),
				attribute.Int("categories.failed", result.Categories.Failed),
				attribute.Int("categories.skipped", result.Categories.Skipped),
				attribute.Int("categories.images_uploaded", result.Categories.ImagesUploaded),
			}
		})
		log.Info().Str("mapping", formatMapping(ids)).Int("categories", ids.Len()).Msg("Category id mapping (old -> new)")
	}

	if !opts.SkipProducts {
		if opts.SkipCategories && opts.RebuildCategoryMap {
			matched, err := RebuildCategoryMap(ctx, deps.Store, in.Categories, ids)
			if err != nil {
				log.Error().Err(err).Msg("Failed to rebuild category mapping from database")
			} else {
				log.Info().Int("matched", matched).Int("rows", len(in.Categories)).Msg("Category mapping rebuilt from database")
			}
		}

		stage(ctx, "products", func(ctx context.Context) []attribute.KeyValue {
			importer := &ProductImporter{
				Store:    deps.Store,
				LinkCats: idmap.BuildLinkCatMap(in.Categories),
				IDs:      ids,
			}
			result.Products = importer.Run(ctx, in.Products)
			return []attribute.KeyValue{
				attribute.Int("products.inserted", result.Products.Inserted),
				attribute.Int("products.skipped", result.Products.Skipped),
				attribute.Int("products.linked", result.Products.Linked),
			}
		})

		if !opts.SkipImages {
			stage(ctx, "product_images", func(ctx context.Context) []attribute.KeyValue {
				result.Images = UploadProductImages(ctx, deps.Images, in.Products, opts.ImageConcurrency)
				return []attribute.KeyValue{
					attribute.Int("images.uploaded", result.Images.Uploaded),
					attribute.Int("images.failed", result.Images.Failed),
				}
			})
		}
	}

	result.CategoryMap = ids.Snapshot()
	log.Info().Dur("duration", time.Since(started)).Msg("Catalog import done")
	return result, nil
}

func validate(deps Deps, opts Options) error {
	if (!opts.SkipBrands || !opts.SkipProducts) && deps.Store == nil {
		return fmt.Errorf("database store required")
	}
	if !opts.SkipCategories && deps.API == nil {
		return fmt.Errorf("admin API client required for categories")
	}
	needsImages := (!opts.SkipCategories && !opts.SkipCategoryImages) || (!opts.SkipProducts && !opts.SkipImages)
	if needsImages && deps.Images == nil {
		return fmt.Errorf("image uploader required")
	}
	return nil
}

// stage runs fn inside its own span and records its duration
func stage(ctx context.Context, name string, fn func(ctx context.Context) []attribute.KeyValue) {
	ctx, span := telemetry.Tracer().Start(ctx, "catalog_import."+name)
	defer span.End()

	started := time.Now()
	span.SetAttributes(fn(ctx)...)
	elapsed := time.Since(started)
	telemetry.RecordStage(ctx, name, elapsed.Seconds())
	log.Debug().Str("stage", name).Dur("duration", elapsed).Msg("Stage finished")
}

func formatMapping(ids *idmap.CategoryIDMap) string {
	pairs := ids.Pairs()
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
