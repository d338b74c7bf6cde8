package pipeline

import (
	"context"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/tene/catalog-import/internal/metrics"
	"github.com/tene/catalog-import/internal/types"
)

// CollectBrands derives the brand set from product rows. Rows without a
// brand id, with id "0" or without a title are ignored; a later title for
// the same id wins. The result is sorted by id.
func CollectBrands(rows []types.LegacyProductRow) []types.Brand {
	byID := make(map[int32]string)
	for _, r := range rows {
		if r.Brand == "" || r.Brand == "0" || r.BrandTitle == "" {
			continue
		}
		id, err := strconv.ParseInt(r.Brand, 10, 32)
		if err != nil {
			log.Warn().Int("line", r.RowNumber).Str("brand", r.Brand).Msg("Ignoring unparseable brand id")
			continue
		}
		byID[int32(id)] = r.BrandTitle
	}

	brands := make([]types.Brand, 0, len(byID))
	for id, name := range byID {
		brands = append(brands, types.Brand{ID: id, Name: name})
	}
	sort.Slice(brands, func(i, j int) bool { return brands[i].ID < brands[j].ID })
	return brands
}

// ImportBrands writes brands straight to the database, keeping their legacy
// ids, then advances the id sequence past the highest one
func ImportBrands(ctx context.Context, store Store, rows []types.LegacyProductRow) *types.BrandsResult {
	brands := CollectBrands(rows)
	result := &types.BrandsResult{Found: len(brands)}

	for _, b := range brands {
		inserted, err := store.InsertBrand(ctx, b)
		if err != nil {
			log.Error().Err(err).Int32("brand_id", b.ID).Str("name", b.Name).Msg("Failed to insert brand")
			metrics.Brands.WithLabelValues(metrics.ResultFailed).Inc()
			result.Failed++
			continue
		}
		if inserted {
			metrics.Brands.WithLabelValues(metrics.ResultInserted).Inc()
			result.Inserted++
		} else {
			metrics.Brands.WithLabelValues(metrics.ResultExisting).Inc()
		}
	}

	if next, err := store.AdvanceBrandSequence(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to advance brand id sequence")
	} else {
		log.Debug().Int64("sequence", next).Msg("Brand id sequence advanced")
	}

	log.Info().Int("found", result.Found).Int("inserted", result.Inserted).Int("failed", result.Failed).Msg("Brands imported")
	return result
}
