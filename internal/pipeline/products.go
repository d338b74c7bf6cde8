package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tene/catalog-import/internal/idmap"
	"github.com/tene/catalog-import/internal/metrics"
	"github.com/tene/catalog-import/internal/normalize"
	"github.com/tene/catalog-import/internal/types"
)

// ErrEmptyName marks a product row without a title
var ErrEmptyName = errors.New("product has no name")

// BuildProduct normalizes a legacy row into a destination product. Only an
// unresolvable id or an empty name reject the row; bad numbers fall back to 0.
func BuildProduct(row types.LegacyProductRow) (types.Product, error) {
	id, err := normalize.ParseProductID(row.Code, row.ID)
	if err != nil {
		return types.Product{}, err
	}
	if row.Title == "" {
		return types.Product{}, ErrEmptyName
	}

	discount, ok := normalize.ParseDecimal(row.SalePercent)
	if !ok {
		log.Warn().Int("line", row.RowNumber).Str("sale_percent", row.SalePercent).Msg("Unparseable sale_percent, using 0")
	}
	quantity, ok := normalize.ParseQuantity(row.Stock)
	if !ok {
		log.Warn().Int("line", row.RowNumber).Str("stock", row.Stock).Msg("Unparseable stock, using 0")
	}
	brandID, ok := normalize.ParseBrandID(row.Brand)
	if !ok {
		log.Warn().Int("line", row.RowNumber).Str("brand", row.Brand).Msg("Unparseable brand id, leaving product without brand")
	}

	return types.Product{
		ID:          id,
		Name:        row.Title,
		Description: types.StringPtr(row.Text),
		Price:       normalize.RepairPrice(row.Price),
		Discount:    discount,
		Quantity:    quantity,
		BrandID:     brandID,
		Warranty:    normalize.ParseWarranty(row.GuaranteeAmount, row.GuaranteeType),
		Enabled:     row.Active == "1",
	}, nil
}

// ProductImporter upserts products one at a time and links each to the
// destination category its join keys resolve to
type ProductImporter struct {
	Store    Store
	LinkCats idmap.LinkCatMap
	IDs      *idmap.CategoryIDMap
}

// Run processes rows strictly in order. Row failures are logged and counted.
func (p *ProductImporter) Run(ctx context.Context, rows []types.LegacyProductRow) *types.ProductsResult {
	result := &types.ProductsResult{Total: len(rows)}
	log.Info().Int("rows", len(rows)).Msg("Importing products")

	canLink := p.IDs != nil && p.IDs.Len() > 0
	if !canLink {
		log.Warn().Msg("No category mapping available, products will not be assigned categories")
	}

	for _, row := range rows {
		product, err := BuildProduct(row)
		if err != nil {
			log.Warn().Err(err).Int("line", row.RowNumber).Str("code", row.Code).Str("id", row.ID).Msg("Skipping product row")
			metrics.Products.WithLabelValues(metrics.ResultSkipped).Inc()
			result.Skipped++
			continue
		}

		if err := p.Store.UpsertProduct(ctx, product); err != nil {
			log.Error().Err(err).Int32("product_id", product.ID).Str("name", product.Name).Msg("Failed to upsert product")
			metrics.Products.WithLabelValues(metrics.ResultSkipped).Inc()
			result.Skipped++
			continue
		}
		metrics.Products.WithLabelValues(metrics.ResultInserted).Inc()
		result.Inserted++

		if !canLink {
			result.Unlinked++
			metrics.ProductLinks.WithLabelValues(metrics.ResultUnlinked).Inc()
			continue
		}
		p.link(ctx, product.ID, row, result)
	}

	log.Info().
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Int("linked", result.Linked).
		Int("unlinked", result.Unlinked).
		Int("link_failed", result.LinkFailed).
		Msg("Products imported")
	return result
}

func (p *ProductImporter) link(ctx context.Context, productID int32, row types.LegacyProductRow, result *types.ProductsResult) {
	oldID, ok := p.LinkCats.Resolve(row.CategoryKeys()...)
	if !ok {
		result.Unlinked++
		metrics.ProductLinks.WithLabelValues(metrics.ResultUnlinked).Inc()
		return
	}
	newID, ok := p.IDs.Get(oldID)
	if !ok {
		log.Debug().Int32("product_id", productID).Int32("category_id", oldID).Msg("Category was not imported, product left unlinked")
		result.Unlinked++
		metrics.ProductLinks.WithLabelValues(metrics.ResultUnlinked).Inc()
		return
	}

	if _, err := p.Store.LinkProductCategory(ctx, productID, newID); err != nil {
		log.Error().Err(err).Int32("product_id", productID).Int32("category_id", newID).Msg("Failed to assign product category")
		result.LinkFailed++
		metrics.ProductLinks.WithLabelValues(metrics.ResultFailed).Inc()
		return
	}
	result.Linked++
	metrics.ProductLinks.WithLabelValues(metrics.ResultLinked).Inc()
}
