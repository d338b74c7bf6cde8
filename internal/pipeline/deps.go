// Package pipeline runs the catalog import: brands, then categories, then
// products with their category links and images.
package pipeline

import (
	"context"

	"github.com/tene/catalog-import/internal/types"
)

// Store is the database side of the import
type Store interface {
	InsertBrand(ctx context.Context, b types.Brand) (bool, error)
	AdvanceBrandSequence(ctx context.Context) (int64, error)
	UpsertProduct(ctx context.Context, p types.Product) error
	LinkProductCategory(ctx context.Context, productID, categoryID int32) (bool, error)
	CategorySlugs(ctx context.Context) (map[string]int32, error)
}

// CategoryAPI creates categories and returns their destination ids
type CategoryAPI interface {
	CreateCategory(ctx context.Context, payload types.CategoryPayload) (int32, error)
}

// ImageUploader pushes one image through the presigned upload flow
type ImageUploader interface {
	UploadCategoryImage(ctx context.Context, categoryID int32, photo string) error
	UploadProductImage(ctx context.Context, productID int32, photo, color string) error
}
