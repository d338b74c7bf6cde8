package images

import (
	"context"
	"fmt"

	"github.com/tene/catalog-import/internal/adminapi"
	"github.com/tene/catalog-import/internal/normalize"
)

// API is the part of the admin API the uploader needs
type API interface {
	RequestCategoryImageUpload(ctx context.Context, categoryID int32, contentType string) (string, error)
	RequestProductImageUploads(ctx context.Context, productID int32, images []adminapi.ImageRequest) ([]string, error)
	PutObject(ctx context.Context, uploadURL, contentType string, data []byte) error
}

// Uploader runs the two-step upload: ask the API for a presigned URL, then
// PUT the bytes there
type Uploader struct {
	api        API
	categories Source
	products   Source
}

// NewUploader creates an uploader; categories and products may be nil when
// the matching pass is disabled
func NewUploader(api API, categories, products Source) *Uploader {
	return &Uploader{api: api, categories: categories, products: products}
}

// UploadCategoryImage attaches photo to a destination category
func (u *Uploader) UploadCategoryImage(ctx context.Context, categoryID int32, photo string) error {
	if u.categories == nil {
		return fmt.Errorf("no category image source configured")
	}
	contentType := normalize.ContentTypeFor(photo)

	uploadURL, err := u.api.RequestCategoryImageUpload(ctx, categoryID, contentType)
	if err != nil {
		return err
	}

	data, err := u.categories.Fetch(ctx, photo)
	if err != nil {
		return err
	}

	return u.api.PutObject(ctx, uploadURL, contentType, data)
}

// UploadProductImage attaches photo as the primary image of a product. The
// file is read first so a missing photo never reaches the API.
func (u *Uploader) UploadProductImage(ctx context.Context, productID int32, photo, color string) error {
	if u.products == nil {
		return fmt.Errorf("no product image source configured")
	}
	contentType := normalize.ContentTypeFor(photo)

	data, err := u.products.Fetch(ctx, photo)
	if err != nil {
		return err
	}

	urls, err := u.api.RequestProductImageUploads(ctx, productID, []adminapi.ImageRequest{{
		ContentType: contentType,
		IsPrimary:   true,
		Color:       normalize.NearestNamedColor(color),
	}})
	if err != nil {
		return err
	}

	return u.api.PutObject(ctx, urls[0], contentType, data)
}
