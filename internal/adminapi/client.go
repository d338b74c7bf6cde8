// Package adminapi talks to the destination admin API and to the presigned
// storage URLs it hands out.
package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	httpclient "github.com/tene/catalog-import/internal/http"
	"github.com/tene/catalog-import/internal/types"
)

// maxBodyInError caps how much of a failed response ends up in logs
const maxBodyInError = 512

// Client calls the admin API with a bearer token. Uploads to presigned URLs
// go through a separate client and never carry the token.
type Client struct {
	baseURL string
	token   string
	api     *httpclient.Client
	storage *httpclient.Client
}

// New creates a client for baseURL. api is used for /admin calls and
// storage for presigned PUTs.
func New(baseURL, token string, api, storage *httpclient.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		api:     api,
		storage: storage,
	}
}

func (c *Client) adminHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	return h
}

func (c *Client) call(ctx context.Context, op, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	resp, err := c.api.Send(ctx, method, c.baseURL+path, body, c.adminHeader())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(resp.Body))}
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// CreateCategory creates a category and returns the id the API generated
func (c *Client) CreateCategory(ctx context.Context, payload types.CategoryPayload) (int32, error) {
	const op = "create category"

	var out createCategoryResponse
	if err := c.call(ctx, op, http.MethodPost, "/admin/categories", payload, &out); err != nil {
		return 0, err
	}
	if out.ID == nil {
		return 0, fmt.Errorf("%s: response has no id", op)
	}
	if *out.ID < math.MinInt32 || *out.ID > math.MaxInt32 {
		return 0, fmt.Errorf("%s: id %d out of range", op, *out.ID)
	}
	return int32(*out.ID), nil
}

// RequestCategoryImageUpload asks for a presigned URL for a category image
func (c *Client) RequestCategoryImageUpload(ctx context.Context, categoryID int32, contentType string) (string, error) {
	op := fmt.Sprintf("request category %d image upload", categoryID)

	var out categoryImageResponse
	path := fmt.Sprintf("/admin/categories/%d/image", categoryID)
	if err := c.call(ctx, op, http.MethodPut, path, categoryImageRequest{ContentType: contentType}, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("%s: response has no upload_url", op)
	}
	return out.UploadURL, nil
}

// RequestProductImageUploads asks for one presigned URL per requested image
func (c *Client) RequestProductImageUploads(ctx context.Context, productID int32, images []ImageRequest) ([]string, error) {
	op := fmt.Sprintf("request product %d image uploads", productID)

	var out productImagesResponse
	path := fmt.Sprintf("/admin/products/%d/images", productID)
	if err := c.call(ctx, op, http.MethodPut, path, productImagesRequest{Images: images}, &out); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(out.Images))
	for _, img := range out.Images {
		urls = append(urls, img.UploadURL)
	}
	if len(urls) == 0 || urls[0] == "" {
		return nil, fmt.Errorf("%s: response has no upload_url", op)
	}
	return urls, nil
}

// PutObject uploads raw bytes to a presigned URL. Only 200 and 204 count as success.
func (c *Client) PutObject(ctx context.Context, uploadURL, contentType string, data []byte) error {
	h := http.Header{}
	h.Set("Content-Type", contentType)

	resp, err := c.storage.Send(ctx, http.MethodPut, uploadURL, data, h)
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &StatusError{Op: "upload object", StatusCode: resp.StatusCode, Body: truncate(string(resp.Body))}
	}
	return nil
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func truncate(s string) string {
	if len(s) <= maxBodyInError {
		return s
	}
	return s[:maxBodyInError] + "..."
}
