package adminapi

import "fmt"

// StatusError is a non-success response from the admin API or storage
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// ImageRequest describes one image a product upload slot is requested for
type ImageRequest struct {
	ContentType string  `json:"content_type"`
	IsPrimary   bool    `json:"is_primary"`
	Color       *string `json:"color"`
}

type createCategoryResponse struct {
	ID *int64 `json:"id"`
}

type categoryImageRequest struct {
	ContentType string `json:"content_type"`
}

type categoryImageResponse struct {
	UploadURL string `json:"upload_url"`
}

type productImagesRequest struct {
	Images []ImageRequest `json:"images"`
}

type productImagesResponse struct {
	Images []struct {
		UploadURL string `json:"upload_url"`
	} `json:"images"`
}
