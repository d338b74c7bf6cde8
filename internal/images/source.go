// Package images moves source images into destination storage through the
// admin API's presigned upload flow.
package images

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	httpclient "github.com/tene/catalog-import/internal/http"
	"github.com/tene/catalog-import/internal/storage"
)

// ErrMissing is returned when a source has no image under the given name
var ErrMissing = errors.New("image not found")

// Source yields the bytes of a named image
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// HTTPSource fetches images from the legacy image host
type HTTPSource struct {
	client  *httpclient.Client
	baseURL string
}

// NewHTTPSource fetches {baseURL}/{name}. Timeouts, retries and the breaker
// are configured on client.
func NewHTTPSource(client *httpclient.Client, baseURL string) *HTTPSource {
	return &HTTPSource{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// URL returns the address an image is fetched from
func (s *HTTPSource) URL(name string) string {
	segments := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

// Fetch downloads one image
func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.GetBytes(ctx, s.URL(name))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return data, nil
}

// DirSource reads images from a directory or ZIP archive
type DirSource struct {
	store storage.Reader
}

// NewDirSource wraps a storage reader
func NewDirSource(store storage.Reader) *DirSource {
	return &DirSource{store: store}
}

// Fetch reads one image; a missing file is ErrMissing
func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	ok, err := s.store.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissing, name)
	}
	return s.store.Get(ctx, name)
}
