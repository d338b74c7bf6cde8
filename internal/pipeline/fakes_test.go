package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tene/catalog-import/internal/adminapi"
	"github.com/tene/catalog-import/internal/adminapi/adminapitest"
	httpclient "github.com/tene/catalog-import/internal/http"
	"github.com/tene/catalog-import/internal/images"
	"github.com/tene/catalog-import/internal/storage"
	"github.com/tene/catalog-import/internal/types"
)

const testToken = "pipeline-token"

// memStore applies the same merge rules as the SQL store
type memStore struct {
	mu          sync.Mutex
	brands      map[string]int32
	maxBrandID  int32
	products    map[int32]types.Product
	upserts     []int32
	links       map[[2]int32]bool
	slugs       map[string]int32
	failProduct map[int32]bool
	seq         int64
}

func newMemStore() *memStore {
	return &memStore{
		brands:      make(map[string]int32),
		products:    make(map[int32]types.Product),
		links:       make(map[[2]int32]bool),
		slugs:       make(map[string]int32),
		failProduct: make(map[int32]bool),
	}
}

func (s *memStore) InsertBrand(_ context.Context, b types.Brand) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.brands[b.Name]; ok {
		return false, nil
	}
	s.brands[b.Name] = b.ID
	if b.ID > s.maxBrandID {
		s.maxBrandID = b.ID
	}
	return true, nil
}

func (s *memStore) AdvanceBrandSequence(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = int64(s.maxBrandID)
	if s.seq == 0 {
		s.seq = 1
	}
	return s.seq, nil
}

func (s *memStore) UpsertProduct(_ context.Context, p types.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failProduct[p.ID] {
		return fmt.Errorf("upsert product %d: constraint violation", p.ID)
	}
	s.upserts = append(s.upserts, p.ID)
	existing, ok := s.products[p.ID]
	if !ok {
		s.products[p.ID] = p
		return nil
	}
	if p.BrandID != nil {
		existing.BrandID = p.BrandID
	}
	if p.Warranty != nil {
		existing.Warranty = p.Warranty
	}
	existing.Enabled = p.Enabled
	s.products[p.ID] = existing
	return nil
}

func (s *memStore) LinkProductCategory(_ context.Context, productID, categoryID int32) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int32{productID, categoryID}
	if s.links[key] {
		return false, nil
	}
	s.links[key] = true
	return true, nil
}

func (s *memStore) CategorySlugs(context.Context) (map[string]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int32, len(s.slugs))
	for k, v := range s.slugs {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) linkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// env wires the real admin client and uploader against the fake API
type env struct {
	api      *adminapi.Client
	server   *adminapitest.Server
	legacy   *httptest.Server
	uploader *images.Uploader
	imageDir string
}

func newEnv(t *testing.T, productImages map[string]string) *env {
	t.Helper()

	srv := adminapitest.NewServer(testToken)
	t.Cleanup(srv.Close)

	legacy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("legacy:" + r.URL.Path))
	}))
	t.Cleanup(legacy.Close)

	dir := t.TempDir()
	for name, content := range productImages {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	c := httpclient.NewClient(httpclient.Options{})
	api := adminapi.New(srv.URL, testToken, c, c)
	uploader := images.NewUploader(api, images.NewHTTPSource(c, legacy.URL), images.NewDirSource(store))

	return &env{api: api, server: srv, legacy: legacy, uploader: uploader, imageDir: dir}
}
