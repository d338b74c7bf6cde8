package storage

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "photos.zip")
	f, err := os.Create(p)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return p
}

func TestZipStorage(t *testing.T) {
	p := writeZip(t, map[string]string{
		"a.jpg":            "jpeg",
		"sub/b.png":        "png",
		"__MACOSX/._a.jpg": "junk",
		"sub/.DS_Store":    "junk",
	})
	s, err := NewZipStorage(p, DefaultZipOptions())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	data, err := s.Get(ctx, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	data, err = s.Get(ctx, "/sub/../sub/b.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	_, err = s.Get(ctx, "missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Exists(ctx, "._a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "sub/b.png"}, keys)
}

func TestZipStorageStripsSharedTopDir(t *testing.T) {
	p := writeZip(t, map[string]string{
		"product_images_full/a.jpg": "a",
		"product_images_full/b.jpg": "b",
	})
	s, err := NewZipStorage(p, DefaultZipOptions())
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Exists(context.Background(), "b.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestZipStorageMaxFileSize(t *testing.T) {
	p := writeZip(t, map[string]string{"big.jpg": "0123456789"})
	s, err := NewZipStorage(p, ZipOptions{MaxFileSize: 4})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(context.Background(), "big.jpg")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	local, err := Open(dir)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, local)
	require.NoError(t, local.Close())

	archive, err := Open(writeZip(t, map[string]string{"a.jpg": "a"}))
	require.NoError(t, err)
	assert.IsType(t, &ZipStorage{}, archive)
	require.NoError(t, archive.Close())

	_, err = Open(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
