package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ZipOptions limits what is served from an archive
type ZipOptions struct {
	// MaxFileSize is the maximum size of a single entry in bytes (0 = unlimited)
	MaxFileSize int64
	// SkipPatterns hides entries whose name contains any of them
	SkipPatterns []string
}

// DefaultZipOptions returns the limits used for photo archives
func DefaultZipOptions() ZipOptions {
	return ZipOptions{
		MaxFileSize: 50 * 1024 * 1024,
		SkipPatterns: []string{
			"__MACOSX",
			".DS_Store",
			"Thumbs.db",
			"desktop.ini",
		},
	}
}

// ZipStorage implements Reader over the entries of a ZIP archive. A single
// top-level directory shared by every entry is not part of the keys.
type ZipStorage struct {
	archive *zip.ReadCloser
	entries map[string]*zip.File
	options ZipOptions
}

// NewZipStorage opens an archive and indexes its entries
func NewZipStorage(archivePath string, options ZipOptions) (*ZipStorage, error) {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP %s: %w", archivePath, err)
	}

	s := &ZipStorage{archive: rc, entries: make(map[string]*zip.File), options: options}

	names := make(map[string]*zip.File)
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, err := sanitizeEntryName(f.Name)
		if err != nil || s.shouldSkip(name) {
			continue
		}
		names[name] = f
	}

	prefix := commonTopDir(names)
	for name, f := range names {
		s.entries[strings.TrimPrefix(name, prefix)] = f
	}
	return s, nil
}

// Get retrieves content from the given key
func (s *ZipStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, ok := s.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if s.options.MaxFileSize > 0 && int64(f.UncompressedSize64) > s.options.MaxFileSize {
		return nil, fmt.Errorf("entry %s exceeds maximum size (%d > %d)", key, f.UncompressedSize64, s.options.MaxFileSize)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", key, err)
	}
	defer rc.Close()

	// declared sizes can lie, so the read is bounded too
	var reader io.Reader = rc
	if s.options.MaxFileSize > 0 {
		reader = io.LimitReader(rc, s.options.MaxFileSize+1)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", key, err)
	}
	if s.options.MaxFileSize > 0 && int64(buf.Len()) > s.options.MaxFileSize {
		return nil, fmt.Errorf("entry %s exceeds maximum size (actual data > %d bytes)", key, s.options.MaxFileSize)
	}
	return buf.Bytes(), nil
}

// Exists checks if an entry exists at the given key
func (s *ZipStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.lookup(key)
	return ok, nil
}

// List returns every entry key, sorted
func (s *ZipStorage) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the archive
func (s *ZipStorage) Close() error {
	return s.archive.Close()
}

func (s *ZipStorage) lookup(key string) (*zip.File, bool) {
	name := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(key, "\\", "/")), "/")
	f, ok := s.entries[name]
	return f, ok
}

func (s *ZipStorage) shouldSkip(name string) bool {
	for _, pattern := range s.options.SkipPatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

// sanitizeEntryName normalizes an entry name and rejects names that would
// escape the archive root
func sanitizeEntryName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if path.IsAbs(name) || (len(name) >= 2 && name[1] == ':') {
		return "", fmt.Errorf("absolute path not allowed: %s", name)
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path traversal not allowed: %s", name)
	}
	return cleaned, nil
}

// commonTopDir returns "dir/" when every name lives below the same first
// directory, otherwise ""
func commonTopDir(names map[string]*zip.File) string {
	prefix := ""
	for name := range names {
		i := strings.Index(name, "/")
		if i < 0 {
			return ""
		}
		top := name[:i+1]
		if prefix == "" {
			prefix = top
		} else if top != prefix {
			return ""
		}
	}
	return prefix
}

// Close is a no-op so LocalStorage satisfies ReadCloser
func (s *LocalStorage) Close() error {
	return nil
}

// ReadCloser is a Reader holding resources until closed
type ReadCloser interface {
	Reader
	io.Closer
}

// Open returns a Reader for a directory or a .zip archive
func Open(p string) (ReadCloser, error) {
	if strings.EqualFold(filepath.Ext(p), ".zip") {
		if stat, err := os.Stat(p); err == nil && !stat.IsDir() {
			return NewZipStorage(p, DefaultZipOptions())
		}
	}
	return NewLocalStorage(p)
}
