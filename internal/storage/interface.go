// Package storage reads source images from a directory or a ZIP archive
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no file exists for a key
var ErrNotFound = errors.New("file not found")

// Reader is read-only access to stored files. Keys are slash-separated
// names relative to the storage root.
type Reader interface {
	// Get retrieves content from the given key
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists checks if a file exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// List returns all keys under the root
	List(ctx context.Context) ([]string, error)
}
