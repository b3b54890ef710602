// Package blob stores attachment content outside the database.
package blob

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob not found")

// Store keeps opaque blobs under slash-separated keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
