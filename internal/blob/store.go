// Package blob gives the loader uniform read access to archives wherever they
// live: local disk, memory, S3, MinIO or Valkey.
package blob

import (
	"context"
	"errors"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// ErrUnknownScheme is returned by Router for a location whose scheme has no store.
var ErrUnknownScheme = errors.New("blob: unknown scheme")

// Store opens immutable blobs by name.
type Store interface {
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, name string) (Blob, error)

// Open calls f.
func (f StoreFunc) Open(ctx context.Context, name string) (Blob, error) {
	return f(ctx, name)
}
