package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore reads blobs from the local file system.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore. Relative names resolve against root;
// an empty root leaves them relative to the working directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Open opens the file for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	path := filepath.Clean(name)
	if s.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory", path)
	}
	return &localBlob{File: f, size: info.Size()}, nil
}

type localBlob struct {
	*os.File
	size int64
}

func (b *localBlob) Size() int64 { return b.size }
