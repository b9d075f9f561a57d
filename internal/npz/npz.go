// Package npz reads numpy .npz archives: zip files whose members are .npy arrays.
package npz

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/kailas-cloud/overlaps/internal/npy"
)

// ErrNoSuchTable is returned by Array for a name the archive does not hold.
var ErrNoSuchTable = errors.New("npz: no such table")

// Archive is an opened .npz container.
type Archive struct {
	names []string
	files map[string]*zip.File
}

// NewReader opens the archive held by r.
func NewReader(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("npz: open zip: %w", err)
	}
	a := &Archive{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// np.load strips the .npy suffix from member names.
		name := strings.TrimSuffix(f.Name, ".npy")
		if _, dup := a.files[name]; dup {
			return nil, fmt.Errorf("npz: duplicate table %q", name)
		}
		a.names = append(a.names, name)
		a.files[name] = f
	}
	return a, nil
}

// Names returns the table names in archive order.
func (a *Archive) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Has reports whether the archive contains the named table.
func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok
}

// Array decodes the named table.
func (a *Archive) Array(name string) (*npy.Array, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchTable, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("npz: open %s: %w", f.Name, err)
	}
	defer rc.Close()

	arr, err := npy.Read(rc)
	if err != nil {
		return nil, fmt.Errorf("npz: table %q: %w", name, err)
	}
	return arr, nil
}
