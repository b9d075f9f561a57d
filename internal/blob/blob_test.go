package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, b Blob) []byte {
	t.Helper()
	data, err := io.ReadAll(io.NewSectionReader(b, 0, b.Size()))
	require.NoError(t, err)
	return data
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.npz"), []byte("hello"), 0o600))

	ctx := context.Background()
	store := NewLocalStore(dir)

	t.Run("relative", func(t *testing.T) {
		b, err := store.Open(ctx, "a.npz")
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, int64(5), b.Size())
		assert.Equal(t, []byte("hello"), readAll(t, b))
	})

	t.Run("absolute ignores root", func(t *testing.T) {
		b, err := NewLocalStore("/nonexistent").Open(ctx, filepath.Join(dir, "a.npz"))
		require.NoError(t, err)
		require.NoError(t, b.Close())
	})

	t.Run("missing", func(t *testing.T) {
		_, err := store.Open(ctx, "missing.npz")
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := NewLocalStore("").Open(ctx, dir)
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("payload")
	store.Put("x", data)
	data[0] = 'P'

	b, err := store.Open(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), readAll(t, b))
	require.NoError(t, b.Close())

	_, err = store.Open(ctx, "y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		location, scheme, name string
	}{
		{"/data/a.npz", SchemeFile, "/data/a.npz"},
		{"rel/a.npz", SchemeFile, "rel/a.npz"},
		{"file:///data/a.npz", SchemeFile, "/data/a.npz"},
		{"s3://bucket/dir/a.npz", SchemeS3, "bucket/dir/a.npz"},
		{"MINIO://bucket/a.npz", SchemeMinio, "bucket/a.npz"},
		{"valkey://overlaps:a", SchemeValkey, "overlaps:a"},
		{"://odd", SchemeFile, "://odd"},
	}
	for _, tc := range tests {
		t.Run(tc.location, func(t *testing.T) {
			scheme, name := Split(tc.location)
			assert.Equal(t, tc.scheme, scheme)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.scheme, Scheme(tc.location))
		})
	}
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	mem.Put("bucket/a.npz", []byte("s3 data"))

	var opened string
	r := NewRouter().
		Handle(SchemeS3, mem).
		Handle(SchemeFile, StoreFunc(func(_ context.Context, name string) (Blob, error) {
			opened = name
			return Bytes(nil), nil
		}))

	b, err := r.Open(ctx, "s3://bucket/a.npz")
	require.NoError(t, err)
	assert.Equal(t, []byte("s3 data"), readAll(t, b))

	_, err = r.Open(ctx, "/tmp/x.npz")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.npz", opened)

	_, err = r.Open(ctx, "valkey://k")
	assert.ErrorIs(t, err, ErrUnknownScheme)
	assert.Equal(t, []string{SchemeFile, SchemeS3}, r.Schemes())
}

func TestDecompressor(t *testing.T) {
	ctx := context.Background()
	plain := bytes.Repeat([]byte("overlap "), 1000)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zst := enc.EncodeAll(plain, nil)
	_ = enc.Close()

	var lz bytes.Buffer
	w := lz4.NewWriter(&lz)
	_, err = w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	mem := NewMemoryStore()
	mem.Put("a.npz.zst", zst)
	mem.Put("a.npz.zstd", zst)
	mem.Put("a.npz.lz4", lz.Bytes())
	mem.Put("a.npz", plain)
	mem.Put("bad.npz.zst", []byte("not zstd"))

	d := NewDecompressor(mem)
	for _, name := range []string{"a.npz.zst", "a.npz.zstd", "a.npz.lz4", "a.npz"} {
		t.Run(name, func(t *testing.T) {
			b, err := d.Open(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, int64(len(plain)), b.Size())
			assert.Equal(t, plain, readAll(t, b))
		})
	}

	_, err = d.Open(ctx, "bad.npz.zst")
	assert.Error(t, err)

	_, err = d.Open(ctx, "missing.npz.lz4")
	assert.ErrorIs(t, err, ErrNotFound)
}
