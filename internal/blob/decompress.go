package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// maxDecoded bounds the decompressed size of a single blob.
const maxDecoded = 8 << 30

// Decompressor wraps a store and transparently decodes blobs whose names end
// in .zst, .zstd or .lz4. Decoded data is held in memory since archive readers
// need random access.
type Decompressor struct {
	next Store
}

// NewDecompressor wraps next.
func NewDecompressor(next Store) *Decompressor {
	return &Decompressor{next: next}
}

// Open opens name on the wrapped store, decoding it when compressed.
func (d *Decompressor) Open(ctx context.Context, name string) (Blob, error) {
	codec := codecFor(name)
	b, err := d.next.Open(ctx, name)
	if err != nil || codec == "" {
		return b, err
	}
	defer func() { _ = b.Close() }()

	src := io.NewSectionReader(b, 0, b.Size())
	var r io.Reader
	switch codec {
	case "zstd":
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("zstd %s: %w", name, err)
		}
		defer dec.Close()
		r = dec
	case "lz4":
		r = lz4.NewReader(src)
	}

	data, err := io.ReadAll(io.LimitReader(r, maxDecoded+1))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", codec, name, err)
	}
	if len(data) > maxDecoded {
		return nil, fmt.Errorf("%s %s: decoded size exceeds %d bytes", codec, name, maxDecoded)
	}
	return Bytes(data), nil
}

func codecFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".zst"), strings.HasSuffix(name, ".zstd"):
		return "zstd"
	case strings.HasSuffix(name, ".lz4"):
		return "lz4"
	default:
		return ""
	}
}
