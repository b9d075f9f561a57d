package overlaps

import (
	"context"

	"github.com/kailas-cloud/overlaps/internal/blob"
	blobminio "github.com/kailas-cloud/overlaps/internal/blob/minio"
	blobs3 "github.com/kailas-cloud/overlaps/internal/blob/s3"
	blobvalkey "github.com/kailas-cloud/overlaps/internal/blob/valkey"
	"github.com/kailas-cloud/overlaps/internal/domain"
)

// Columns holds records as eleven index-aligned sequences.
type Columns = domain.Columns

// Record is one overlap pair with its relative pose offset.
type Record = domain.Record

// Layout identifies an archive layout.
type Layout = domain.Layout

// Archive layouts.
const (
	LayoutLegacy  = domain.LayoutLegacy
	LayoutCurrent = domain.LayoutCurrent
)

// ArchiveError reports which archive failed and at which stage.
type ArchiveError = domain.ArchiveError

// Store opens archives by name. Implement it to read from a custom backend
// and register it with WithStore.
type Store = blob.Store

// Blob is a read-only archive handle returned by a Store.
type Blob = blob.Blob

// S3Config configures WithS3. Credentials come from the default AWS chain;
// a non-empty Endpoint switches to path-style addressing.
type S3Config = blobs3.Config

// MinioConfig configures WithMinio.
type MinioConfig = blobminio.Config

// ValkeyConfig configures WithValkey.
type ValkeyConfig = blobvalkey.Config

// Pinger checks that a remote backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Permuter draws random permutations; *rand.Rand from math/rand/v2 satisfies it.
type Permuter interface {
	Perm(n int) []int
}

// FormatID renders a numeric identifier as a six-digit zero-padded string.
func FormatID(v float64) (string, error) {
	return domain.FormatID(v)
}
