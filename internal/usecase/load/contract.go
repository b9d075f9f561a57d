package load

import (
	"context"

	"github.com/kailas-cloud/overlaps/internal/blob"
)

// Opener opens an archive by location. blob.Router and every blob.Store satisfy it.
type Opener interface {
	Open(ctx context.Context, location string) (blob.Blob, error)
}

// Permuter draws random permutations. *rand.Rand from math/rand/v2 satisfies it.
type Permuter interface {
	Perm(n int) []int
}

// Metrics records per-archive outcomes.
type Metrics interface {
	ObserveArchive(layout, status string, records int, seconds float64)
	ObserveBytes(scheme string, n int64)
}
