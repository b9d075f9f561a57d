package overlaps

import (
	"github.com/kailas-cloud/overlaps/internal/blob"
	"github.com/kailas-cloud/overlaps/internal/domain"
)

// Sentinel errors re-exported from internal packages.
// Use errors.Is() to check.
var (
	ErrMalformedArchive = domain.ErrMalformedArchive
	ErrUnknownLayout    = domain.ErrUnknownLayout
	ErrInvalidID        = domain.ErrInvalidID
	ErrNotFound         = blob.ErrNotFound
	ErrUnknownScheme    = blob.ErrUnknownScheme
)
