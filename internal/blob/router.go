package blob

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Schemes understood by Router. Bare paths use SchemeFile.
const (
	SchemeFile   = "file"
	SchemeS3     = "s3"
	SchemeMinio  = "minio"
	SchemeValkey = "valkey"
)

// Router dispatches locations to stores by URI scheme.
//
//	/data/a.npz, file:///data/a.npz  -> file store, name "/data/a.npz"
//	s3://bucket/key.npz              -> s3 store, name "bucket/key.npz"
//	valkey://overlaps:a              -> valkey store, name "overlaps:a"
type Router struct {
	stores map[string]Store
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{stores: make(map[string]Store)}
}

// Handle registers s for scheme, replacing any previous store.
func (r *Router) Handle(scheme string, s Store) *Router {
	r.stores[scheme] = s
	return r
}

// Schemes lists the registered schemes in sorted order.
func (r *Router) Schemes() []string {
	return slices.Sorted(maps.Keys(r.stores))
}

// Open resolves location and opens it on the matching store.
func (r *Router) Open(ctx context.Context, location string) (Blob, error) {
	scheme, name := Split(location)
	s, ok := r.stores[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	return s.Open(ctx, name)
}

// Split separates a location into its scheme and the store-relative name.
func Split(location string) (scheme, name string) {
	i := strings.Index(location, "://")
	if i <= 0 {
		return SchemeFile, location
	}
	return strings.ToLower(location[:i]), location[i+3:]
}

// Scheme returns the scheme Router would use for location.
func Scheme(location string) string {
	s, _ := Split(location)
	return s
}
