package overlaps

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/kailas-cloud/overlaps/internal/blob"
	blobminio "github.com/kailas-cloud/overlaps/internal/blob/minio"
	blobs3 "github.com/kailas-cloud/overlaps/internal/blob/s3"
	blobvalkey "github.com/kailas-cloud/overlaps/internal/blob/valkey"
	"github.com/kailas-cloud/overlaps/internal/export"
	"github.com/kailas-cloud/overlaps/internal/metrics"
	loaduc "github.com/kailas-cloud/overlaps/internal/usecase/load"
)

// pcgStream is the fixed second PCG word; the seed alone selects the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// newValkeyStore is replaced in tests to run against a mocked client.
var newValkeyStore = blobvalkey.NewStore

// Loader reads overlap archives.
type Loader struct {
	svc     *loaduc.Service
	shuffle bool
	seed    uint64
	seeded  bool
	schemes []string
	pingers map[string]Pinger
	closers []func()
}

// New builds a Loader. Local paths always work; other schemes are enabled
// by their options.
func New(ctx context.Context, opts ...Option) (*Loader, error) {
	cfg := &loaderConfig{shuffle: true}
	for _, o := range opts {
		o.apply(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Loader{shuffle: cfg.shuffle}
	router, err := l.buildRouter(ctx, cfg)
	if err != nil {
		l.Close()
		return nil, err
	}
	l.schemes = router.Schemes()

	rng := cfg.rng
	if rng == nil {
		l.seed, l.seeded = rand.Uint64(), true
		if cfg.seed != nil {
			l.seed = *cfg.seed
		} else if cfg.shuffle {
			logger.Info("Drew shuffle seed", zap.Uint64("seed", l.seed))
		}
		rng = rand.New(rand.NewPCG(l.seed, pcgStream))
	}

	l.svc = loaduc.New(blob.NewDecompressor(router), rng, logger)
	if cfg.metricsReg != nil {
		l.svc = l.svc.WithMetrics(metrics.NewLoader(cfg.metricsReg))
	}
	return l, nil
}

func (l *Loader) buildRouter(ctx context.Context, cfg *loaderConfig) (*blob.Router, error) {
	r := blob.NewRouter().Handle(blob.SchemeFile, blob.NewLocalStore(cfg.localRoot))
	l.pingers = make(map[string]Pinger)

	if cfg.s3 != nil {
		s, err := blobs3.New(ctx, *cfg.s3)
		if err != nil {
			return nil, fmt.Errorf("overlaps: s3 store: %w", err)
		}
		r.Handle(blob.SchemeS3, s)
	}
	if cfg.minio != nil {
		s, err := blobminio.New(*cfg.minio)
		if err != nil {
			return nil, fmt.Errorf("overlaps: minio store: %w", err)
		}
		r.Handle(blob.SchemeMinio, s)
	}
	if cfg.valkey != nil {
		s, err := newValkeyStore(*cfg.valkey)
		if err != nil {
			return nil, fmt.Errorf("overlaps: valkey store: %w", err)
		}
		l.closers = append(l.closers, s.Close)
		l.pingers[blob.SchemeValkey] = s
		r.Handle(blob.SchemeValkey, s)
	}
	for scheme, s := range cfg.stores {
		r.Handle(scheme, s)
	}
	return r, nil
}

// Load reads every archive in order and returns their concatenated records,
// shuffled per archive unless WithShuffle(false) was given.
func (l *Loader) Load(ctx context.Context, locations []string) (*Columns, error) {
	return l.svc.Load(ctx, locations, l.shuffle)
}

// LoadOrdered is Load without shuffling, whatever the loader was configured with.
func (l *Loader) LoadOrdered(ctx context.Context, locations []string) (*Columns, error) {
	return l.svc.Load(ctx, locations, false)
}

// Schemes lists the location schemes this loader can read, sorted.
func (l *Loader) Schemes() []string {
	return l.schemes
}

// Pingers returns a connectivity check per remote backend that keeps a
// connection open, keyed by scheme.
func (l *Loader) Pingers() map[string]Pinger {
	return l.pingers
}

// Seed returns the shuffle seed and whether one is in use. It is false when
// the random source came from WithRand.
func (l *Loader) Seed() (uint64, bool) {
	return l.seed, l.seeded
}

// Close releases backend connections.
func (l *Loader) Close() {
	for _, c := range l.closers {
		c()
	}
	l.closers = nil
}

// Load is a one-shot New + Load + Close.
func Load(ctx context.Context, locations []string, opts ...Option) (*Columns, error) {
	l, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.Load(ctx, locations)
}

// WriteParquet writes cols to w, one row per record.
func WriteParquet(w io.Writer, cols *Columns) error {
	return export.WriteParquet(w, cols)
}

// ReadParquet reads a file produced by WriteParquet.
func ReadParquet(r io.ReaderAt, size int64) (*Columns, error) {
	return export.ReadParquet(r, size)
}
