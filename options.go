package overlaps

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Loader.
type Option interface {
	apply(*loaderConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*loaderConfig)

func (f optionFunc) apply(c *loaderConfig) { f(c) }

type loaderConfig struct {
	shuffle bool
	seed    *uint64
	rng     Permuter

	localRoot string
	stores    map[string]Store

	s3     *S3Config
	minio  *MinioConfig
	valkey *ValkeyConfig

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithShuffle toggles per-archive shuffling. Default: true.
func WithShuffle(shuffle bool) Option {
	return optionFunc(func(c *loaderConfig) {
		c.shuffle = shuffle
	})
}

// WithSeed seeds the shuffle so runs are reproducible. Without it a fresh
// seed is drawn and logged; Loader.Seed reports it.
func WithSeed(seed uint64) Option {
	return optionFunc(func(c *loaderConfig) {
		c.seed = &seed
	})
}

// WithRand supplies the random source directly. It takes precedence over WithSeed.
func WithRand(p Permuter) Option {
	return optionFunc(func(c *loaderConfig) {
		c.rng = p
	})
}

// WithLocalRoot resolves relative archive paths against root.
func WithLocalRoot(root string) Option {
	return optionFunc(func(c *loaderConfig) {
		c.localRoot = root
	})
}

// WithStore serves locations of the form scheme://name from s.
func WithStore(scheme string, s Store) Option {
	return optionFunc(func(c *loaderConfig) {
		if c.stores == nil {
			c.stores = make(map[string]Store)
		}
		c.stores[scheme] = s
	})
}

// WithS3 enables s3://bucket/key locations.
func WithS3(cfg S3Config) Option {
	return optionFunc(func(c *loaderConfig) {
		c.s3 = &cfg
	})
}

// WithMinio enables minio://bucket/key locations.
func WithMinio(cfg MinioConfig) Option {
	return optionFunc(func(c *loaderConfig) {
		c.minio = &cfg
	})
}

// WithValkey enables valkey://key locations, read with GET. The connection
// is held until Loader.Close and reported by Loader.Pingers.
func WithValkey(cfg ValkeyConfig) Option {
	return optionFunc(func(c *loaderConfig) {
		c.valkey = &cfg
	})
}

// WithLogger enables structured logging. Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *loaderConfig) {
		c.logger = l
	})
}

// WithPrometheus registers loader metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *loaderConfig) {
		c.metricsReg = reg
	})
}
