// Package load turns an ordered list of archive locations into one set of
// overlap record columns.
package load

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/overlaps/internal/archive"
	"github.com/kailas-cloud/overlaps/internal/blob"
	"github.com/kailas-cloud/overlaps/internal/domain"
	"github.com/kailas-cloud/overlaps/internal/metrics"
	"github.com/kailas-cloud/overlaps/internal/npz"
)

// ErrNoRandomSource is returned when shuffling is requested from a service
// built without a Permuter.
var ErrNoRandomSource = errors.New("load: shuffle requested without a random source")

// Service loads archives one at a time, in input order.
type Service struct {
	opener  Opener
	rng     Permuter
	metrics Metrics
	logger  *zap.Logger
}

// New creates a load service. rng may be nil when shuffling is never requested.
func New(opener Opener, rng Permuter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{opener: opener, rng: rng, logger: logger}
}

// WithMetrics configures metrics recording.
func (s *Service) WithMetrics(m Metrics) *Service {
	s.metrics = m
	return s
}

// Load reads every archive in order and concatenates their records. With
// shuffle set, each archive's records are permuted independently before
// being appended; archives themselves are never reordered or interleaved.
//
// The first failing archive aborts the call and no partial result is returned.
// An empty location list yields empty columns.
func (s *Service) Load(ctx context.Context, locations []string, shuffle bool) (*domain.Columns, error) {
	if shuffle && s.rng == nil {
		return nil, ErrNoRandomSource
	}

	start := time.Now()
	out := domain.NewColumns(0)
	var legacy, current int

	for _, location := range locations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load canceled before %s: %w", location, err)
		}

		cols, layout, err := s.loadArchive(ctx, location)
		if err != nil {
			return nil, err
		}

		if shuffle {
			cols, err = cols.Permute(s.rng.Perm(cols.Len()))
			if err != nil {
				return nil, fmt.Errorf("shuffle %s: %w", location, err)
			}
		}
		out.Append(cols)

		if layout == domain.LayoutLegacy {
			legacy++
		} else {
			current++
		}
	}

	s.logger.Info("Overlap records loaded",
		zap.Int("archives", len(locations)),
		zap.Int("legacy", legacy),
		zap.Int("current", current),
		zap.Int("records", out.Len()),
		zap.Bool("shuffle", shuffle),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// loadArchive opens, decodes and extracts one archive in on-disk order.
func (s *Service) loadArchive(ctx context.Context, location string) (*domain.Columns, domain.Layout, error) {
	start := time.Now()
	var layout domain.Layout

	cols, err := func() (*domain.Columns, error) {
		b, err := s.opener.Open(ctx, location)
		if err != nil {
			return nil, &domain.ArchiveError{Location: location, Op: domain.OpOpen, Err: err}
		}
		defer func() { _ = b.Close() }()
		s.observeBytes(location, b.Size())

		c, err := npz.NewReader(b, b.Size())
		if err != nil {
			return nil, &domain.ArchiveError{Location: location, Op: domain.OpRead, Err: err}
		}

		layout, err = archive.Detect(c.Names())
		if err != nil {
			return nil, &domain.ArchiveError{Location: location, Op: domain.OpDetect, Err: err}
		}

		arc, err := archive.Decode(c, layout)
		if err != nil {
			return nil, &domain.ArchiveError{Location: location, Op: domain.OpDecode, Err: err}
		}

		cols, err := arc.Columns()
		if err != nil {
			return nil, &domain.ArchiveError{Location: location, Op: domain.OpExtract, Err: err}
		}
		return cols, nil
	}()

	elapsed := time.Since(start)
	if err != nil {
		s.observeArchive(layout, metrics.StatusError, 0, elapsed)
		s.logger.Error("Archive load failed",
			zap.String("location", location),
			zap.Stringer("layout", layout),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return nil, layout, err
	}

	s.observeArchive(layout, metrics.StatusOK, cols.Len(), elapsed)
	s.logger.Debug("Archive loaded",
		zap.String("location", location),
		zap.Stringer("layout", layout),
		zap.Int("records", cols.Len()),
		zap.Duration("duration", elapsed),
	)
	return cols, layout, nil
}

func (s *Service) observeArchive(layout domain.Layout, status string, records int, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveArchive(layout.String(), status, records, elapsed.Seconds())
	}
}

func (s *Service) observeBytes(location string, n int64) {
	if s.metrics != nil {
		s.metrics.ObserveBytes(blob.Scheme(location), n)
	}
}
