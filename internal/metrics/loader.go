package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "overlaps"

// Archive load outcomes used as the status label.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Loader holds archive loading metrics.
type Loader struct {
	ArchivesLoaded *prometheus.CounterVec
	RecordsLoaded  *prometheus.CounterVec
	LoadDuration   *prometheus.HistogramVec
	ArchiveBytes   *prometheus.CounterVec
}

// NewLoader creates loader metrics and registers them on reg. A nil reg
// leaves them unregistered, which suits tests and embedders without a registry.
// Calling it again with the same reg returns the collectors registered first.
func NewLoader(reg prometheus.Registerer) *Loader {
	m := &Loader{
		ArchivesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archives_loaded_total",
				Help:      "Total number of archives processed",
			},
			[]string{"layout", "status"},
		),
		RecordsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_loaded_total",
				Help:      "Total number of overlap records extracted",
			},
			[]string{"layout"},
		),
		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "archive_load_duration_seconds",
				Help:      "Time to open, decode and extract one archive",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"layout"},
		),
		ArchiveBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_bytes_total",
				Help:      "Archive bytes read from storage",
			},
			[]string{"scheme"},
		),
	}
	if reg != nil {
		m.ArchivesLoaded = register(reg, m.ArchivesLoaded)
		m.RecordsLoaded = register(reg, m.RecordsLoaded)
		m.LoadDuration = register(reg, m.LoadDuration)
		m.ArchiveBytes = register(reg, m.ArchiveBytes)
	}
	return m
}

// register adds c to reg. When an identical collector is already registered
// it is returned instead; any other registration error panics.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

// ObserveArchive records one processed archive. layout is "unknown" when the
// archive failed before its layout was known.
func (m *Loader) ObserveArchive(layout, status string, records int, seconds float64) {
	if m == nil {
		return
	}
	m.ArchivesLoaded.WithLabelValues(layout, status).Inc()
	m.LoadDuration.WithLabelValues(layout).Observe(seconds)
	if status == StatusOK {
		m.RecordsLoaded.WithLabelValues(layout).Add(float64(records))
	}
}

// ObserveBytes records the size of a blob read through scheme.
func (m *Loader) ObserveBytes(scheme string, n int64) {
	if m == nil {
		return
	}
	m.ArchiveBytes.WithLabelValues(scheme).Add(float64(n))
}
