package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoader_ObserveArchive(t *testing.T) {
	m := NewLoader(nil)

	m.ObserveArchive("legacy", StatusOK, 3, 0.01)
	m.ObserveArchive("current", StatusOK, 5, 0.02)
	m.ObserveArchive("unknown", StatusError, 0, 0.001)

	if v := testutil.ToFloat64(m.ArchivesLoaded.WithLabelValues("legacy", StatusOK)); v != 1 {
		t.Errorf("expected 1 legacy archive, got %f", v)
	}
	if v := testutil.ToFloat64(m.ArchivesLoaded.WithLabelValues("unknown", StatusError)); v != 1 {
		t.Errorf("expected 1 failed archive, got %f", v)
	}
	if v := testutil.ToFloat64(m.RecordsLoaded.WithLabelValues("current")); v != 5 {
		t.Errorf("expected 5 current records, got %f", v)
	}
	if n := testutil.CollectAndCount(m.RecordsLoaded); n != 2 {
		t.Errorf("failed archives must not add record series, got %d series", n)
	}
	if n := testutil.CollectAndCount(m.LoadDuration); n != 3 {
		t.Errorf("expected 3 duration series, got %d", n)
	}
}

func TestLoader_ObserveBytes(t *testing.T) {
	m := NewLoader(nil)
	m.ObserveBytes("file", 100)
	m.ObserveBytes("file", 20)
	m.ObserveBytes("s3", 7)

	if v := testutil.ToFloat64(m.ArchiveBytes.WithLabelValues("file")); v != 120 {
		t.Errorf("expected 120 bytes, got %f", v)
	}
}

func TestLoader_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLoader(reg)
	m.ObserveArchive("legacy", StatusOK, 1, 0.1)
	m.ObserveBytes("file", 1)

	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 series, got %d", n)
	}
}

func TestLoader_NilSafe(t *testing.T) {
	var m *Loader
	m.ObserveArchive("legacy", StatusOK, 1, 0)
	m.ObserveBytes("file", 1)
}

func TestNewLoader_SameRegistryTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewLoader(reg)
	second := NewLoader(reg)

	first.ObserveBytes("file", 5)
	second.ObserveBytes("file", 7)

	if v := testutil.ToFloat64(first.ArchiveBytes.WithLabelValues("file")); v != 12 {
		t.Errorf("expected shared counter at 12, got %f", v)
	}
	if n, err := testutil.GatherAndCount(reg, "overlaps_archive_bytes_total"); err != nil || n != 1 {
		t.Errorf("expected 1 series, got %d (%v)", n, err)
	}

	h1, h2 := NewHTTP(reg), NewHTTP(reg)
	if h1.requestsTotal != h2.requestsTotal {
		t.Error("expected HTTP metrics to reuse the registered collectors")
	}
}
