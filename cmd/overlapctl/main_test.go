package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/overlaps"
	"github.com/kailas-cloud/overlaps/internal/blob"
	"github.com/kailas-cloud/overlaps/internal/config"
	"github.com/kailas-cloud/overlaps/internal/export"
	fixtures "github.com/kailas-cloud/overlaps/internal/testutil"
	chiTransport "github.com/kailas-cloud/overlaps/internal/transport/chi"
	healthuc "github.com/kailas-cloud/overlaps/internal/usecase/health"
)

func TestParseFlags(t *testing.T) {
	fl, err := parseFlags([]string{"-no-shuffle", "-seed", "42", "-export", "out.parquet", "a.npz", "b.npz"})
	require.NoError(t, err)

	assert.True(t, fl.noShuffle)
	require.NotNil(t, fl.seed)
	assert.Equal(t, uint64(42), *fl.seed)
	assert.Equal(t, "out.parquet", fl.export)
	assert.Equal(t, -1, fl.metricsPort)
	assert.Equal(t, []string{"a.npz", "b.npz"}, fl.archives)
}

func TestParseFlags_BadSeed(t *testing.T) {
	_, err := parseFlags([]string{"-seed", "-3"})
	assert.Error(t, err)
}

func TestFlagsApply(t *testing.T) {
	cfg, err := config.Parse([]byte("loader:\n  archives: [from-config.npz]\nmetrics:\n  port: 9090\n"))
	require.NoError(t, err)

	seed := uint64(7)
	flags{noShuffle: true, seed: &seed, metricsPort: 0, archives: []string{"x.npz"}}.apply(&cfg)

	assert.Equal(t, []string{"x.npz"}, cfg.Loader.Archives)
	assert.False(t, *cfg.Loader.Shuffle)
	assert.Equal(t, uint64(7), *cfg.Loader.Seed)
	assert.Equal(t, 0, cfg.Metrics.Port)
}

func TestFlagsApply_KeepsConfigWhenUnset(t *testing.T) {
	cfg, err := config.Parse([]byte("loader:\n  archives: [from-config.npz]\nmetrics:\n  port: 9090\n"))
	require.NoError(t, err)

	flags{metricsPort: -1}.apply(&cfg)

	assert.Equal(t, []string{"from-config.npz"}, cfg.Loader.Archives)
	assert.True(t, *cfg.Loader.Shuffle)
	assert.Nil(t, cfg.Loader.Seed)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestSummarize(t *testing.T) {
	cols := overlaps.Columns{}
	assert.Equal(t, summary{}, summarize(&cols))

	c := &overlaps.Columns{
		IDA: []string{"1", "2"}, IDB: []string{"3", "4"},
		DirA: []string{"", "00"}, DirB: []string{"", "01"},
		Overlap: []float64{0.2, 0.8},
		Yaw:     []float64{0, 0}, Pitch: []float64{0, 0}, Roll: []float64{0, 0},
		TX: []float64{0, 0}, TY: []float64{0, 0}, TZ: []float64{0, 0},
	}
	s := summarize(c)
	assert.Equal(t, 2, s.Records)
	assert.Equal(t, 1, s.WithDirs)
	assert.InDelta(t, 0.5, s.MeanOverlap, 1e-12)
	assert.InDelta(t, 0.2, s.MinOverlap, 1e-12)
	assert.InDelta(t, 0.8, s.MaxOverlap, 1e-12)
	assert.False(t, math.IsInf(s.MinOverlap, 0))
	assert.Len(t, s.fields(), 5)
}

func TestSourceOptions_LocalOnly(t *testing.T) {
	opts := sourceOptions(config.SourcesConfig{})
	require.Len(t, opts, 1)

	loader, err := overlaps.New(context.Background(), opts...)
	require.NoError(t, err)
	defer loader.Close()
	assert.Equal(t, []string{blob.SchemeFile}, loader.Schemes())

	health := healthuc.New()
	registerHealth(health, loader)
	assert.Equal(t, []string{"local"}, health.Names())
}

func TestSourceOptions_S3AndMinio(t *testing.T) {
	opts := sourceOptions(config.SourcesConfig{
		S3:    config.S3Source{Enabled: true, Region: "us-east-1", Endpoint: "http://127.0.0.1:9000", Prefix: "kitti/"},
		Minio: config.MinioSource{Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk", Prefix: "kitti/"},
	})
	require.Len(t, opts, 3)

	loader, err := overlaps.New(context.Background(), opts...)
	require.NoError(t, err)
	defer loader.Close()
	assert.Equal(t, []string{blob.SchemeFile, blob.SchemeMinio, blob.SchemeS3}, loader.Schemes())
	assert.Empty(t, loader.Pingers())
}

func TestSourceOptions_Valkey(t *testing.T) {
	opts := sourceOptions(config.SourcesConfig{
		Valkey: config.ValkeySource{Addrs: []string{"127.0.0.1:6379"}, DB: 2},
	})
	assert.Len(t, opts, 2)
}

func TestLoad_SummaryAndExport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.npz"), fixtures.CurrentNPZ(
		[][]float64{
			{1, 2, 0.9, 0, 0, 0, 0, 0, 0},
			{3, 4, 0.7, 0, 0, 0, 0, 0, 0},
		},
		[][]string{{"00", "01"}, {"02", "03"}},
	), 0o600))

	loader, err := overlaps.New(context.Background(), overlaps.WithLocalRoot(dir), overlaps.WithShuffle(false))
	require.NoError(t, err)
	defer loader.Close()

	out := filepath.Join(dir, "out", "records.parquet")
	cfg := config.Config{
		Loader: config.LoaderConfig{Archives: []string{"a.npz"}},
		Export: config.ExportConfig{ParquetPath: out},
	}
	progress := chiTransport.NewProgress(1, nil)
	core, logs := observer.New(zap.InfoLevel)

	require.NoError(t, load(context.Background(), loader, cfg, progress, zap.New(core)))

	st := progress.Snapshot()
	assert.Equal(t, chiTransport.PhaseDone, st.Phase)
	assert.Equal(t, 2, st.Records)

	entries := logs.FilterMessage("Load complete").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["records"])
	assert.InDelta(t, 0.8, entries[0].ContextMap()["mean_overlap"], 1e-12)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)
	got, err := export.ReadParquet(f, info.Size())
	require.NoError(t, err)
	assert.Equal(t, []string{"000001", "000003"}, got.IDA)
	assert.Equal(t, []string{"00", "02"}, got.DirA)
}

func TestLoad_FailureMarksProgress(t *testing.T) {
	loader, err := overlaps.New(context.Background(), overlaps.WithLocalRoot(t.TempDir()), overlaps.WithShuffle(false))
	require.NoError(t, err)
	defer loader.Close()

	cfg := config.Config{Loader: config.LoaderConfig{Archives: []string{"missing.npz"}}}
	progress := chiTransport.NewProgress(1, nil)

	err = load(context.Background(), loader, cfg, progress, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, overlaps.ErrNotFound)
	assert.Equal(t, chiTransport.PhaseFailed, progress.Snapshot().Phase)
}
