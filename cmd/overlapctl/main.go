// Command overlapctl loads overlap record archives, logs a summary and
// optionally exports the records to Parquet.
//
// Usage:
//
//	overlapctl [-no-shuffle] [-seed N] [-export out.parquet] [-metrics-port 9090] [-serve] [archive ...]
//
// Archives given as arguments replace loader.archives from config/<ENV>.yaml.
// Locations may be plain paths or s3://, minio:// and valkey:// URLs; a
// .zst or .lz4 suffix is decompressed on the fly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/overlaps"
	"github.com/kailas-cloud/overlaps/internal/config"
	"github.com/kailas-cloud/overlaps/internal/export"
	logpkg "github.com/kailas-cloud/overlaps/internal/logger"
	"github.com/kailas-cloud/overlaps/internal/metrics"
	chiTransport "github.com/kailas-cloud/overlaps/internal/transport/chi"
	healthuc "github.com/kailas-cloud/overlaps/internal/usecase/health"
	"github.com/kailas-cloud/overlaps/internal/version"
)

func main() {
	fl, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, fl); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "overlapctl:", err)
		os.Exit(1)
	}
}

type flags struct {
	noShuffle   bool
	seed        *uint64
	export      string
	metricsPort int
	serve       bool
	archives    []string
}

func parseFlags(args []string) (flags, error) {
	var fl flags
	fs := flag.NewFlagSet("overlapctl", flag.ContinueOnError)
	fs.BoolVar(&fl.noShuffle, "no-shuffle", false, "keep records in file order")
	seed := fs.String("seed", "", "shuffle seed (default: loader.seed or a fresh one)")
	fs.StringVar(&fl.export, "export", "", "write loaded records to this .parquet file")
	fs.IntVar(&fl.metricsPort, "metrics-port", -1, "status server port, 0 disables (default: metrics.port)")
	fs.BoolVar(&fl.serve, "serve", false, "keep the status server up after loading until interrupted")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}

	if *seed != "" {
		v, err := strconv.ParseUint(*seed, 10, 64)
		if err != nil {
			return flags{}, fmt.Errorf("invalid -seed %q: %w", *seed, err)
		}
		fl.seed = &v
	}
	fl.archives = fs.Args()
	return fl, nil
}

// apply overrides config values with the ones given on the command line.
func (fl flags) apply(cfg *config.Config) {
	if len(fl.archives) > 0 {
		cfg.Loader.Archives = fl.archives
	}
	if fl.noShuffle {
		shuffle := false
		cfg.Loader.Shuffle = &shuffle
	}
	if fl.seed != nil {
		cfg.Loader.Seed = fl.seed
	}
	if fl.export != "" {
		cfg.Export.ParquetPath = fl.export
	}
	if fl.metricsPort >= 0 {
		cfg.Metrics.Port = fl.metricsPort
	}
}

func run(ctx context.Context, fl flags) error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return err
	}
	fl.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting overlapctl",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Strings("archives", cfg.Loader.Archives),
		zap.Bool("shuffle", *cfg.Loader.Shuffle),
		zap.Int("metrics_port", cfg.Metrics.Port),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := append(sourceOptions(cfg.Sources),
		overlaps.WithShuffle(*cfg.Loader.Shuffle),
		overlaps.WithLogger(logger),
		overlaps.WithPrometheus(reg),
	)
	if cfg.Loader.Seed != nil {
		opts = append(opts, overlaps.WithSeed(*cfg.Loader.Seed))
	}
	loader, err := overlaps.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer loader.Close()
	logger.Info("Sources configured", zap.Strings("schemes", loader.Schemes()))

	health := healthuc.New()
	registerHealth(health, loader)

	var seedPtr *uint64
	if seed, ok := loader.Seed(); ok && *cfg.Loader.Shuffle {
		seedPtr = &seed
	}
	progress := chiTransport.NewProgress(len(cfg.Loader.Archives), seedPtr)

	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.Metrics.Port > 0 {
		server := chiTransport.NewServer(health, reg, progress, logger)
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           server.Router(cfg.Metrics.APIKeys, metrics.NewHTTP(reg)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Starting status server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer shutdown(srv, time.Duration(cfg.Metrics.ShutdownSec)*time.Second, logger)

		if err := load(gctx, loader, cfg, progress, logger); err != nil {
			return err
		}
		if fl.serve && srv != nil {
			logger.Info("Load finished, serving until interrupted")
			<-gctx.Done()
		}
		return nil
	})

	return g.Wait()
}

func load(
	ctx context.Context,
	loader *overlaps.Loader,
	cfg config.Config,
	progress *chiTransport.Progress,
	logger *zap.Logger,
) error {
	cols, err := loader.Load(ctx, cfg.Loader.Archives)
	if err != nil {
		progress.Fail(err)
		logger.Error("Load failed", zap.Error(err))
		return fmt.Errorf("load: %w", err)
	}
	progress.Done(cols.Len())
	logger.Info("Load complete", summarize(cols).fields()...)

	if p := cfg.Export.ParquetPath; p != "" {
		if err := export.WriteFile(p, cols); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		logger.Info("Exported records", zap.String("path", p), zap.Int("records", cols.Len()))
	}
	return nil
}

func shutdown(srv *http.Server, timeout time.Duration, logger *zap.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return
	}
	logger.Info("Status server stopped")
}
