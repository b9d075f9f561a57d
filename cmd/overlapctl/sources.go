package main

import (
	"context"

	"github.com/kailas-cloud/overlaps"
	"github.com/kailas-cloud/overlaps/internal/config"
	healthuc "github.com/kailas-cloud/overlaps/internal/usecase/health"
)

// sourceOptions turns the sources section into loader options. A backend
// is enabled when its section names somewhere to connect to.
func sourceOptions(cfg config.SourcesConfig) []overlaps.Option {
	opts := []overlaps.Option{overlaps.WithLocalRoot(cfg.Local.Root)}

	if cfg.S3.Enabled {
		opts = append(opts, overlaps.WithS3(overlaps.S3Config{
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
			Prefix:   cfg.S3.Prefix,
		}))
	}
	if cfg.Minio.Endpoint != "" {
		opts = append(opts, overlaps.WithMinio(overlaps.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Prefix:    cfg.Minio.Prefix,
		}))
	}
	if len(cfg.Valkey.Addrs) > 0 {
		opts = append(opts, overlaps.WithValkey(overlaps.ValkeyConfig{
			Addrs:     cfg.Valkey.Addrs,
			Username:  cfg.Valkey.Username,
			Password:  cfg.Valkey.Password,
			DB:        cfg.Valkey.DB,
			KeyPrefix: cfg.Valkey.KeyPrefix,
		}))
	}
	return opts
}

// registerHealth adds a check for local reads and one per connected backend.
func registerHealth(health *healthuc.Service, loader *overlaps.Loader) {
	health.Register("local", healthuc.PingerFunc(func(context.Context) error { return nil }))
	for scheme, p := range loader.Pingers() {
		health.Register(scheme, p)
	}
}
