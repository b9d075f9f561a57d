package minio

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kailas-cloud/overlaps/internal/blob"
)

var _ blob.Store = (*Store)(nil)

// Config holds connection parameters for New.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Store reads objects addressed as "bucket/key".
type Store struct {
	client *minio.Client
	prefix string
}

// NewStore creates a store over client. prefix is prepended to every key.
func NewStore(client *minio.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// New connects to the configured endpoint with static credentials.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio: endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return NewStore(client, cfg.Prefix), nil
}

// Open downloads the whole object.
func (s *Store) Open(ctx context.Context, name string) (blob.Blob, error) {
	bucket, key, err := split(name, s.prefix)
	if err != nil {
		return nil, err
	}

	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("minio %s/%s: %w", bucket, key, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("minio stat %s/%s: %w", bucket, key, err)
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data := make([]byte, info.Size)
	if _, err := io.ReadFull(obj, data); err != nil {
		return nil, fmt.Errorf("minio read %s/%s: %w", bucket, key, err)
	}
	return blob.Bytes(data), nil
}

func split(name, prefix string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(name, "/"), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("minio: location %q is not bucket/key", name)
	}
	if prefix != "" {
		key = path.Join(prefix, key)
	}
	return bucket, key, nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound" || code == "NoSuchBucket"
}
