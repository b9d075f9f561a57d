package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kailas-cloud/overlaps/internal/blob"
)

var _ blob.Store = (*Store)(nil)

// Client is the subset of the S3 API the store needs.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds connection parameters for New.
type Config struct {
	Region   string
	Endpoint string // optional, enables path-style addressing
	Prefix   string
}

// Store reads objects addressed as "bucket/key".
type Store struct {
	client Client
	prefix string
}

// NewStore creates a store over client. prefix is prepended to every key.
func NewStore(client Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// New builds an S3 client from the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewStore(client, cfg.Prefix), nil
}

// Open downloads the whole object.
func (s *Store) Open(ctx context.Context, name string) (blob.Blob, error) {
	bucket, key, err := s.split(name)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3 %s/%s: %w", bucket, key, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s/%s: %w", bucket, key, err)
	}
	return blob.Bytes(data), nil
}

func (s *Store) split(name string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(name, "/"), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3: location %q is not bucket/key", name)
	}
	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}
	return bucket, key, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}
