// Package valkey serves archives stored as plain string values in Valkey or Redis.
package valkey

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/overlaps/internal/blob"
)

// Compile-time check: Store implements blob.Store.
var _ blob.Store = (*Store)(nil)

// Config holds connection parameters.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store reads archives with GET.
type Store struct {
	client rueidis.Client
	prefix string
}

// NewStore connects via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, prefix: cfg.KeyPrefix}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// Open fetches the value stored at the key.
func (s *Store) Open(ctx context.Context, name string) (blob.Blob, error) {
	key := s.prefix + name
	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, fmt.Errorf("valkey %s: %w", key, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("valkey GET %s: %w", key, err)
	}
	return blob.Bytes(data), nil
}
