// Package kvstore provides the durable key-value slots that hold serialized
// application state. Every backend stores opaque byte values under string keys
// and overwrites a key wholesale on Put.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a durable key-value slot.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	BackendMemory   = "memory"
	BackendLocal    = "local"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Config selects and configures a backend
type Config struct {
	Backend   string
	Dir       string
	KeyPrefix string

	RedisURL    string
	DatabaseURL string

	S3 S3Config
}

// Open constructs the backend named by cfg.Backend
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(), nil
	case BackendLocal:
		return NewLocal(cfg.Dir)
	case BackendRedis:
		return OpenRedis(cfg.RedisURL, cfg.KeyPrefix)
	case BackendPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case BackendS3:
		s3cfg := cfg.S3
		if s3cfg.Prefix == "" {
			s3cfg.Prefix = cfg.KeyPrefix
		}
		return NewS3(ctx, s3cfg)
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", cfg.Backend)
	}
}
