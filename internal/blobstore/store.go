// Package blobstore stores photo and reel artifacts in a partitioned key space.
package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/race-reels/internal/config"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("blob not found")

// Store puts and fetches binary objects by key. Put is an overwrite-safe
// upsert. Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Download(ctx context.Context, key, destPath string) error
	Bucket() string
}

// New builds the store selected by storage.backend
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendS3, "":
		store, err := NewS3Store(ctx, S3Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			UsePathStyle:    cfg.Storage.UsePathStyle,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Timeout:         cfg.StorageTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageBackendLocal:
		store, err := NewLocalStore(cfg.Storage.LocalRoot, cfg.Storage.Bucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}
