package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements Store on a directory tree, one subdirectory per
// bucket. It is used for development and tests.
type LocalStore struct {
	root   string
	bucket string
}

// NewLocalStore creates the bucket directory under root if needed.
func NewLocalStore(root, bucket string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local store root is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	dir := filepath.Join(root, bucket)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return &LocalStore{root: root, bucket: bucket}, nil
}

// Bucket returns the bucket name.
func (s *LocalStore) Bucket() string {
	return s.bucket
}

// Put writes body under key, replacing any existing object.
func (s *LocalStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, bytes.NewReader(body))
}

// Download copies the object at key into destPath.
func (s *LocalStore) Download(ctx context.Context, key, destPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, s.bucket, key)
		}
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer f.Close()

	return writeFileAtomic(destPath, f)
}

func (s *LocalStore) pathFor(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.root, s.bucket, clean), nil
}
