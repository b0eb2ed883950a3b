package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pranganb/vtube/config"
)

// Media objects are content-addressed by random keys and never rewritten.
const cacheControl = "public, max-age=31536000, immutable"

// ObjectStorage is a media host backend.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Delete succeeds when the object is already gone.
	Delete(ctx context.Context, key string) error
	ObjectURL(key string) string
}

// Storage wraps an ObjectStorage backend and builds public object URLs.
type Storage struct {
	backend   ObjectStorage
	publicURL string
}

// NewStorage wraps backend. When publicURL is set, object URLs are built from
// it instead of the backend's own endpoint, e.g. a CDN in front of the bucket.
func NewStorage(backend ObjectStorage, publicURL string) *Storage {
	return &Storage{
		backend:   backend,
		publicURL: strings.TrimRight(strings.TrimSpace(publicURL), "/"),
	}
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewStorage(backend, cfg.PublicURL), nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// URL returns the durable public URL of key.
func (s *Storage) URL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + strings.TrimLeft(key, "/")
	}
	return s.backend.ObjectURL(key)
}
