// Package gcs loads database objects from Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/referer-classifier/internal/storage"
)

// Config captures the parameters required to read from GCS.
type Config struct {
	Bucket string
}

// Store reads objects from a configured GCS bucket.
type Store struct {
	client *cloudstorage.Client
	bucket string
	logger *zap.Logger
}

// New creates a GCS-backed store.
func New(client *cloudstorage.Client, cfg Config, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// Load downloads the named object.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("path is required")
	}
	uri := URI(s.bucket, name)
	reader, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, cloudstorage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, uri)
		}
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			s.logger.Warn("Failed to close GCS reader", zap.String("uri", uri), zap.Error(cerr))
		}
	}()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return data, nil
}

// URI formats a gs:// URI for bucket and object.
func URI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// ParseURI splits a gs://bucket/object URI.
func ParseURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs uri needs bucket and object: %q", uri)
	}
	return bucket, object, nil
}
