// Package gcs fetches raw receipt documents from Google Cloud Storage and
// writes analysis artifacts back. Application Default Credentials are
// assumed.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Store wraps one shared storage client.
type Store struct {
	client *storage.Client
}

// New creates a GCS store.
func New(ctx context.Context) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs.New: create storage client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Fetch downloads the object bytes behind a gs:// URI.
func (s *Store) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := SplitURI(gcsURI)
	if err != nil {
		return nil, err
	}

	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: read GCS object: %w", err)
	}
	return data, nil
}

// FetchText downloads an object and returns it as a string. Receipt raw
// text and parsed JSON blobs are stored as UTF-8 text objects.
func (s *Store) FetchText(ctx context.Context, gcsURI string) (string, error) {
	data, err := s.Fetch(ctx, gcsURI)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Save uploads bytes to the given bucket and object, finalizing within the
// timeout.
func (s *Store) Save(ctx context.Context, bucket, object string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("Save: write to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Save: finalize upload: %w", err)
	}
	return nil
}

// SplitURI parses "gs://bucket/path/to/object" into bucket and object path.
func SplitURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// Filename extracts the base filename from a gs:// URI.
func Filename(gcsURI string) string {
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
