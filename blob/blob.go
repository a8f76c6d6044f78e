// Package blob stores uploaded media behind one interface with local disk,
// S3 and GCS drivers. Logical buckets (shipment_updates, payment-proofs) become
// directories locally and key prefixes inside the configured cloud bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"tradedesk/config"
)

var ErrNotFound = errors.New("object not found")

// Store uploads objects and hands back their public URL.
type Store interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, bucket, key string) error
	URL(bucket, key string) string
}

// KeyFromURL recovers the object key of a URL produced by s.URL(bucket, ...).
func KeyFromURL(s Store, bucket, url string) (string, bool) {
	prefix := s.URL(bucket, "")
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}

// New builds the driver named in cfg.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Blob.Driver {
	case "local":
		return NewLocalStorage(cfg.Blob.LocalDir, cfg.Blob.PublicURL)
	case "s3":
		return NewS3Client(cfg.Blob.S3Region, cfg.Blob.Bucket)
	case "gcs":
		return NewGCSClient(ctx, cfg.Blob.Bucket, cfg.Blob.GCSCredentials)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
}

func objectPath(bucket, key string) string {
	return bucket + "/" + strings.TrimPrefix(key, "/")
}
