package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSClient struct {
	client     *storage.Client
	bucketName string
}

// NewGCSClient uses the credentials file when given, else application default credentials.
func NewGCSClient(ctx context.Context, bucketName, credentialsFile string) (*GCSClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GCSClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (c *GCSClient) Put(ctx context.Context, bucket, key string, r io.Reader, _ int64, contentType string) (string, error) {
	writer := c.client.Bucket(c.bucketName).Object(objectPath(bucket, key)).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("gcs write %s: %w", key, err)
	}
	// the object only exists once Close succeeds
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", key, err)
	}
	return c.URL(bucket, key), nil
}

func (c *GCSClient) Delete(ctx context.Context, bucket, key string) error {
	err := c.client.Bucket(c.bucketName).Object(objectPath(bucket, key)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

func (c *GCSClient) URL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectPath(bucket, key))
}
