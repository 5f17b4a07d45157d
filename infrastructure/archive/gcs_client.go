package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig configures the Google Cloud Storage client.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string // empty uses Application Default Credentials
}

// GCSClient stores objects in one GCS bucket.
type GCSClient struct {
	client *gcs.Client
	bucket string
}

// NewGCSClient creates a GCS client.
func NewGCSClient(ctx context.Context, cfg GCSConfig) (*GCSClient, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSClient{client: client, bucket: cfg.Bucket}, nil
}

// Close closes the underlying client.
func (c *GCSClient) Close() error {
	return c.client.Close()
}

// Upload writes the object.
func (c *GCSClient) Upload(ctx context.Context, key string, content io.Reader, _ int64) error {
	w := c.client.Bucket(c.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := io.Copy(w, content); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}

// Download opens a reader on the object.
func (c *GCSClient) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := c.client.Bucket(c.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	return r, err
}

// Delete deletes the object.
func (c *GCSClient) Delete(ctx context.Context, key string) error {
	err := c.client.Bucket(c.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}

// List iterates the objects under prefix.
func (c *GCSClient) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	it := c.client.Bucket(c.bucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, Object{Key: attrs.Name, Size: attrs.Size, Modified: attrs.Updated})
	}
	return objects, nil
}

var _ Client = (*GCSClient)(nil)
