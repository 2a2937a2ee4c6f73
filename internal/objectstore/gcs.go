package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"

	"foreverstream/internal/fileutil"
)

// GCS is a Store backed by Cloud Storage.
type GCS struct {
	client *storage.Client
}

// NewGCS creates a client using application default credentials.
func NewGCS(ctx context.Context) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCS{client: client}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Download streams gs://bucket/object to destPath.
func (g *GCS) Download(ctx context.Context, bucket, object, destPath string) error {
	reader, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, URI(bucket, object))
		}
		return fmt.Errorf("open %s: %w", URI(bucket, object), err)
	}
	defer reader.Close()

	if _, err := fileutil.WriteAtomic(destPath, reader, 0o644); err != nil {
		return fmt.Errorf("download %s: %w", URI(bucket, object), err)
	}
	return nil
}

// Upload streams srcPath to gs://bucket/object.
func (g *GCS) Upload(ctx context.Context, bucket, object, srcPath string, opts UploadOptions) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open upload source: %w", err)
	}
	defer file.Close()

	writer := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if opts.ContentType != "" {
		writer.ContentType = opts.ContentType
	}
	if opts.PublicRead {
		writer.PredefinedACL = PredefinedACLPublicRead
	}
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return fmt.Errorf("upload %s: %w", URI(bucket, object), err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", URI(bucket, object), err)
	}
	return nil
}
