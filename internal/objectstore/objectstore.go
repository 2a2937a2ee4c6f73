// Package objectstore moves files between local scratch space and the raw and
// processed buckets.
//
// GCS talks to Cloud Storage; Local maps each bucket to a directory so the
// whole pipeline can run on one machine. Both satisfy Store.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"foreverstream/internal/config"
	"foreverstream/internal/services"
)

// ErrObjectNotFound reports a missing source object.
var ErrObjectNotFound = fmt.Errorf("%w: object not found", services.ErrNotFound)

// PredefinedACLPublicRead grants anonymous read access to an uploaded object.
const PredefinedACLPublicRead = "publicRead"

// UploadOptions controls metadata applied to an uploaded object.
type UploadOptions struct {
	ContentType string
	PublicRead  bool
}

// Store transfers objects to and from buckets.
type Store interface {
	Download(ctx context.Context, bucket, object, destPath string) error
	Upload(ctx context.Context, bucket, object, srcPath string, opts UploadOptions) error
}

// URI returns the gs:// form of an object or, with an empty object, a bucket
// prefix ending in "/".
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + strings.TrimPrefix(object, "/")
}

// PublicURL returns the anonymous HTTPS URL of an object under base, for
// example https://storage.googleapis.com/<bucket>/<object>.
func PublicURL(base, bucket, object string) string {
	base = strings.TrimRight(base, "/")
	segments := strings.Split(strings.TrimPrefix(object, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return base + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// Open builds the store selected by cfg.Buckets.Mode.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	if cfg == nil {
		return nil, nil, errors.New("objectstore: config is nil")
	}
	if cfg.UsesLocalBuckets() {
		return NewLocal(cfg.Buckets.LocalRoot), func() error { return nil }, nil
	}
	store, err := NewGCS(ctx)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
