package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"foreverstream/internal/fileutil"
)

// Local is a Store that maps bucket names to directories under a root.
type Local struct {
	root string
}

// NewLocal returns a Local store rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// Path returns the filesystem location of bucket/object.
func (l *Local) Path(bucket, object string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("invalid bucket name %q", bucket)
	}
	cleaned := filepath.Clean("/" + filepath.FromSlash(object))
	if cleaned == string(filepath.Separator) {
		return "", fmt.Errorf("invalid object name %q", object)
	}
	return filepath.Join(l.root, bucket, cleaned), nil
}

// Download copies bucket/object to destPath.
func (l *Local) Download(ctx context.Context, bucket, object, destPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := l.Path(bucket, object)
	if err != nil {
		return err
	}
	if err := fileutil.CopyFile(src, destPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, URI(bucket, object))
		}
		return fmt.Errorf("download %s: %w", URI(bucket, object), err)
	}
	return nil
}

// Upload copies srcPath into bucket/object with integrity verification.
// PublicRead has no filesystem meaning; objects are world-readable (0644).
func (l *Local) Upload(ctx context.Context, bucket, object, srcPath string, _ UploadOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := l.Path(bucket, object)
	if err != nil {
		return err
	}
	if err := fileutil.CopyFileVerified(srcPath, dst); err != nil {
		return fmt.Errorf("upload %s: %w", URI(bucket, object), err)
	}
	return nil
}
