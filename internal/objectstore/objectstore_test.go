package objectstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"foreverstream/internal/objectstore"
	"foreverstream/internal/services"
)

func TestURIAndPublicURL(t *testing.T) {
	if got := objectstore.URI("raw", "alice-1.mp4"); got != "gs://raw/alice-1.mp4" {
		t.Fatalf("unexpected object uri %q", got)
	}
	if got := objectstore.URI("processed", "alice-1/"); got != "gs://processed/alice-1/" {
		t.Fatalf("unexpected prefix uri %q", got)
	}
	got := objectstore.PublicURL("https://storage.googleapis.com/", "processed", "alice-1/manifest.mpd")
	if got != "https://storage.googleapis.com/processed/alice-1/manifest.mpd" {
		t.Fatalf("unexpected public url %q", got)
	}
	if got := objectstore.PublicURL("https://cdn.example", "b", "my clip.mp4"); got != "https://cdn.example/b/my%20clip.mp4" {
		t.Fatalf("expected escaped segment, got %q", got)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := objectstore.NewLocal(root)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(src, []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Upload(ctx, "processed", "processed-clip.mp4", src, objectstore.UploadOptions{PublicRead: true}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "copy.mp4")
	if err := store.Download(ctx, "processed", "processed-clip.mp4", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "frames" {
		t.Fatalf("unexpected downloaded content %q %v", data, err)
	}
}

func TestLocalDownloadMissingObject(t *testing.T) {
	store := objectstore.NewLocal(t.TempDir())
	err := store.Download(context.Background(), "raw", "ghost.mp4", filepath.Join(t.TempDir(), "x"))
	if !errors.Is(err, objectstore.ErrObjectNotFound) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalPathStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := objectstore.NewLocal(root)
	path, err := store.Path("raw", "../../etc/passwd")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if path != filepath.Join(root, "raw", "etc", "passwd") {
		t.Fatalf("expected path confined to root, got %q", path)
	}
	if _, err := store.Path("../raw", "x"); err == nil {
		t.Fatal("expected invalid bucket error")
	}
}
