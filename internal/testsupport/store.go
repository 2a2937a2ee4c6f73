package testsupport

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"foreverstream/internal/assets"
	"foreverstream/internal/config"
)

// MustOpenStore opens an assets.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *assets.Store {
	t.Helper()

	store, err := assets.Open(cfg)
	if err != nil {
		t.Fatalf("assets.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// AssetOption customizes a record created by NewAsset.
type AssetOption func(*assets.Record)

// WithDimensions sets the input dimensions on the created record.
func WithDimensions(width, height int) AssetOption {
	return func(rec *assets.Record) {
		rec.InputWidth = width
		rec.InputHeight = height
	}
}

// WithID overrides the asset id; the raw object becomes <id>.mp4.
func WithID(id string) AssetOption {
	return func(rec *assets.Record) {
		rec.ID = id
		rec.RawObjectName = id + ".mp4"
	}
}

var assetSeq atomic.Int64

// NewAsset inserts an uploaded record with a unique id and a raw object named
// <id>.mp4, 1920x1080 unless overridden.
func NewAsset(t testing.TB, store assets.Repository, opts ...AssetOption) *assets.Record {
	t.Helper()

	uploaded := time.UnixMilli(1_700_000_000_000 + assetSeq.Add(1)).UTC()
	id := assets.NewID("owner", uploaded)
	rec := &assets.Record{
		ID:            id,
		OwnerID:       "owner",
		RawObjectName: fmt.Sprintf("%s.mp4", id),
		Title:         "Test Video",
		InputWidth:    1920,
		InputHeight:   1080,
		UploadedAt:    uploaded,
	}
	for _, opt := range opts {
		opt(rec)
	}
	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("create asset %s: %v", rec.ID, err)
	}
	return rec
}
