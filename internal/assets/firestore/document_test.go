package firestore

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"foreverstream/internal/assets"
)

func TestDecodeDocumentReadsStoredFields(t *testing.T) {
	uploaded := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	processed := uploaded.Add(time.Hour)
	doc := toDocument(&assets.Record{
		ID:               "alice-1",
		OwnerID:          "alice",
		RawObjectName:    "alice-1.mov",
		Status:           assets.StatusProcessed,
		TranscodingJobID: "projects/p/locations/l/jobs/j",
		UploadedAt:       uploaded,
		ProcessedAt:      &processed,
		UpdatedAt:        processed,
	})
	data := map[string]any{
		"id":               doc.ID,
		"uid":              doc.OwnerID,
		"fileName":         doc.RawObjectName,
		"status":           doc.Status,
		"inputWidth":       int64(1920),
		"inputHeight":      int64(1080),
		"transcodingJobId": doc.TranscodingJobID,
		"processedUrl":     "https://storage.googleapis.com/b/alice-1/manifest.mpd",
		"uploadedAt":       doc.UploadedAt,
		"processedAt":      *doc.ProcessedAt,
		"updatedAt":        doc.UpdatedAt,
	}

	got, err := decodeDocument(data, "ignored")
	if err != nil {
		t.Fatalf("decodeDocument: %v", err)
	}
	if got.ID != "alice-1" || got.Status != assets.StatusProcessed || got.TranscodingJobID != doc.TranscodingJobID {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.InputWidth != 1920 || got.InputHeight != 1080 {
		t.Fatalf("unexpected dimensions %dx%d", got.InputWidth, got.InputHeight)
	}
	if got.ProcessedAt == nil || !got.ProcessedAt.Equal(processed) {
		t.Fatalf("unexpected processedAt: %v", got.ProcessedAt)
	}
}

func TestDecodeDocumentAcceptsUploadAPIShape(t *testing.T) {
	data := map[string]any{
		"Id":         "carol-3",
		"Uid":        "carol",
		"Filename":   "carol-3.mp4",
		"Status":     "uploaded",
		"UploadedAt": "2026-03-04T05:06:07.891Z",
	}
	rec, err := decodeDocument(data, "carol-3")
	if err != nil {
		t.Fatalf("decodeDocument: %v", err)
	}
	want := time.Date(2026, 3, 4, 5, 6, 7, 891000000, time.UTC)
	if !rec.UploadedAt.Equal(want) {
		t.Fatalf("uploadedAt = %v, want %v", rec.UploadedAt, want)
	}
	if rec.Status != assets.StatusUploaded || rec.OwnerID != "carol" || rec.RawObjectName != "carol-3.mp4" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.UpdatedAt.Equal(want) {
		t.Fatalf("expected updatedAt fallback to uploadedAt, got %v", rec.UpdatedAt)
	}
}

func TestDecodeDocumentRejectsMalformedTime(t *testing.T) {
	if _, err := decodeDocument(map[string]any{"uploadedAt": "yesterday"}, "x"); err == nil {
		t.Fatal("expected error for unparsable upload time")
	}
}

func TestDecodeDocumentFallsBackToRefID(t *testing.T) {
	uploaded := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := decodeDocument(map[string]any{"uid": "bob", "fileName": "bob-2.mp4", "status": "uploaded", "uploadedAt": uploaded}, "bob-2")
	if err != nil {
		t.Fatalf("decodeDocument: %v", err)
	}
	if rec.ID != "bob-2" {
		t.Fatalf("expected ref id fallback, got %q", rec.ID)
	}
	if !rec.UpdatedAt.Equal(uploaded) {
		t.Fatalf("expected updatedAt fallback to uploadedAt, got %v", rec.UpdatedAt)
	}
}

func TestClassifyMapsNotFound(t *testing.T) {
	err := classify(status.Error(codes.NotFound, "missing"), "ghost", "get")
	if !errors.Is(err, assets.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	other := classify(status.Error(codes.Unavailable, "down"), "x", "get")
	if errors.Is(other, assets.ErrNotFound) {
		t.Fatalf("unexpected not-found classification: %v", other)
	}
}
