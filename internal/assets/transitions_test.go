package assets

import (
	"strings"
	"testing"
	"time"
)

func TestCanTransitionTable(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusUploaded, StatusProcessing}:   true,
		{StatusUploaded, StatusError}:        true,
		{StatusProcessing, StatusProcessing}: true,
		{StatusProcessing, StatusProcessed}:  true,
		{StatusProcessing, StatusError}:      true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTransitionErrorNamesFinalStatus(t *testing.T) {
	_, err := PrepareTransition(&Record{ID: "a", Status: StatusProcessed}, StatusError, Fields{ErrorMessage: "late"}, time.Now())
	te, ok := IsTransitionError(err)
	if !ok {
		t.Fatalf("expected transition error, got %v", err)
	}
	if !strings.Contains(te.Error(), "processed is final") {
		t.Fatalf("unexpected message %q", te.Error())
	}
	_, err = PrepareTransition(&Record{ID: "b", Status: StatusUploaded}, StatusProcessed, Fields{}, time.Now())
	if err == nil || strings.Contains(err.Error(), "final") {
		t.Fatalf("uploaded is not final, got %v", err)
	}
}

func TestApplyTransitionDefaultsProcessedAt(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	rec := &Record{ID: "a", Status: StatusProcessing, TranscodingJobID: "job"}
	next, err := PrepareTransition(rec, StatusProcessed, Fields{ProcessedObjectName: "processed-a.mp4"}, now)
	if err != nil {
		t.Fatalf("PrepareTransition: %v", err)
	}
	if next.ProcessedAt == nil || !next.ProcessedAt.Equal(now) {
		t.Fatalf("expected processedAt defaulted to now, got %v", next.ProcessedAt)
	}
	if next.TranscodingJobID != "job" || next.ProcessedObjectName != "processed-a.mp4" {
		t.Fatalf("unexpected record: %+v", next)
	}
	if rec.Status != StatusProcessing {
		t.Fatal("PrepareTransition must not mutate the observed record")
	}
}

func TestNewID(t *testing.T) {
	got := NewID(" alice ", time.UnixMilli(1700000000123))
	if got != "alice-1700000000123" {
		t.Fatalf("unexpected id %q", got)
	}
}

func TestIDFromObjectName(t *testing.T) {
	cases := map[string]string{
		"owner-1700000000000.mp4":         "owner-1700000000000",
		"uploads/owner-1700000000000.mov": "owner-1700000000000",
		"archive.tar.gz":                  "archive.tar",
		"noext":                           "noext",
		".hidden":                         ".hidden",
	}
	for in, want := range cases {
		if got := IDFromObjectName(in); got != want {
			t.Errorf("IDFromObjectName(%q) = %q, want %q", in, got, want)
		}
	}
}
