package transcoder_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"foreverstream/internal/assets"
	"foreverstream/internal/testsupport"
	"foreverstream/internal/transcoder"
)

type reconcileFixture struct {
	store      *assets.Store
	backend    *testsupport.FakeBackend
	submitter  *transcoder.Submitter
	reconciler *transcoder.Reconciler
}

func newReconcileFixture(t *testing.T, now func() time.Time) reconcileFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	backend := testsupport.NewFakeBackend()
	return reconcileFixture{
		store:     store,
		backend:   backend,
		submitter: transcoder.NewSubmitter(store, backend, cfg.Buckets.Raw, cfg.Buckets.Processed, nil),
		reconciler: transcoder.NewReconciler(store, backend, transcoder.ReconcilerOptions{
			ProcessedBucket: cfg.Buckets.Processed,
			PublicBaseURL:   cfg.Buckets.PublicBaseURL,
			Grace:           5 * time.Minute,
			Now:             now,
		}),
	}
}

func later() time.Time { return time.Now().Add(time.Hour) }

func (f reconcileFixture) submitted(t *testing.T) (*assets.Record, string) {
	t.Helper()
	rec := testsupport.NewAsset(t, f.store)
	claim(t, f.store, rec.ID)
	result, err := f.submitter.Submit(context.Background(), transcoder.SubmitRequest{AssetID: rec.ID})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return rec, result.JobName
}

func TestReconcileSucceededJobMarksProcessed(t *testing.T) {
	f := newReconcileFixture(t, later)
	rec, job := f.submitted(t)
	f.backend.SetState(job, transcoder.JobStateSucceeded, "")

	report, err := f.reconciler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Checked != 1 || report.Completed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	stored, _ := f.store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusProcessed {
		t.Fatalf("expected processed, got %s", stored.Status)
	}
	want := "https://storage.googleapis.com/processed-videos/" + rec.ID + "/manifest.mpd"
	if stored.ProcessedManifestURL != want {
		t.Fatalf("manifest url = %q, want %q", stored.ProcessedManifestURL, want)
	}
	if stored.ProcessedAt == nil {
		t.Fatal("expected processedAt")
	}
}

func TestReconcileFailedJobMarksError(t *testing.T) {
	f := newReconcileFixture(t, later)
	rec, job := f.submitted(t)
	f.backend.SetState(job, transcoder.JobStateFailed, "unsupported codec")

	report, err := f.reconciler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	stored, _ := f.store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusError || stored.ErrorMessage != "unsupported codec" {
		t.Fatalf("expected error with backend message, got %s %q", stored.Status, stored.ErrorMessage)
	}
}

func TestReconcileLeavesRunningJobs(t *testing.T) {
	f := newReconcileFixture(t, later)
	rec, job := f.submitted(t)
	f.backend.SetState(job, transcoder.JobStateRunning, "")

	report, err := f.reconciler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Pending != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	stored, _ := f.store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusProcessing {
		t.Fatalf("expected processing, got %s", stored.Status)
	}
}

func TestReconcileRespectsGracePeriod(t *testing.T) {
	f := newReconcileFixture(t, time.Now)
	_, job := f.submitted(t)
	f.backend.SetState(job, transcoder.JobStateSucceeded, "")

	report, err := f.reconciler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Checked != 0 {
		t.Fatalf("fresh assets should not be checked, got %+v", report)
	}
}

func TestReconcileMarksJoblessAssetsError(t *testing.T) {
	f := newReconcileFixture(t, later)
	rec := testsupport.NewAsset(t, f.store)
	claim(t, f.store, rec.ID)

	report, err := f.reconciler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Checked != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(f.backend.Requests()) != 0 {
		t.Fatal("reconciler must not submit jobs")
	}
	stored, _ := f.store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusError {
		t.Fatalf("expected error, got %s", stored.Status)
	}
	if stored.ErrorMessage != "no transcoding job recorded" {
		t.Fatalf("unexpected error message %q", stored.ErrorMessage)
	}
}

func TestReconcileLeavesJoblessAssetsInsideGrace(t *testing.T) {
	f := newReconcileFixture(t, time.Now)
	rec := testsupport.NewAsset(t, f.store)
	claim(t, f.store, rec.ID)

	report, err := f.reconciler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Checked != 0 {
		t.Fatalf("fresh assets should not be checked, got %+v", report)
	}
	stored, _ := f.store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusProcessing {
		t.Fatalf("expected processing, got %s", stored.Status)
	}
}

func TestReconcileSkipsLocalEncodesInFlight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	rec := testsupport.NewAsset(t, store)
	claim(t, store, rec.ID)
	reconciler := transcoder.NewReconciler(store, testsupport.NewFakeBackend(), transcoder.ReconcilerOptions{
		ProcessedBucket: cfg.Buckets.Processed,
		Grace:           5 * time.Minute,
		Now:             later,
		InFlight:        func(id string) bool { return id == rec.ID },
	})

	report, err := reconciler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Skipped != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	stored, _ := store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusProcessing {
		t.Fatalf("expected processing, got %s", stored.Status)
	}
}

func TestReconcileLookupFailureIsReported(t *testing.T) {
	f := newReconcileFixture(t, later)
	rec, _ := f.submitted(t)
	f.backend.GetErr = errors.New("unavailable")

	report, err := f.reconciler.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if report.Errors != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	stored, _ := f.store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusProcessing {
		t.Fatalf("lookup failure must not change status, got %s", stored.Status)
	}
}
