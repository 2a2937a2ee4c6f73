package transcoder_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"foreverstream/internal/assets"
	"foreverstream/internal/services"
	"foreverstream/internal/streamplan"
	"foreverstream/internal/testsupport"
	"foreverstream/internal/transcoder"
)

func newSubmitter(t *testing.T) (*transcoder.Submitter, *assets.Store, *testsupport.FakeBackend) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	backend := testsupport.NewFakeBackend()
	return transcoder.NewSubmitter(store, backend, cfg.Buckets.Raw, cfg.Buckets.Processed, nil), store, backend
}

func claim(t *testing.T, store *assets.Store, id string) {
	t.Helper()
	got, err := store.ClaimForProcessing(context.Background(), id)
	if err != nil {
		t.Fatalf("ClaimForProcessing: %v", err)
	}
	if got != assets.Eligible {
		t.Fatalf("expected eligible claim, got %s", got)
	}
}

func TestSubmitRecordsJobHandle(t *testing.T) {
	submitter, store, backend := newSubmitter(t)
	rec := testsupport.NewAsset(t, store, testsupport.WithID("owner-1700000000123"))
	claim(t, store, rec.ID)

	result, err := submitter.Submit(context.Background(), transcoder.SubmitRequest{
		AssetID:       rec.ID,
		RawObjectName: rec.RawObjectName,
		Width:         1920,
		Height:        1080,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	requests := backend.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected one backend request, got %d", len(requests))
	}
	req := requests[0]
	if req.InputURI != "gs://raw-videos/owner-1700000000123.mp4" {
		t.Fatalf("unexpected input uri %q", req.InputURI)
	}
	if req.OutputURI != "gs://processed-videos/owner-1700000000123/" {
		t.Fatalf("unexpected output uri %q", req.OutputURI)
	}
	if got := len(req.Plan.VideoStreams()); got != 3 {
		t.Fatalf("expected 3 video streams for 1080p input, got %d", got)
	}
	if req.Plan.Manifests[0].FileName != streamplan.ManifestFileName {
		t.Fatalf("unexpected manifest %q", req.Plan.Manifests[0].FileName)
	}

	stored, err := store.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != assets.StatusProcessing {
		t.Fatalf("expected processing, got %s", stored.Status)
	}
	if stored.TranscodingJobID != result.JobName || result.JobName == "" {
		t.Fatalf("job handle not recorded: stored=%q result=%q", stored.TranscodingJobID, result.JobName)
	}
	if stored.InputResolution != "1920x1080" {
		t.Fatalf("expected input resolution 1920x1080, got %q", stored.InputResolution)
	}
}

func TestSubmitFillsDimensionsFromRecord(t *testing.T) {
	submitter, store, backend := newSubmitter(t)
	rec := testsupport.NewAsset(t, store, testsupport.WithDimensions(640, 360))
	claim(t, store, rec.ID)

	result, err := submitter.Submit(context.Background(), transcoder.SubmitRequest{AssetID: rec.ID})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(result.Renditions) != 1 || result.Renditions[0].Label != "480p" {
		t.Fatalf("expected only 480p, got %+v", result.Renditions)
	}
	if got := backend.Requests()[0].InputURI; !strings.HasSuffix(got, "/"+rec.RawObjectName) {
		t.Fatalf("expected raw object from record, got %q", got)
	}
	if result.InputResolution != "640x360" {
		t.Fatalf("unexpected resolution %q", result.InputResolution)
	}
}

func TestSubmitMissingDimensionsMarksError(t *testing.T) {
	submitter, store, backend := newSubmitter(t)
	rec := testsupport.NewAsset(t, store, testsupport.WithDimensions(0, 0))
	claim(t, store, rec.ID)

	_, err := submitter.Submit(context.Background(), transcoder.SubmitRequest{AssetID: rec.ID})
	if !errors.Is(err, transcoder.ErrMissingDimensions) {
		t.Fatalf("expected ErrMissingDimensions, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if len(backend.Requests()) != 0 {
		t.Fatal("backend should not be called without dimensions")
	}
	stored, _ := store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusError || stored.ErrorMessage == "" {
		t.Fatalf("expected error status with message, got %s %q", stored.Status, stored.ErrorMessage)
	}
}

func TestSubmitBackendFailureMarksError(t *testing.T) {
	submitter, store, backend := newSubmitter(t)
	backend.CreateErr = errors.New("quota exceeded")
	rec := testsupport.NewAsset(t, store)
	claim(t, store, rec.ID)

	_, err := submitter.Submit(context.Background(), transcoder.SubmitRequest{AssetID: rec.ID})
	if !errors.Is(err, transcoder.ErrBackendSubmissionFailed) {
		t.Fatalf("expected ErrBackendSubmissionFailed, got %v", err)
	}
	if services.HTTPStatus(err) != 500 {
		t.Fatalf("expected 500 classification, got %d", services.HTTPStatus(err))
	}
	stored, _ := store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusError {
		t.Fatalf("expected error status, got %s", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, "quota exceeded") {
		t.Fatalf("expected backend message in record, got %q", stored.ErrorMessage)
	}
}

// flakyGetStore fails the first Get after the asset was claimed.
type flakyGetStore struct {
	*assets.Store
	failures int
}

func (s *flakyGetStore) Get(ctx context.Context, id string) (*assets.Record, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("database is locked")
	}
	return s.Store.Get(ctx, id)
}

func TestSubmitLoadFailureMarksError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	backend := testsupport.NewFakeBackend()
	rec := testsupport.NewAsset(t, store)
	claim(t, store, rec.ID)
	flaky := &flakyGetStore{Store: store, failures: 1}
	submitter := transcoder.NewSubmitter(flaky, backend, cfg.Buckets.Raw, cfg.Buckets.Processed, nil)

	_, err := submitter.Submit(context.Background(), transcoder.SubmitRequest{AssetID: rec.ID})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if len(backend.Requests()) != 0 {
		t.Fatal("backend should not be called when the asset cannot be loaded")
	}
	stored, _ := store.Get(context.Background(), rec.ID)
	if stored.Status != assets.StatusError {
		t.Fatalf("claimed asset must not stay in processing, got %s", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, "database is locked") {
		t.Fatalf("expected load failure in record, got %q", stored.ErrorMessage)
	}
}

func TestSubmitUnknownAsset(t *testing.T) {
	submitter, _, _ := newSubmitter(t)
	_, err := submitter.Submit(context.Background(), transcoder.SubmitRequest{AssetID: "missing"})
	if !errors.Is(err, assets.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitRequiresAssetID(t *testing.T) {
	submitter, _, _ := newSubmitter(t)
	_, err := submitter.Submit(context.Background(), transcoder.SubmitRequest{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
