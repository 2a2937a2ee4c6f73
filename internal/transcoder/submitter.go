package transcoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"foreverstream/internal/assets"
	"foreverstream/internal/ladder"
	"foreverstream/internal/logging"
	"foreverstream/internal/metrics"
	"foreverstream/internal/services"
	"foreverstream/internal/streamplan"
)

const stageSubmit = "submit"

var (
	// ErrMissingDimensions means neither the request nor the stored record
	// carries the input width and height.
	ErrMissingDimensions = fmt.Errorf("%w: input dimensions unknown", services.ErrValidation)
	// ErrBackendSubmissionFailed wraps any error returned by Backend.CreateJob.
	ErrBackendSubmissionFailed = fmt.Errorf("%w: backend submission failed", services.ErrExternalTool)
)

// SubmitRequest identifies a claimed asset. Zero dimensions or an empty raw
// object name are filled from the stored record.
type SubmitRequest struct {
	AssetID       string
	RawObjectName string
	Width         int
	Height        int
}

// SubmitResult describes an accepted job.
type SubmitResult struct {
	JobName         string
	InputResolution string
	Renditions      []ladder.Rendition
	Record          *assets.Record
}

// Submitter turns a claimed asset into a managed transcoding job.
type Submitter struct {
	store           assets.Repository
	backend         Backend
	rawBucket       string
	processedBucket string
	logger          *slog.Logger
}

// NewSubmitter wires a submitter. A nil logger discards output.
func NewSubmitter(store assets.Repository, backend Backend, rawBucket, processedBucket string, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Submitter{
		store:           store,
		backend:         backend,
		rawBucket:       rawBucket,
		processedBucket: processedBucket,
		logger:          logging.NewComponentLogger(logger, "submitter"),
	}
}

// Submit computes the ladder, submits the plan once, and records the job
// handle. Any failure after the asset is known moves it to error.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	id := strings.TrimSpace(req.AssetID)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, stageSubmit, "validate request", "asset id is required", nil)
	}
	ctx = services.WithStage(services.WithAssetID(ctx, id), stageSubmit)
	logger := logging.WithContext(ctx, s.logger)

	width, height, rawObject := req.Width, req.Height, strings.TrimSpace(req.RawObjectName)
	if width <= 0 || height <= 0 || rawObject == "" {
		rec, err := s.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, assets.ErrNotFound) {
				return nil, err
			}
			return nil, s.fail(ctx, logger, id, services.Wrap(services.ErrTransient, stageSubmit, "load asset", id, err))
		}
		if (width <= 0 || height <= 0) && rec.HasDimensions() {
			width, height = rec.InputWidth, rec.InputHeight
		}
		if rawObject == "" {
			rawObject = rec.RawObjectName
		}
	}
	if width <= 0 || height <= 0 {
		return nil, s.fail(ctx, logger, id, fmt.Errorf("%w: asset %s", ErrMissingDimensions, id))
	}

	renditions, err := ladder.Compute(width, height)
	if err != nil {
		return nil, s.fail(ctx, logger, id, fmt.Errorf("%w: %w", services.ErrValidation, err))
	}
	plan, err := streamplan.Build(renditions)
	if err != nil {
		return nil, s.fail(ctx, logger, id, fmt.Errorf("%w: %w", services.ErrValidation, err))
	}
	metrics.LadderRenditions.Observe(float64(len(renditions)))

	jobReq := JobRequest{
		InputURI:  InputURI(s.rawBucket, rawObject),
		OutputURI: OutputURI(s.processedBucket, id),
		Plan:      plan,
	}
	logger.Info("submitting transcoding job",
		logging.String("input_uri", jobReq.InputURI),
		logging.String("output_uri", jobReq.OutputURI),
		logging.Int("renditions", len(renditions)),
	)
	jobName, err := s.backend.CreateJob(ctx, jobReq)
	metrics.JobSubmissionsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, s.fail(ctx, logger, id, fmt.Errorf("%w: %w", ErrBackendSubmissionFailed, err))
	}

	resolution := ladder.FormatDimensions(width, height)
	rec, err := s.store.TransitionTo(ctx, id, assets.StatusProcessing, assets.Fields{
		TranscodingJobID: jobName,
		InputResolution:  resolution,
	})
	metrics.ObserveTransition(string(assets.StatusProcessing), err)
	if err != nil {
		logging.ErrorWithContext(logger, "job submitted but asset not annotated", "submit_annotate_failed",
			logging.String(logging.FieldJobID, jobName),
			logging.String(logging.FieldErrorHint, "completion event settles the record; otherwise the reconciler marks it error after the grace period"),
			logging.Error(err),
		)
		return nil, services.Wrap(services.ErrTransient, stageSubmit, "record job handle", jobName, err)
	}

	logger.Info("transcoding job submitted",
		logging.String(logging.FieldJobID, jobName),
		logging.String("input_resolution", resolution),
	)
	return &SubmitResult{
		JobName:         jobName,
		InputResolution: resolution,
		Renditions:      renditions,
		Record:          rec,
	}, nil
}

// fail records cause on the asset and returns it. A missing record is not an
// additional error.
func (s *Submitter) fail(ctx context.Context, logger *slog.Logger, id string, cause error) error {
	_, err := s.store.TransitionTo(ctx, id, assets.StatusError, assets.Fields{ErrorMessage: cause.Error()})
	metrics.ObserveTransition(string(assets.StatusError), err)
	if err != nil && !errors.Is(err, assets.ErrNotFound) {
		logging.WarnWithContext(logger, "failed to record submission error", "submit_error_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "asset may remain in processing until reconciled"),
		)
	}
	logging.ErrorWithContext(logger, "transcoding submission failed", "submit_failed", logging.Error(cause))
	return cause
}
