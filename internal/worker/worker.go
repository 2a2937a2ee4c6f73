package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"foreverstream/internal/assets"
	"foreverstream/internal/config"
	"foreverstream/internal/logging"
	"foreverstream/internal/media/ffprobe"
	"foreverstream/internal/metrics"
	"foreverstream/internal/objectstore"
	"foreverstream/internal/services"
	"foreverstream/internal/staging"
)

const (
	stageLocal = "local_transcode"

	// OutputPrefix is prepended to the raw object's base name to form the
	// processed object name.
	OutputPrefix      = "processed-"
	outputContentType = "video/mp4"
)

// ErrLocalPipelineFailed classifies any download, encode, validation, or
// upload failure.
var ErrLocalPipelineFailed = fmt.Errorf("%w: local pipeline failed", services.ErrExternalTool)

// PipelineError carries the step failure behind ErrLocalPipelineFailed. It
// unwraps to ErrLocalPipelineFailed only, so a missing raw object or an encode
// deadline still maps to a server error and a retry.
type PipelineError struct {
	Cause error
}

func (e *PipelineError) Error() string {
	if e.Cause == nil {
		return ErrLocalPipelineFailed.Error()
	}
	return ErrLocalPipelineFailed.Error() + ": " + e.Cause.Error()
}

func (e *PipelineError) Unwrap() error { return ErrLocalPipelineFailed }

// ProbeFunc inspects an encoded file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Result describes a published output.
type Result struct {
	AssetID             string
	ProcessedObjectName string
	PublicURL           string
	Record              *assets.Record
	Duration            time.Duration
}

// Option customises a Worker.
type Option func(*Worker)

// WithEncoder replaces the ffmpeg encoder.
func WithEncoder(enc Encoder) Option {
	return func(w *Worker) {
		if enc != nil {
			w.encoder = enc
		}
	}
}

// WithProbe replaces the ffprobe inspection used for output validation.
func WithProbe(probe ProbeFunc) Option {
	return func(w *Worker) {
		if probe != nil {
			w.probe = probe
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Worker executes the local pipeline for one raw object per call. Calls are
// independent and may run concurrently.
type Worker struct {
	store           assets.Repository
	objects         objectstore.Store
	encoder         Encoder
	probe           ProbeFunc
	logger          *slog.Logger
	rawBucket       string
	processedBucket string
	publicBaseURL   string
	scratchRoot     string
	ffprobeBinary   string
	validateOutput  bool
	encodeTimeout   time.Duration

	mu     sync.Mutex
	active map[string]int
}

// New builds a worker from configuration. store may be nil when no status
// records are kept.
func New(cfg *config.Config, store assets.Repository, objects objectstore.Store, opts ...Option) *Worker {
	w := &Worker{
		store:           store,
		objects:         objects,
		probe:           ffprobe.Inspect,
		logger:          logging.NewNop(),
		rawBucket:       cfg.Buckets.Raw,
		processedBucket: cfg.Buckets.Processed,
		publicBaseURL:   cfg.Buckets.PublicBaseURL,
		scratchRoot:     cfg.Paths.ScratchDir,
		ffprobeBinary:   cfg.Pipeline.FFprobeBinary,
		validateOutput:  cfg.Pipeline.ValidateOutput,
		encodeTimeout:   cfg.EncodeTimeout(),
		active:          make(map[string]int),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "worker")
	if w.encoder == nil {
		w.encoder = NewFFmpeg(cfg.Pipeline.FFmpegBinary, w.logger)
	}
	return w
}

// OutputObjectName returns processed-<base name of raw object>.
func OutputObjectName(rawObjectName string) string {
	return OutputPrefix + path.Base(strings.TrimSpace(rawObjectName))
}

// Process runs the pipeline for rawObjectName.
func (w *Worker) Process(ctx context.Context, rawObjectName string) (Result, error) {
	name := strings.TrimSpace(rawObjectName)
	if name == "" || strings.HasSuffix(name, "/") {
		return Result{}, services.Wrap(services.ErrValidation, stageLocal, "validate request", "raw object name is required", nil)
	}
	id := assets.IDFromObjectName(name)
	ctx = services.WithStage(services.WithAssetID(ctx, id), stageLocal)
	logger := logging.WithContext(ctx, w.logger).With(logging.String(logging.FieldObject, name))

	metrics.LocalPipelineInFlight.Inc()
	defer metrics.LocalPipelineInFlight.Dec()
	w.enter(id)
	defer w.leave(id)
	start := time.Now()

	output, err := w.run(ctx, logger, name)
	elapsed := time.Since(start)
	metrics.LocalPipelineDuration.WithLabelValues(metrics.Result(err)).Observe(elapsed.Seconds())
	if err != nil {
		logging.ErrorWithContext(logger, "local pipeline failed", "local_pipeline_failed",
			logging.Error(err),
			logging.Duration("elapsed", elapsed),
		)
		w.recordFailure(ctx, logger, id, err)
		return Result{}, &PipelineError{Cause: err}
	}

	result := Result{
		AssetID:             id,
		ProcessedObjectName: output,
		PublicURL:           objectstore.PublicURL(w.publicBaseURL, w.processedBucket, output),
		Duration:            elapsed,
	}
	logger.Info("local pipeline complete",
		logging.String("processed_object", output),
		logging.String("public_url", result.PublicURL),
		logging.Duration("elapsed", elapsed),
	)

	rec, err := w.recordSuccess(ctx, logger, id, result)
	if err != nil {
		return result, err
	}
	result.Record = rec
	return result, nil
}

// InFlight reports whether a Process call for the asset is running.
func (w *Worker) InFlight(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active[id] > 0
}

func (w *Worker) enter(id string) {
	w.mu.Lock()
	w.active[id]++
	w.mu.Unlock()
}

func (w *Worker) leave(id string) {
	w.mu.Lock()
	if w.active[id]--; w.active[id] <= 0 {
		delete(w.active, id)
	}
	w.mu.Unlock()
}

// run performs the file work. The scratch directory is released on every path.
func (w *Worker) run(ctx context.Context, logger *slog.Logger, name string) (output string, err error) {
	dir, err := staging.Acquire(w.scratchRoot)
	if err != nil {
		return "", fmt.Errorf("scratch: %w", err)
	}
	defer func() {
		if releaseErr := dir.Release(); releaseErr != nil {
			logger.Warn("failed to remove scratch directory",
				logging.String("path", dir.Path()),
				logging.Error(releaseErr),
				logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
				logging.String(logging.FieldImpact, "sweeper will reclaim it later"),
			)
		}
	}()

	output = OutputObjectName(name)
	inputPath := dir.File(path.Base(name))
	outputPath := dir.File(output)

	logger.Info("downloading raw object", logging.String(logging.FieldBucket, w.rawBucket))
	if err := w.objects.Download(ctx, w.rawBucket, name, inputPath); err != nil {
		return "", fmt.Errorf("download %s: %w", objectstore.URI(w.rawBucket, name), err)
	}

	encodeCtx := ctx
	if w.encodeTimeout > 0 {
		var cancel context.CancelFunc
		encodeCtx, cancel = context.WithTimeout(ctx, w.encodeTimeout)
		defer cancel()
	}
	if err := w.encoder.Transcode(encodeCtx, inputPath, outputPath); err != nil {
		if errors.Is(encodeCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("encode: %w: %w", services.ErrTimeout, err)
		}
		return "", fmt.Errorf("encode: %w", err)
	}

	if w.validateOutput {
		probe, err := w.probe(ctx, w.ffprobeBinary, outputPath)
		if err != nil {
			return "", fmt.Errorf("validate output: %w", err)
		}
		if err := probe.RequireVideo(); err != nil {
			return "", fmt.Errorf("validate output: %w", err)
		}
	}

	logger.Info("uploading processed object",
		logging.String(logging.FieldBucket, w.processedBucket),
		logging.String("processed_object", output),
	)
	if err := w.objects.Upload(ctx, w.processedBucket, output, outputPath, objectstore.UploadOptions{
		ContentType: outputContentType,
		PublicRead:  true,
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectstore.URI(w.processedBucket, output), err)
	}
	return output, nil
}

func (w *Worker) recordFailure(ctx context.Context, logger *slog.Logger, id string, cause error) {
	if w.store == nil {
		return
	}
	_, err := w.store.TransitionTo(ctx, id, assets.StatusError, assets.Fields{ErrorMessage: cause.Error()})
	metrics.ObserveTransition(string(assets.StatusError), err)
	if err != nil && !errors.Is(err, assets.ErrNotFound) {
		logging.WarnWithContext(logger, "failed to record pipeline error", "local_error_record_failed",
			logging.Error(err),
		)
	}
}

// recordSuccess marks the asset processed. A missing record is fine; a record
// in an unexpected state is logged and left alone since the output is already
// published.
func (w *Worker) recordSuccess(ctx context.Context, logger *slog.Logger, id string, result Result) (*assets.Record, error) {
	if w.store == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	rec, err := w.store.TransitionTo(ctx, id, assets.StatusProcessed, assets.Fields{
		ProcessedObjectName:  result.ProcessedObjectName,
		ProcessedManifestURL: result.PublicURL,
		ProcessedAt:          &now,
	})
	metrics.ObserveTransition(string(assets.StatusProcessed), err)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, assets.ErrNotFound):
		logger.Debug("no asset record for processed object")
		return nil, nil
	case errors.Is(err, assets.ErrInvalidTransition):
		logging.WarnWithContext(logger, "asset not in processing; output published without status update", "local_status_skipped",
			logging.Error(err),
		)
		return nil, nil
	default:
		return nil, services.Wrap(services.ErrTransient, stageLocal, "record success", id, err)
	}
}
