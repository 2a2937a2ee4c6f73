package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"foreverstream/internal/assets"
	"foreverstream/internal/config"
	"foreverstream/internal/logging"
	"foreverstream/internal/metrics"
	"foreverstream/internal/services"
	"foreverstream/internal/transcoder"
	"foreverstream/internal/worker"
)

const stageIngest = "ingest"

// JobSubmitter is the managed backend entry point.
type JobSubmitter interface {
	Submit(ctx context.Context, req transcoder.SubmitRequest) (*transcoder.SubmitResult, error)
}

// LocalProcessor is the local backend entry point.
type LocalProcessor interface {
	Process(ctx context.Context, rawObjectName string) (worker.Result, error)
}

// IngestOptions wires an IngestHandler.
type IngestOptions struct {
	Store     assets.Repository
	Submitter JobSubmitter
	Worker    LocalProcessor
	Backend   string
	RawBucket string
	Locks     *KeyedMutex
	Logger    *slog.Logger
}

// IngestHandler turns raw-upload events into backend work, at most once per
// asset.
type IngestHandler struct {
	store     assets.Repository
	submitter JobSubmitter
	worker    LocalProcessor
	backend   string
	rawBucket string
	locks     *KeyedMutex
	logger    *slog.Logger
}

// NewIngestHandler validates options and builds the handler.
func NewIngestHandler(opts IngestOptions) (*IngestHandler, error) {
	if opts.Store == nil {
		return nil, errors.New("ingest handler: store is required")
	}
	switch opts.Backend {
	case config.BackendManaged:
		if opts.Submitter == nil {
			return nil, errors.New("ingest handler: managed backend requires a submitter")
		}
	case config.BackendLocal:
		if opts.Worker == nil {
			return nil, errors.New("ingest handler: local backend requires a worker")
		}
	default:
		return nil, fmt.Errorf("ingest handler: unsupported backend %q", opts.Backend)
	}
	locks := opts.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &IngestHandler{
		store:     opts.Store,
		submitter: opts.Submitter,
		worker:    opts.Worker,
		backend:   opts.Backend,
		rawBucket: opts.RawBucket,
		locks:     locks,
		logger:    logging.NewComponentLogger(logger, "ingest"),
	}, nil
}

// Handle processes a raw-upload event with the configured backend.
func (h *IngestHandler) Handle(ctx context.Context, event ObjectEvent) (Outcome, error) {
	return h.handle(ctx, event, h.backend)
}

// HandleLocal processes a raw-upload event with the local worker regardless
// of the configured backend.
func (h *IngestHandler) HandleLocal(ctx context.Context, event ObjectEvent) (Outcome, error) {
	if h.worker == nil {
		return OutcomeFailed, services.Wrap(services.ErrConfiguration, stageIngest, "dispatch", "local worker not configured", nil)
	}
	return h.handle(ctx, event, config.BackendLocal)
}

func (h *IngestHandler) handle(ctx context.Context, event ObjectEvent, backend string) (outcome Outcome, err error) {
	defer func() {
		metrics.TriggerEventsTotal.WithLabelValues(stageIngest, string(outcome)).Inc()
	}()

	if err := event.Validate(); err != nil {
		return OutcomeInvalid, err
	}
	logger := h.logger.With(
		logging.String(logging.FieldBucket, event.Bucket),
		logging.String(logging.FieldObject, event.Name),
	)
	if !event.IsFinalize() {
		logger.Debug("ignoring non-finalize event", logging.String(logging.FieldEventType, event.EventType))
		return OutcomeIgnored, nil
	}
	if event.Bucket != h.rawBucket {
		logger.Debug("ignoring event for foreign bucket")
		return OutcomeIgnored, nil
	}
	id := assets.IDFromObjectName(event.Name)
	if id == "" {
		return OutcomeInvalid, fmt.Errorf("%w: cannot derive asset id from %q", ErrInvalidEvent, event.Name)
	}

	ctx = services.WithStage(services.WithAssetID(ctx, id), stageIngest)
	if event.MessageID != "" {
		ctx = services.WithRequestID(ctx, event.MessageID)
	}
	logger = logging.WithContext(ctx, logger)

	unlock := h.locks.Lock(id)
	defer unlock()

	eligibility, err := h.store.ClaimForProcessing(ctx, id)
	if err != nil {
		return OutcomeFailed, services.Wrap(services.ErrTransient, stageIngest, "claim", id, err)
	}
	switch eligibility {
	case assets.AlreadyProcessing:
		logger.Info("asset already claimed; skipping duplicate delivery")
		return OutcomeAlreadyProcessing, nil
	case assets.NotFound:
		logging.WarnWithContext(logger, "no status record for upload", "ingest_record_missing",
			logging.String(logging.FieldImpact, "upload will not be transcoded"),
		)
		return OutcomeNotFound, nil
	}
	metrics.ObserveTransition(string(assets.StatusProcessing), nil)

	// Backend work runs to completion even if the delivering request goes away.
	work := context.WithoutCancel(ctx)
	logger.Info("asset claimed; dispatching", logging.String("backend", backend))
	switch backend {
	case config.BackendLocal:
		_, err = h.worker.Process(work, event.Name)
	default:
		_, err = h.submitter.Submit(work, transcoder.SubmitRequest{
			AssetID:       id,
			RawObjectName: event.Name,
		})
	}
	if err != nil {
		return OutcomeFailed, err
	}
	return OutcomeDispatched, nil
}
