package trigger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"foreverstream/internal/assets"
	"foreverstream/internal/logging"
	"foreverstream/internal/metrics"
	"foreverstream/internal/services"
	"foreverstream/internal/streamplan"
	"foreverstream/internal/transcoder"
)

const stageCompletion = "completion"

// CompletionOptions wires a CompletionHandler.
type CompletionOptions struct {
	Store           assets.Repository
	ProcessedBucket string
	PublicBaseURL   string
	Locks           *KeyedMutex
	Logger          *slog.Logger
	Now             func() time.Time
}

// CompletionHandler marks assets processed when their manifest lands.
type CompletionHandler struct {
	store           assets.Repository
	processedBucket string
	publicBaseURL   string
	locks           *KeyedMutex
	logger          *slog.Logger
	now             func() time.Time
}

// NewCompletionHandler builds the handler.
func NewCompletionHandler(opts CompletionOptions) (*CompletionHandler, error) {
	if opts.Store == nil {
		return nil, errors.New("completion handler: store is required")
	}
	locks := opts.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CompletionHandler{
		store:           opts.Store,
		processedBucket: opts.ProcessedBucket,
		publicBaseURL:   opts.PublicBaseURL,
		locks:           locks,
		logger:          logging.NewComponentLogger(logger, "completion"),
		now:             now,
	}, nil
}

// AssetIDFromManifest returns the first path segment of a manifest object
// name, or false when name is not a per-asset manifest.
func AssetIDFromManifest(name string) (string, bool) {
	if !strings.HasSuffix(name, streamplan.ManifestFileName) {
		return "", false
	}
	idx := strings.Index(name, "/")
	if idx <= 0 {
		return "", false
	}
	return name[:idx], true
}

// Handle processes a processed-bucket event.
func (h *CompletionHandler) Handle(ctx context.Context, event ObjectEvent) (outcome Outcome, err error) {
	defer func() {
		metrics.TriggerEventsTotal.WithLabelValues(stageCompletion, string(outcome)).Inc()
	}()

	if err := event.Validate(); err != nil {
		return OutcomeInvalid, err
	}
	if !event.IsFinalize() || event.Bucket != h.processedBucket {
		return OutcomeIgnored, nil
	}
	id, ok := AssetIDFromManifest(event.Name)
	if !ok {
		return OutcomeIgnored, nil
	}

	ctx = services.WithStage(services.WithAssetID(ctx, id), stageCompletion)
	if event.MessageID != "" {
		ctx = services.WithRequestID(ctx, event.MessageID)
	}
	logger := logging.WithContext(ctx, h.logger).With(logging.String(logging.FieldObject, event.Name))

	unlock := h.locks.Lock(id)
	defer unlock()

	now := h.now().UTC()
	url := transcoder.ManifestURL(h.publicBaseURL, h.processedBucket, id)
	_, err = h.store.TransitionTo(ctx, id, assets.StatusProcessed, assets.Fields{
		ProcessedManifestURL: url,
		ProcessedAt:          &now,
	})
	metrics.ObserveTransition(string(assets.StatusProcessed), err)
	if err == nil {
		logger.Info("asset processed", logging.String("manifest_url", url))
		return OutcomeCompleted, nil
	}
	if te, ok := assets.IsTransitionError(err); ok && te.From == assets.StatusProcessed {
		logger.Info("manifest already recorded; ignoring redelivery")
		return OutcomeDuplicate, nil
	}

	logging.ErrorWithContext(logger, "failed to mark asset processed", "completion_failed", logging.Error(err))
	_, markErr := h.store.TransitionTo(ctx, id, assets.StatusError, assets.Fields{
		ErrorMessage: "completion failed: " + err.Error(),
	})
	metrics.ObserveTransition(string(assets.StatusError), markErr)
	if markErr != nil && !errors.Is(markErr, assets.ErrNotFound) {
		logger.Debug("could not record completion failure", logging.Error(markErr))
	}
	if errors.Is(err, assets.ErrNotFound) {
		return OutcomeNotFound, err
	}
	return OutcomeFailed, err
}
