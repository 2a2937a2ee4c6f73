package transcoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"foreverstream/internal/assets"
	"foreverstream/internal/logging"
	"foreverstream/internal/metrics"
	"foreverstream/internal/services"
)

const (
	stageReconcile = "reconcile"

	msgNoJobRecorded = "no transcoding job recorded"
)

// Reconciler actions, also used as metric labels.
const (
	ActionCompleted = "completed"
	ActionFailed    = "failed"
	ActionPending   = "pending"
	ActionSkipped   = "skipped"
	ActionRaced     = "raced"
	ActionError     = "error"
)

// ReconcileReport summarises one pass.
type ReconcileReport struct {
	Checked   int
	Completed int
	Failed    int
	Pending   int
	Skipped   int
	Raced     int
	Errors    int
}

// ReconcilerOptions configures a Reconciler.
type ReconcilerOptions struct {
	ProcessedBucket string
	PublicBaseURL   string
	Grace           time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
	// InFlight reports assets this process is still encoding locally. Those
	// carry no job handle but are not stranded.
	InFlight func(id string) bool
}

// Reconciler polls the backend for processing assets that have not moved for
// longer than the grace period and settles them.
type Reconciler struct {
	store           assets.Repository
	backend         Backend
	processedBucket string
	publicBaseURL   string
	grace           time.Duration
	logger          *slog.Logger
	now             func() time.Time
	inFlight        func(id string) bool
}

// NewReconciler builds a reconciler.
func NewReconciler(store assets.Repository, backend Backend, opts ReconcilerOptions) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	inFlight := opts.InFlight
	if inFlight == nil {
		inFlight = func(string) bool { return false }
	}
	return &Reconciler{
		store:           store,
		backend:         backend,
		processedBucket: opts.ProcessedBucket,
		publicBaseURL:   opts.PublicBaseURL,
		grace:           opts.Grace,
		logger:          logging.NewComponentLogger(logger, "reconciler"),
		now:             now,
		inFlight:        inFlight,
	}
}

// RunOnce inspects every stale processing asset. Assets with a job handle are
// settled from the backend; assets without one were stranded between the claim
// and the submission and are marked error. Per-asset failures are counted and joined into the returned error; the pass
// continues past them.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	cutoff := r.now().Add(-r.grace)
	stale, err := r.store.ListStale(ctx, assets.StatusProcessing, cutoff)
	if err != nil {
		return report, services.Wrap(services.ErrTransient, stageReconcile, "list stale", "", err)
	}

	var errs []error
	for _, rec := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		action, err := r.reconcile(ctx, rec)
		metrics.ReconcilerActionsTotal.WithLabelValues(action).Inc()
		switch action {
		case ActionCompleted:
			report.Completed++
		case ActionFailed:
			report.Failed++
		case ActionPending:
			report.Pending++
		case ActionSkipped:
			report.Skipped++
		case ActionRaced:
			report.Raced++
		default:
			report.Errors++
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("asset %s: %w", rec.ID, err))
		}
	}
	if report.Checked > 0 {
		r.logger.Info("reconcile pass complete",
			logging.Int("checked", report.Checked),
			logging.Int("completed", report.Completed),
			logging.Int("failed", report.Failed),
			logging.Int("pending", report.Pending),
			logging.Int("errors", report.Errors),
		)
	}
	return report, errors.Join(errs...)
}

func (r *Reconciler) reconcile(ctx context.Context, rec *assets.Record) (string, error) {
	ctx = services.WithStage(services.WithAssetID(ctx, rec.ID), stageReconcile)
	logger := logging.WithContext(ctx, r.logger)

	jobName := strings.TrimSpace(rec.TranscodingJobID)
	if jobName == "" {
		if r.inFlight(rec.ID) {
			return ActionSkipped, nil
		}
		return r.settle(ctx, logger, rec, assets.StatusError, assets.Fields{ErrorMessage: msgNoJobRecorded}, ActionFailed)
	}
	status, err := r.backend.GetJob(ctx, jobName)
	if err != nil {
		logging.WarnWithContext(logger, "job status lookup failed", "reconcile_lookup_failed",
			logging.String(logging.FieldJobID, jobName),
			logging.Error(err),
		)
		return ActionError, services.Wrap(services.ErrExternalTool, stageReconcile, "get job", jobName, err)
	}

	var (
		to     assets.Status
		fields assets.Fields
		action string
	)
	switch status.State {
	case JobStateFailed:
		msg := strings.TrimSpace(status.ErrorMessage)
		if msg == "" {
			msg = "transcoding job failed"
		}
		to, action = assets.StatusError, ActionFailed
		fields = assets.Fields{ErrorMessage: msg}
	case JobStateSucceeded:
		now := r.now().UTC()
		to, action = assets.StatusProcessed, ActionCompleted
		fields = assets.Fields{
			ProcessedManifestURL: ManifestURL(r.publicBaseURL, r.processedBucket, rec.ID),
			ProcessedAt:          &now,
		}
	default:
		return ActionPending, nil
	}

	return r.settle(ctx, logger, rec, to, fields, action)
}

func (r *Reconciler) settle(ctx context.Context, logger *slog.Logger, rec *assets.Record, to assets.Status, fields assets.Fields, action string) (string, error) {
	_, err := r.store.TransitionTo(ctx, rec.ID, to, fields)
	metrics.ObserveTransition(string(to), err)
	if err != nil {
		if _, ok := assets.IsTransitionError(err); ok {
			// The completion handler got there first.
			return ActionRaced, nil
		}
		return ActionError, err
	}
	logger.Info("reconciled asset",
		logging.String(logging.FieldJobID, rec.TranscodingJobID),
		logging.String(logging.FieldStatus, string(to)),
	)
	return action, nil
}

// Run repeats RunOnce every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("reconciler: interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("reconcile pass reported errors", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
