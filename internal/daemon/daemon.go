package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"foreverstream/internal/assets"
	"foreverstream/internal/config"
	"foreverstream/internal/deps"
	"foreverstream/internal/logging"
	"foreverstream/internal/metrics"
	"foreverstream/internal/preflight"
	"foreverstream/internal/trigger"
)

const statsRefreshInterval = 30 * time.Second

// IngestRouter handles raw-upload events with the configured backend or,
// for the legacy push route, with the local worker.
type IngestRouter interface {
	Handle(ctx context.Context, event trigger.ObjectEvent) (trigger.Outcome, error)
	HandleLocal(ctx context.Context, event trigger.ObjectEvent) (trigger.Outcome, error)
}

// Loop is a named background task run for the daemon's lifetime. Run must
// return when ctx is cancelled; a non-nil error stops the daemon.
type Loop struct {
	Name string
	Run  func(ctx context.Context) error
}

// Options wires a Daemon.
type Options struct {
	Config     *config.Config
	Store      assets.Repository
	Ingest     IngestRouter
	Completion trigger.Handler
	Loops      []Loop
	Logger     *slog.Logger
}

// Daemon owns the API server and background loops and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      assets.Repository
	ingest     IngestRouter
	completion trigger.Handler
	loops      []Loop

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	group     *errgroup.Group
	api       *apiServer
	apiAddr   string
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Backend      string
	StoreBackend string
	RawBucket    string
	Processed    string
	LockFilePath string
	APIAddress   string
	StartedAt    time.Time
	Stats        assets.Stats
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Store == nil || opts.Ingest == nil || opts.Completion == nil {
		return nil, errors.New("daemon requires config, store, ingest and completion handlers")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := opts.Config.LockPath()
	return &Daemon{
		cfg:        opts.Config,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      opts.Store,
		ingest:     opts.Ingest,
		completion: opts.Completion,
		loops:      opts.Loops,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the API server, and launches the
// background loops.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another foreverstream daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	if err := api.start(groupCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	loops := append([]Loop{{Name: "stats", Run: d.refreshStats}}, d.loops...)
	for _, loop := range loops {
		group.Go(func() error {
			d.logger.Debug("background loop started", logging.String("loop", loop.Name))
			if err := loop.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				logging.ErrorWithContext(d.logger, "background loop failed", "daemon_loop_failed",
					logging.String("loop", loop.Name),
					logging.Error(err),
					logging.String(logging.FieldImpact, "daemon is shutting down"),
				)
				return fmt.Errorf("%s: %w", loop.Name, err)
			}
			return nil
		})
	}

	d.cancel = cancel
	d.group = group
	d.api = api
	d.apiAddr = api.address()
	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("foreverstream daemon started",
		logging.String("lock", d.lockPath),
		logging.String("backend", d.cfg.Pipeline.Backend),
		logging.Int("loops", len(loops)),
	)
	return nil
}

// Wait blocks until a background loop fails or the start context is
// cancelled, returning the first loop error.
func (d *Daemon) Wait() error {
	d.mu.Lock()
	group := d.group
	d.mu.Unlock()
	if group == nil {
		return nil
	}
	return group.Wait()
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running.Load() {
		d.mu.Unlock()
		return
	}
	cancel, api, group := d.cancel, d.api, d.group
	d.cancel, d.api, d.group = nil, nil, nil
	d.apiAddr = ""
	d.running.Store(false)
	d.mu.Unlock()

	cancel()
	api.stop()
	if err := group.Wait(); err != nil {
		d.logger.Debug("background loops exited with error", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("foreverstream daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddress returns the bound API address, or "" when the server is not
// listening.
func (d *Daemon) APIAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.apiAddr
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Backend:      d.cfg.Pipeline.Backend,
		StoreBackend: d.cfg.Store.Backend,
		RawBucket:    d.cfg.Buckets.Raw,
		Processed:    d.cfg.Buckets.Processed,
		LockFilePath: d.lockPath,
		APIAddress:   d.APIAddress(),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
	d.mu.Lock()
	status.StartedAt = d.startedAt
	d.mu.Unlock()
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("status stats unavailable", logging.Error(err))
	} else {
		status.Stats = stats
	}
	return status
}

// refreshStats publishes per-status asset counts until ctx is cancelled.
func (d *Daemon) refreshStats(ctx context.Context) error {
	ticker := time.NewTicker(statsRefreshInterval)
	defer ticker.Stop()
	for {
		stats, err := d.store.Stats(ctx)
		if err == nil {
			for _, status := range assets.AllStatuses() {
				metrics.AssetsByStatus.WithLabelValues(string(status)).Set(float64(stats[status]))
			}
		} else if ctx.Err() == nil {
			d.logger.Debug("stats refresh failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
