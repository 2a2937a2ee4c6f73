package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"

	"foreverstream/internal/assets"
	"foreverstream/internal/assets/firestore"
	"foreverstream/internal/config"
	"foreverstream/internal/daemon"
	"foreverstream/internal/logging"
	"foreverstream/internal/objectstore"
	"foreverstream/internal/staging"
	"foreverstream/internal/transcoder"
	"foreverstream/internal/trigger"
	"foreverstream/internal/worker"
)

// Runtime holds the pipeline components built from configuration. The CLI
// uses it for one-shot commands and the daemon for its handlers and loops.
type Runtime struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      assets.Repository
	Objects    objectstore.Store
	Backend    transcoder.Backend
	Submitter  *transcoder.Submitter
	Reconciler *transcoder.Reconciler
	Worker     *worker.Worker
	Ingest     *trigger.IngestHandler
	Completion *trigger.CompletionHandler

	closers []func() error
}

// BuildOption customizes runtime construction.
type BuildOption func(*buildSettings)

type buildSettings struct {
	store   assets.Repository
	objects objectstore.Store
	backend transcoder.Backend
}

// WithStore supplies an already-open status store. Runtime.Close does not
// close it.
func WithStore(store assets.Repository) BuildOption {
	return func(s *buildSettings) { s.store = store }
}

// WithObjectStore supplies the object store instead of opening one from config.
func WithObjectStore(objects objectstore.Store) BuildOption {
	return func(s *buildSettings) { s.objects = objects }
}

// WithBackend supplies the managed transcoding backend instead of dialing
// the Transcoder API.
func WithBackend(backend transcoder.Backend) BuildOption {
	return func(s *buildSettings) { s.backend = backend }
}

// OpenStore opens the configured status store backend.
func OpenStore(ctx context.Context, cfg *config.Config) (assets.Repository, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendFirestore:
		return firestore.Open(ctx, cfg.GCP.ProjectID, cfg.Store.FirestoreCollection)
	case config.StoreBackendSQLite, "":
		return assets.Open(cfg)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

// Build wires the store, object store, backends, and trigger handlers. The
// caller owns the returned runtime and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...BuildOption) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	settings := buildSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	rt := &Runtime{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	rt.Store = settings.store
	if rt.Store == nil {
		store, err := OpenStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open status store: %w", err)
		}
		rt.Store = store
		rt.closers = append(rt.closers, store.Close)
	}

	rt.Objects = settings.objects
	if rt.Objects == nil {
		objects, closeObjects, err := objectstore.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open object store: %w", err)
		}
		rt.Objects = objects
		rt.closers = append(rt.closers, closeObjects)
	}

	// The worker is always available so the legacy push route can run a
	// local encode under the managed backend.
	rt.Worker = worker.New(cfg, rt.Store, rt.Objects, worker.WithLogger(logger))

	if cfg.Pipeline.Backend == config.BackendManaged {
		rt.Backend = settings.backend
		if rt.Backend == nil {
			backend, err := transcoder.NewGCPBackend(ctx, cfg.LocationPath())
			if err != nil {
				return nil, err
			}
			rt.Backend = backend
			rt.closers = append(rt.closers, backend.Close)
		}
		rt.Submitter = transcoder.NewSubmitter(rt.Store, rt.Backend, cfg.Buckets.Raw, cfg.Buckets.Processed, logger)
		rt.Reconciler = transcoder.NewReconciler(rt.Store, rt.Backend, transcoder.ReconcilerOptions{
			ProcessedBucket: cfg.Buckets.Processed,
			PublicBaseURL:   cfg.Buckets.PublicBaseURL,
			Grace:           cfg.ReconcileGrace(),
			Logger:          logger,
			InFlight:        rt.Worker.InFlight,
		})
	}

	locks := trigger.NewKeyedMutex()
	ingest, err := trigger.NewIngestHandler(trigger.IngestOptions{
		Store:     rt.Store,
		Submitter: submitterOrNil(rt.Submitter),
		Worker:    rt.Worker,
		Backend:   cfg.Pipeline.Backend,
		RawBucket: cfg.Buckets.Raw,
		Locks:     locks,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	rt.Ingest = ingest

	completion, err := trigger.NewCompletionHandler(trigger.CompletionOptions{
		Store:           rt.Store,
		ProcessedBucket: cfg.Buckets.Processed,
		PublicBaseURL:   cfg.Buckets.PublicBaseURL,
		Locks:           locks,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	rt.Completion = completion

	ok = true
	return rt, nil
}

// submitterOrNil keeps a nil *Submitter from becoming a non-nil interface.
func submitterOrNil(s *transcoder.Submitter) trigger.JobSubmitter {
	if s == nil {
		return nil
	}
	return s
}

// Loops returns the daemon background loops for this runtime. client may be
// nil when no pull subscription is configured.
func (rt *Runtime) Loops(client *pubsub.Client) []daemon.Loop {
	cfg := rt.Config
	var loops []daemon.Loop

	if rt.Reconciler != nil && cfg.Reconcile.Enabled {
		interval := cfg.ReconcileInterval()
		loops = append(loops, daemon.Loop{
			Name: "reconciler",
			Run: func(ctx context.Context) error {
				return rt.Reconciler.Run(ctx, interval)
			},
		})
	}

	loops = append(loops, daemon.Loop{
		Name: "scratch-sweeper",
		Run: func(ctx context.Context) error {
			staging.Sweep(ctx, cfg.Paths.ScratchDir, cfg.ScratchSweepInterval(), cfg.ScratchMaxAge(), rt.Logger)
			return nil
		},
	})

	if client != nil {
		if sub := cfg.PubSub.RawSubscription; sub != "" {
			s := trigger.NewSubscriber(client, sub, cfg.PubSub.MaxOutstanding, rt.Ingest, rt.Logger)
			loops = append(loops, daemon.Loop{Name: "pubsub-raw", Run: s.Run})
		}
		if sub := cfg.PubSub.ProcessedSubscription; sub != "" {
			s := trigger.NewSubscriber(client, sub, cfg.PubSub.MaxOutstanding, rt.Completion, rt.Logger)
			loops = append(loops, daemon.Loop{Name: "pubsub-processed", Run: s.Run})
		}
	}
	return loops
}

// UsesPubSub reports whether any pull subscription is configured.
func UsesPubSub(cfg *config.Config) bool {
	return cfg.PubSub.RawSubscription != "" || cfg.PubSub.ProcessedSubscription != ""
}

// Close releases everything Build opened, in reverse order.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
