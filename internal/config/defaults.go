package config

const (
	defaultConfigPath           = "~/.config/foreverstream/config.toml"
	defaultStateDir             = "~/.local/share/foreverstream"
	defaultScratchDir           = "~/.local/share/foreverstream/scratch"
	defaultLocalBucketRoot      = "~/.local/share/foreverstream/buckets"
	defaultAPIBind              = "127.0.0.1:5185"
	defaultPublicBaseURL        = "https://storage.googleapis.com"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultEncodeTimeout        = 3600
	defaultFirestoreCollection  = "videos"
	defaultPubSubMaxOutstanding = 4
	defaultReconcileInterval    = 60
	defaultReconcileGrace       = 300
	defaultScratchSweepInterval = 900
	defaultScratchMaxAge        = 6 * 3600
	defaultLogFormat            = "auto"
	defaultLogLevel             = "info"
)

// Backend and mode identifiers accepted in configuration.
const (
	BackendManaged        = "managed"
	BackendLocal          = "local"
	BucketModeGCS         = "gcs"
	BucketModeLocal       = "local"
	StoreBackendSQLite    = "sqlite"
	StoreBackendFirestore = "firestore"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			ScratchDir: defaultScratchDir,
			APIBind:    defaultAPIBind,
		},
		Buckets: Buckets{
			Mode:          BucketModeGCS,
			LocalRoot:     defaultLocalBucketRoot,
			PublicBaseURL: defaultPublicBaseURL,
		},
		Pipeline: Pipeline{
			Backend:        BackendManaged,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			ValidateOutput: true,
			EncodeTimeout:  defaultEncodeTimeout,
		},
		Store: Store{
			Backend:             StoreBackendSQLite,
			FirestoreCollection: defaultFirestoreCollection,
		},
		PubSub: PubSub{
			MaxOutstanding: defaultPubSubMaxOutstanding,
		},
		Reconcile: Reconcile{
			Enabled:         true,
			IntervalSeconds: defaultReconcileInterval,
			GraceSeconds:    defaultReconcileGrace,
		},
		Scratch: Scratch{
			SweepIntervalSeconds: defaultScratchSweepInterval,
			MaxAgeSeconds:        defaultScratchMaxAge,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
