package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"foreverstream/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Required cloud identifiers are filled with fixed test values.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.GCP.ProjectID = "test-project"
	cfgVal.GCP.Region = "us-central1"
	cfgVal.Buckets.Raw = "raw-videos"
	cfgVal.Buckets.Processed = "processed-videos"
	cfgVal.Buckets.LocalRoot = filepath.Join(base, "buckets")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Store.SQLitePath = filepath.Join(base, "state", "assets.db")
	cfgVal.Logging.Format = "console"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLocalPipeline switches the config to the local ffmpeg backend with
// directory-backed buckets.
func WithLocalPipeline() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Backend = config.BackendLocal
		b.cfg.Buckets.Mode = config.BucketModeLocal
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteExecutable(b.t, binDir, name, "")
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
