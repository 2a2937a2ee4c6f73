package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// GCP identifies the cloud project and region hosting the pipeline.
type GCP struct {
	ProjectID string `toml:"project_id"`
	Region    string `toml:"region"`
}

// Paths contains local directories and the API bind address.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	ScratchDir string `toml:"scratch_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Buckets names the raw and processed object stores.
type Buckets struct {
	Raw           string `toml:"raw"`
	Processed     string `toml:"processed"`
	Mode          string `toml:"mode"`
	LocalRoot     string `toml:"local_root"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Pipeline selects the transcoding backend and its external tools.
type Pipeline struct {
	Backend        string `toml:"backend"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	ValidateOutput bool   `toml:"validate_output"`
	EncodeTimeout  int    `toml:"encode_timeout"`
}

// Store selects the status store implementation.
type Store struct {
	Backend             string `toml:"backend"`
	SQLitePath          string `toml:"sqlite_path"`
	FirestoreCollection string `toml:"firestore_collection"`
}

// PubSub configures optional pull subscriptions feeding the trigger handlers.
type PubSub struct {
	RawSubscription       string `toml:"raw_subscription"`
	ProcessedSubscription string `toml:"processed_subscription"`
	MaxOutstanding        int    `toml:"max_outstanding"`
}

// Reconcile configures the managed-job status poller.
type Reconcile struct {
	Enabled         bool `toml:"enabled"`
	IntervalSeconds int  `toml:"interval_seconds"`
	GraceSeconds    int  `toml:"grace_seconds"`
}

// Scratch configures the stale scratch directory sweeper.
type Scratch struct {
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
	MaxAgeSeconds        int `toml:"max_age_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for foreverstream.
//
// Configuration sections by subsystem:
//   - GCP: project and region for the Transcoder API and Firestore
//   - Paths: state/scratch directories and API bind address
//   - Buckets: raw and processed object stores
//   - Pipeline: backend selection (managed or local) and encoder binaries
//   - Store: status store backend (sqlite or firestore)
//   - PubSub: optional pull subscriptions for trigger delivery
//   - Reconcile: managed job status polling
//   - Scratch: stale scratch sweeping
//   - Logging: log format and level
type Config struct {
	GCP       GCP       `toml:"gcp"`
	Paths     Paths     `toml:"paths"`
	Buckets   Buckets   `toml:"buckets"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Store     Store     `toml:"store"`
	PubSub    PubSub    `toml:"pubsub"`
	Reconcile Reconcile `toml:"reconcile"`
	Scratch   Scratch   `toml:"scratch"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Values from .env files are exported into the
// process environment before environment fallbacks are applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("foreverstream.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv exports .env files from the working directory and from the config
// file's directory. Existing environment variables always win.
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	var files []string
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			files = append(files, abs)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.ScratchDir}
	if c.UsesLocalBuckets() {
		dirs = append(dirs, c.Buckets.LocalRoot)
	}
	if c.Store.Backend == StoreBackendSQLite {
		dirs = append(dirs, filepath.Dir(c.Store.SQLitePath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LocationPath returns the Transcoder API parent resource for the configured region.
func (c *Config) LocationPath() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.GCP.ProjectID, c.GCP.Region)
}

// UsesLocalBuckets reports whether buckets map to directories under LocalRoot.
func (c *Config) UsesLocalBuckets() bool {
	return c.Buckets.Mode == BucketModeLocal
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "foreverstreamd.lock")
}

// LogPath returns the daemon log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "foreverstream.log")
}

// EncodeTimeout returns the local encoder deadline; zero means none.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.Pipeline.EncodeTimeout) * time.Second
}

// ReconcileInterval returns how often the reconciler polls the backend.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Reconcile.IntervalSeconds) * time.Second
}

// ReconcileGrace returns how long a processing asset is left alone before polling.
func (c *Config) ReconcileGrace() time.Duration {
	return time.Duration(c.Reconcile.GraceSeconds) * time.Second
}

// ScratchSweepInterval returns the sweeper period; zero disables the sweeper.
func (c *Config) ScratchSweepInterval() time.Duration {
	return time.Duration(c.Scratch.SweepIntervalSeconds) * time.Second
}

// ScratchMaxAge returns the age after which an unlocked scratch dir is removed.
func (c *Config) ScratchMaxAge() time.Duration {
	return time.Duration(c.Scratch.MaxAgeSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
