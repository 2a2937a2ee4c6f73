package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeGCP()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeBuckets(); err != nil {
		return err
	}
	c.normalizePipeline()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizePubSub()
	c.normalizeLogging()
	return nil
}

// lookupEnv returns the first non-empty value among the given variables.
func lookupEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

func (c *Config) normalizeGCP() {
	c.GCP.ProjectID = strings.TrimSpace(c.GCP.ProjectID)
	if c.GCP.ProjectID == "" {
		if value, ok := lookupEnv("GOOGLE_CLOUD_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"); ok {
			c.GCP.ProjectID = value
		}
	}
	c.GCP.Region = strings.TrimSpace(c.GCP.Region)
	if value, ok := lookupEnv("FOREVERSTREAM_REGION"); ok {
		c.GCP.Region = value
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = filepath.Join(c.Paths.StateDir, "scratch")
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if value, ok := lookupEnv("FOREVERSTREAM_API_BIND"); ok {
		c.Paths.APIBind = value
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if value, ok := lookupEnv("FOREVERSTREAM_API_TOKEN"); ok {
		c.Paths.APIToken = value
	}
	return nil
}

func (c *Config) normalizeBuckets() error {
	c.Buckets.Raw = strings.TrimSpace(c.Buckets.Raw)
	if c.Buckets.Raw == "" {
		if value, ok := lookupEnv("FOREVERSTREAM_RAW_BUCKET", "RAW_BUCKET"); ok {
			c.Buckets.Raw = value
		}
	}
	c.Buckets.Processed = strings.TrimSpace(c.Buckets.Processed)
	if c.Buckets.Processed == "" {
		if value, ok := lookupEnv("FOREVERSTREAM_PROCESSED_BUCKET", "PROCESSED_BUCKET"); ok {
			c.Buckets.Processed = value
		}
	}
	c.Buckets.Mode = strings.ToLower(strings.TrimSpace(c.Buckets.Mode))
	if c.Buckets.Mode == "" {
		c.Buckets.Mode = BucketModeGCS
	}
	if strings.TrimSpace(c.Buckets.LocalRoot) == "" {
		c.Buckets.LocalRoot = defaultLocalBucketRoot
	}
	var err error
	if c.Buckets.LocalRoot, err = expandPath(c.Buckets.LocalRoot); err != nil {
		return fmt.Errorf("buckets.local_root: %w", err)
	}
	c.Buckets.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Buckets.PublicBaseURL), "/")
	if c.Buckets.PublicBaseURL == "" {
		c.Buckets.PublicBaseURL = defaultPublicBaseURL
	}
	return nil
}

func (c *Config) normalizePipeline() {
	c.Pipeline.Backend = strings.ToLower(strings.TrimSpace(c.Pipeline.Backend))
	if value, ok := lookupEnv("FOREVERSTREAM_BACKEND"); ok {
		c.Pipeline.Backend = strings.ToLower(value)
	}
	if c.Pipeline.Backend == "" {
		c.Pipeline.Backend = BackendManaged
	}
	c.Pipeline.FFmpegBinary = strings.TrimSpace(c.Pipeline.FFmpegBinary)
	if c.Pipeline.FFmpegBinary == "" {
		c.Pipeline.FFmpegBinary = defaultFFmpegBinary
	}
	c.Pipeline.FFprobeBinary = strings.TrimSpace(c.Pipeline.FFprobeBinary)
	if c.Pipeline.FFprobeBinary == "" {
		c.Pipeline.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = StoreBackendSQLite
	}
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = filepath.Join(c.Paths.StateDir, "assets.db")
	}
	var err error
	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}
	c.Store.FirestoreCollection = strings.TrimSpace(c.Store.FirestoreCollection)
	if c.Store.FirestoreCollection == "" {
		c.Store.FirestoreCollection = defaultFirestoreCollection
	}
	return nil
}

func (c *Config) normalizePubSub() {
	c.PubSub.RawSubscription = strings.TrimSpace(c.PubSub.RawSubscription)
	c.PubSub.ProcessedSubscription = strings.TrimSpace(c.PubSub.ProcessedSubscription)
	if c.PubSub.MaxOutstanding <= 0 {
		c.PubSub.MaxOutstanding = defaultPubSubMaxOutstanding
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
