package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Missing project, region, or
// bucket names are startup errors.
func (c *Config) Validate() error {
	if err := c.validateGCP(); err != nil {
		return err
	}
	if err := c.validateBuckets(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	if err := c.validateScratch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGCP() error {
	if c.GCP.ProjectID == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("gcp.project_id is required. Set GOOGLE_CLOUD_PROJECT_ID env var or edit %s (create with 'foreverstream config init')", defaultPath)
	}
	if c.GCP.Region == "" {
		return errors.New("gcp.region must be set")
	}
	return nil
}

func (c *Config) validateBuckets() error {
	if c.Buckets.Raw == "" {
		return errors.New("buckets.raw is required. Set FOREVERSTREAM_RAW_BUCKET env var or edit the config file")
	}
	if c.Buckets.Processed == "" {
		return errors.New("buckets.processed is required. Set FOREVERSTREAM_PROCESSED_BUCKET env var or edit the config file")
	}
	if c.Buckets.Raw == c.Buckets.Processed {
		return errors.New("buckets.raw and buckets.processed must differ")
	}
	switch c.Buckets.Mode {
	case BucketModeGCS:
	case BucketModeLocal:
		if c.Buckets.LocalRoot == "" {
			return errors.New("buckets.local_root must be set when buckets.mode is local")
		}
	default:
		return fmt.Errorf("buckets.mode: unsupported value %q (want gcs or local)", c.Buckets.Mode)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.Backend {
	case BackendManaged:
		if c.Buckets.Mode != BucketModeGCS {
			return errors.New("pipeline.backend managed requires buckets.mode gcs")
		}
	case BackendLocal:
	default:
		return fmt.Errorf("pipeline.backend: unsupported value %q (want managed or local)", c.Pipeline.Backend)
	}
	if c.Pipeline.EncodeTimeout < 0 {
		return errors.New("pipeline.encode_timeout must be non-negative")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreBackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path must be set")
		}
	case StoreBackendFirestore:
		if c.Store.FirestoreCollection == "" {
			return errors.New("store.firestore_collection must be set")
		}
	default:
		return fmt.Errorf("store.backend: unsupported value %q (want sqlite or firestore)", c.Store.Backend)
	}
	return nil
}

func (c *Config) validateReconcile() error {
	if !c.Reconcile.Enabled {
		return nil
	}
	if c.Reconcile.IntervalSeconds <= 0 {
		return errors.New("reconcile.interval_seconds must be positive")
	}
	if c.Reconcile.GraceSeconds < 0 {
		return errors.New("reconcile.grace_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validateScratch() error {
	if c.Scratch.SweepIntervalSeconds < 0 {
		return errors.New("scratch.sweep_interval_seconds must be non-negative")
	}
	if c.Scratch.MaxAgeSeconds <= 0 {
		return errors.New("scratch.max_age_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
