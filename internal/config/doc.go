// Package config loads, normalizes, and validates foreverstream configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, exports values from .env files, and honours
// environment fallbacks such as GOOGLE_CLOUD_PROJECT_ID and
// FOREVERSTREAM_RAW_BUCKET. The Config type centralizes every knob the daemon
// and CLI need: the cloud project, bucket names, the transcoding backend, the
// status store, and the local scratch area.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical backend names, and clear validation errors.
package config
