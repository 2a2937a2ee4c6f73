// Package logging assembles structured slog loggers and formatting helpers used
// across foreverstream.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with asset IDs, stages, and correlation IDs. The "auto" format picks
// the console handler on a terminal and JSON otherwise, which keeps container
// logs machine-readable. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
