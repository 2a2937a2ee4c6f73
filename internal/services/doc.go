// Package services defines shared utilities consumed by the trigger handlers,
// transcoding backends, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp asset IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, so failures can be
//     classified once and mapped to HTTP responses at the transport edge.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
