// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, format name)
//
// Inspect executes ffprobe and returns the parsed Result. The worker uses it
// to validate encoded output, and the CLI uses Dimensions to fill in the input
// size of new assets.
package ffprobe
