// Package ladder derives the adaptive-bitrate rendition ladder for an input
// video from its native dimensions.
//
// The catalog is fixed and ordered from the highest rendition down. Compute
// keeps every rung that fits inside the source frame and always appends the
// lowest rung so tiny or oddly shaped inputs still get a playable rendition.
// Output order matters downstream: players pick the first rendition as the
// default, so callers must not reorder the slice.
package ladder
