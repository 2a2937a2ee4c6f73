package ladder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDimensions reports a non-positive input width or height.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// Rendition is one target output quality level.
type Rendition struct {
	Label   string `json:"label"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Bitrate int    `json:"bitrateBps"`
}

// Key returns the height-based identifier used for stream keys (e.g. "720p").
func (r Rendition) Key() string {
	return fmt.Sprintf("%dp", r.Height)
}

// Resolution formats the rendition frame size as "<w>x<h>".
func (r Rendition) Resolution() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// catalog must stay sorted by height, highest first.
var catalog = []Rendition{
	{Label: "2160p", Width: 3840, Height: 2160, Bitrate: 16_000_000},
	{Label: "1440p", Width: 2560, Height: 1440, Bitrate: 8_000_000},
	{Label: "1080p", Width: 1920, Height: 1080, Bitrate: 4_500_000},
	{Label: "720p", Width: 1280, Height: 720, Bitrate: 2_500_000},
	{Label: "480p", Width: 854, Height: 480, Bitrate: 1_000_000},
}

// Catalog returns a copy of the standard rendition catalog.
func Catalog() []Rendition {
	out := make([]Rendition, len(catalog))
	copy(out, catalog)
	return out
}

// Lowest returns the minimum rendition that every ladder contains.
func Lowest() Rendition {
	return catalog[len(catalog)-1]
}

// Compute selects the renditions for an input of the given size.
func Compute(width, height int) ([]Rendition, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	selected := make([]Rendition, 0, len(catalog))
	hasLowest := false
	lowest := Lowest()
	for _, rung := range catalog {
		if rung.Height <= height && rung.Width <= width {
			selected = append(selected, rung)
			if rung.Height == lowest.Height {
				hasLowest = true
			}
		}
	}
	if !hasLowest {
		selected = append(selected, lowest)
	}
	return selected, nil
}

// ParseDimensions parses "<w>x<h>" into positive integers.
func ParseDimensions(value string) (int, int, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	parts := strings.SplitN(trimmed, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDimensions, value)
	}
	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: width %q", ErrInvalidDimensions, parts[0])
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: height %q", ErrInvalidDimensions, parts[1])
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return width, height, nil
}

// FormatDimensions renders a width/height pair as "<w>x<h>".
func FormatDimensions(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}
