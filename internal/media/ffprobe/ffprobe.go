package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// ErrNoVideoStream reports media without a decodable video stream.
var ErrNoVideoStream = errors.New("no video stream")

const (
	codecTypeVideo = "video"
	codecTypeAudio = "audio"
)

// Result is the subset of `ffprobe -show_format -show_streams` output the
// pipeline reads.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes one elementary stream.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Profile   string `json:"profile"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	PixFmt    string `json:"pix_fmt"`
	Duration  string `json:"duration"`
}

// Format is container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path. A blank binary falls back to "ffprobe" on PATH.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse %s: %w", path, err)
	}
	result.raw = append([]byte(nil), output...)
	return result, nil
}

// RawJSON returns the ffprobe payload as received.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

func (r Result) count(codecType string) int {
	n := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			n++
		}
	}
	return n
}

// VideoStreamCount returns the number of video streams.
func (r Result) VideoStreamCount() int { return r.count(codecTypeVideo) }

// AudioStreamCount returns the number of audio streams.
func (r Result) AudioStreamCount() int { return r.count(codecTypeAudio) }

// Dimensions returns the frame size of the first video stream with a size.
func (r Result) Dimensions() (int, int, error) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecTypeVideo) && stream.Width > 0 && stream.Height > 0 {
			return stream.Width, stream.Height, nil
		}
	}
	return 0, 0, ErrNoVideoStream
}

// RequireVideo fails with ErrNoVideoStream unless at least one video stream
// is present. Encoded output must pass this before it is published.
func (r Result) RequireVideo() error {
	if r.VideoStreamCount() == 0 {
		return fmt.Errorf("%w in %s", ErrNoVideoStream, r.Format.Filename)
	}
	return nil
}

// DurationSeconds returns the container duration, 0 when absent and NaN when
// unparsable.
func (r Result) DurationSeconds() float64 {
	cleaned := strings.TrimSpace(r.Format.Duration)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}
