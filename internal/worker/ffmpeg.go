package worker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"foreverstream/internal/logging"
)

var commandContext = exec.CommandContext

// Encoder transforms one input file into one output file.
type Encoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// FFmpeg runs the ffmpeg binary with the fixed single-rendition MP4 recipe.
type FFmpeg struct {
	binary string
	logger *slog.Logger
}

// NewFFmpeg returns an encoder invoking binary (default "ffmpeg").
func NewFFmpeg(binary string, logger *slog.Logger) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FFmpeg{binary: binary, logger: logger}
}

// Args returns the ffmpeg arguments for an input/output pair. Output is scaled
// to 1080 lines with the source aspect ratio and an even width for libx264.
func Args(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-c:v", "libx264",
		"-crf", "23",
		"-c:a", "aac",
		"-q:a", "4",
		"-vf", "scale=-2:1080",
		"-movflags", "+faststart",
		"-y", outputPath,
	}
}

// Transcode runs ffmpeg, forwarding its output to the logger line by line.
func (f *FFmpeg) Transcode(ctx context.Context, inputPath, outputPath string) error {
	args := Args(inputPath, outputPath)
	f.logger.Info("launching ffmpeg", logging.String("command", f.binary+" "+strings.Join(args, " ")))

	stdout := newLogWriter(f.logger, "stdout", 0)
	stderr := newLogWriter(f.logger, "stderr", 20)
	cmd := commandContext(ctx, f.binary, args...) //nolint:gosec
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		if tail := stderr.Tail(); tail != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, tail)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

// logWriter splits process output into lines and logs each at debug level.
// It keeps the last few lines for error messages.
type logWriter struct {
	mu     sync.Mutex
	logger *slog.Logger
	stream string
	buf    bytes.Buffer
	keep   int
	tail   []string
}

func newLogWriter(logger *slog.Logger, stream string, keep int) *logWriter {
	return &logWriter{logger: logger, stream: stream, keep: keep}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line; put it back for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs any partial trailing line.
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

// Tail returns the retained lines joined by "; ".
func (w *logWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.tail, "; ")
}

func (w *logWriter) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	w.logger.Debug("ffmpeg output", logging.String("stream", w.stream), logging.String("line", line))
	if w.keep <= 0 {
		return
	}
	w.tail = append(w.tail, line)
	if len(w.tail) > w.keep {
		w.tail = w.tail[len(w.tail)-w.keep:]
	}
}
