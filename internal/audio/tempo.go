package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTempoTimeout bounds one ffmpeg run.
const DefaultTempoTimeout = 30 * time.Second

// ErrTempoUnavailable is returned when ffmpeg cannot be found.
var ErrTempoUnavailable = errors.New("ffmpeg not found; playback speed requires ffmpeg")

// FFmpegTempo changes playback speed with ffmpeg's atempo filter.
type FFmpegTempo struct {
	Path    string // default "ffmpeg"
	Timeout time.Duration
}

// Shift implements TempoShifter.
func (t FFmpegTempo) Shift(ctx context.Context, src, dst string, speed float64) error {
	path := t.Path
	if path == "" {
		path = "ffmpeg"
	}
	if _, err := exec.LookPath(path); err != nil {
		return ErrTempoUnavailable
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTempoTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	filter := "atempo=" + strconv.FormatFloat(speed, 'f', 2, 64)
	cmd := exec.CommandContext(ctx, path, //nolint:gosec
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", src, "-filter:a", filter, dst)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(dst)
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg %s: %w", filter, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg %s: %s", filter, msg)
		}
		return fmt.Errorf("ffmpeg %s: %w", filter, err)
	}
	return nil
}
