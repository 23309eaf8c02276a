// Package capture reads the text the user wants read aloud.
package capture

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
)

// primaryTimeout bounds the xclip call; xclip can hang without an X server.
const primaryTimeout = 2 * time.Second

// Clipboard captures the current selection. On Linux the PRIMARY
// selection (highlighted text) is tried first; everywhere else, and as
// the fallback, the system clipboard is used.
type Clipboard struct {
	// UsePrimary enables the PRIMARY selection lookup on Linux.
	UsePrimary bool

	readPrimary   func(ctx context.Context) (string, error)
	readClipboard func() (string, error)
}

// NewClipboard creates a capturer for the current platform.
func NewClipboard() *Clipboard {
	return &Clipboard{
		UsePrimary:    runtime.GOOS == "linux",
		readPrimary:   xclipPrimary,
		readClipboard: clipboard.ReadAll,
	}
}

// Capture returns the selected text. An empty selection is not an
// error; callers decide what empty means.
func (c *Clipboard) Capture(ctx context.Context) (string, error) {
	if c.UsePrimary && c.readPrimary != nil {
		text, err := c.readPrimary(ctx)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			log.Debug("PRIMARY selection unavailable, using clipboard", "error", err)
		}
	}
	return c.readClipboard()
}

func xclipPrimary(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, primaryTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "xclip", "-selection", "primary", "-o").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
