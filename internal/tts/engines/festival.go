package engines

import (
	"context"
	"time"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

// FestivalName is the persisted name of the Festival engine.
const FestivalName = "Festival"

// FestivalEngine uses Festival's text2wave script.
type FestivalEngine struct {
	cmd     Command
	timeout time.Duration
}

// NewFestivalEngine creates a Festival engine. An empty command line
// uses "text2wave".
func NewFestivalEngine(command string, timeout time.Duration) (*FestivalEngine, error) {
	cmd, err := ParseCommand(command, "text2wave")
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = LocalTimeout
	}
	return &FestivalEngine{cmd: cmd, timeout: timeout}, nil
}

// Name implements tts.Backend.
func (e *FestivalEngine) Name() string { return FestivalName }

// Format implements tts.Backend.
func (e *FestivalEngine) Format() tts.Format { return tts.FormatWAV }

// CheckAvailability implements tts.Backend.
func (e *FestivalEngine) CheckAvailability(context.Context) []string {
	return missingExecutable(e.cmd, "festival (system package)")
}

// Synthesize implements tts.Backend.
func (e *FestivalEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	return writeAtomic(outputPath, func(tmp string) error {
		return runCommand(ctx, runRequest{
			engine:  FestivalName,
			cmd:     e.cmd,
			args:    []string{"-o", tmp},
			stdin:   text,
			timeout: e.timeout,
		})
	})
}

var _ tts.Backend = (*FestivalEngine)(nil)
