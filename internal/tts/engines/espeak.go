package engines

import (
	"context"
	"time"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

// ESpeakName is the persisted name of the eSpeak NG engine.
const ESpeakName = "eSpeak-NG"

// ESpeakEngine is a rule-based offline engine.
type ESpeakEngine struct {
	cmd     Command
	timeout time.Duration
}

// NewESpeakEngine creates an eSpeak NG engine from a command line such as
// "espeak-ng -v en-us". An empty line uses "espeak-ng".
func NewESpeakEngine(command string, timeout time.Duration) (*ESpeakEngine, error) {
	cmd, err := ParseCommand(command, "espeak-ng")
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = LocalTimeout
	}
	return &ESpeakEngine{cmd: cmd, timeout: timeout}, nil
}

// Name implements tts.Backend.
func (e *ESpeakEngine) Name() string { return ESpeakName }

// Format implements tts.Backend.
func (e *ESpeakEngine) Format() tts.Format { return tts.FormatWAV }

// CheckAvailability implements tts.Backend.
func (e *ESpeakEngine) CheckAvailability(context.Context) []string {
	return missingExecutable(e.cmd, "espeak-ng (system package)")
}

// Synthesize implements tts.Backend. Text goes through stdin so it is
// never parsed as options.
func (e *ESpeakEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	return writeAtomic(outputPath, func(tmp string) error {
		return runCommand(ctx, runRequest{
			engine:  ESpeakName,
			cmd:     e.cmd,
			args:    []string{"-w", tmp, "--stdin"},
			stdin:   text,
			timeout: e.timeout,
		})
	})
}

var _ tts.Backend = (*ESpeakEngine)(nil)
