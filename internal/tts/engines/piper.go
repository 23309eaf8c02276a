package engines

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

// PiperName is the persisted name of the Piper engine.
const PiperName = "Piper"

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Command is the piper command line, default "piper"
	Command string

	// ModelPath is the .onnx voice model
	ModelPath string

	// SpeakerID selects a voice in multi-speaker models
	SpeakerID int

	Timeout time.Duration
}

// PiperEngine is the offline neural engine. Each call runs its own
// piper process, so no lock is needed.
type PiperEngine struct {
	cmd     Command
	model   string
	speaker int
	timeout time.Duration
}

// NewPiperEngine creates a Piper engine.
func NewPiperEngine(cfg PiperConfig) (*PiperEngine, error) {
	cmd, err := ParseCommand(cfg.Command, "piper")
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = LocalTimeout
	}
	return &PiperEngine{
		cmd:     cmd,
		model:   cfg.ModelPath,
		speaker: cfg.SpeakerID,
		timeout: cfg.Timeout,
	}, nil
}

// Name implements tts.Backend.
func (e *PiperEngine) Name() string { return PiperName }

// Format implements tts.Backend.
func (e *PiperEngine) Format() tts.Format { return tts.FormatWAV }

// CheckAvailability implements tts.Backend.
func (e *PiperEngine) CheckAvailability(context.Context) []string {
	missing := missingExecutable(e.cmd, "piper (https://github.com/rhasspy/piper)")
	switch {
	case e.model == "":
		missing = append(missing, "piper voice model (set engines.piper.model)")
	default:
		if _, err := os.Stat(e.model); err != nil {
			missing = append(missing, fmt.Sprintf("piper voice model %s", e.model))
		}
	}
	return missing
}

// Synthesize implements tts.Backend.
func (e *PiperEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	return writeAtomic(outputPath, func(tmp string) error {
		args := []string{"--model", e.model, "--output_file", tmp}
		if e.speaker > 0 {
			args = append(args, "--speaker", fmt.Sprint(e.speaker))
		}
		return runCommand(ctx, runRequest{
			engine:  PiperName,
			cmd:     e.cmd,
			args:    args,
			stdin:   text,
			timeout: e.timeout,
		})
	})
}

var _ tts.Backend = (*PiperEngine)(nil)
