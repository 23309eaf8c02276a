package engines

import (
	"context"
	"time"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

// CoquiName is the persisted name of the Coqui engine.
const CoquiName = "Coqui TTS"

// DefaultCoquiModel is the model the Coqui engine loads.
const DefaultCoquiModel = "tts_models/en/ljspeech/tacotron2-DDC"

// CoquiConfig holds configuration for the Coqui engine.
type CoquiConfig struct {
	Command string // default "tts"
	Model   string
	Timeout time.Duration
}

// CoquiEngine drives the Coqui `tts` CLI. The model cache is shared
// between invocations, so calls are serialized per instance.
type CoquiEngine struct {
	cmd     Command
	model   string
	timeout time.Duration

	lock engineLock
}

// NewCoquiEngine creates a Coqui engine.
func NewCoquiEngine(cfg CoquiConfig) (*CoquiEngine, error) {
	cmd, err := ParseCommand(cfg.Command, "tts")
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCoquiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = LocalTimeout
	}
	return &CoquiEngine{cmd: cmd, model: cfg.Model, timeout: cfg.Timeout, lock: newEngineLock()}, nil
}

// Name implements tts.Backend.
func (e *CoquiEngine) Name() string { return CoquiName }

// Format implements tts.Backend.
func (e *CoquiEngine) Format() tts.Format { return tts.FormatWAV }

// CheckAvailability implements tts.Backend.
func (e *CoquiEngine) CheckAvailability(context.Context) []string {
	return missingExecutable(e.cmd, "TTS (pip install TTS)")
}

// Synthesize implements tts.Backend.
func (e *CoquiEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	// Time spent queued counts against this call's timeout.
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.lock.acquire(ctx, CoquiName, e.timeout); err != nil {
		return err
	}
	defer e.lock.release()

	return writeAtomic(outputPath, func(tmp string) error {
		return runCommand(ctx, runRequest{
			engine:  CoquiName,
			cmd:     e.cmd,
			args:    []string{"--model_name", e.model, "--text", text, "--out_path", tmp},
			timeout: e.timeout,
		})
	})
}

var _ tts.Backend = (*CoquiEngine)(nil)
