package engines

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

// Config collects the options of every engine.
type Config struct {
	GTTS   GTTSConfig
	OpenAI OpenAIConfig
	Piper  PiperConfig
	Coqui  CoquiConfig

	ESpeakCommand   string
	FestivalCommand string
	SystemVoice     string

	// LocalTimeout overrides the timeout of external-process engines
	LocalTimeout time.Duration
}

// Build constructs every engine. Registration is explicit: adding an
// engine means adding it here.
func Build(cfg Config) ([]tts.Backend, error) {
	if cfg.LocalTimeout > 0 {
		if cfg.Piper.Timeout <= 0 {
			cfg.Piper.Timeout = cfg.LocalTimeout
		}
		if cfg.Coqui.Timeout <= 0 {
			cfg.Coqui.Timeout = cfg.LocalTimeout
		}
	}

	if _, err := ParseCommand(cfg.GTTS.Command, "gtts-cli"); err != nil {
		return nil, fmt.Errorf("gtts: %w", err)
	}
	piper, err := NewPiperEngine(cfg.Piper)
	if err != nil {
		return nil, fmt.Errorf("piper: %w", err)
	}
	coqui, err := NewCoquiEngine(cfg.Coqui)
	if err != nil {
		return nil, fmt.Errorf("coqui: %w", err)
	}
	espeak, err := NewESpeakEngine(cfg.ESpeakCommand, cfg.LocalTimeout)
	if err != nil {
		return nil, fmt.Errorf("espeak: %w", err)
	}
	festival, err := NewFestivalEngine(cfg.FestivalCommand, cfg.LocalTimeout)
	if err != nil {
		return nil, fmt.Errorf("festival: %w", err)
	}

	return []tts.Backend{
		NewGTTSEngine(cfg.GTTS),
		NewOpenAIEngine(cfg.OpenAI),
		piper,
		coqui,
		espeak,
		festival,
		NewSystemEngine(cfg.SystemVoice, cfg.LocalTimeout),
	}, nil
}

// NewRegistry builds every engine and registers it.
func NewRegistry(cfg Config) (*tts.Registry, error) {
	backends, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	return tts.NewRegistry(backends...)
}
