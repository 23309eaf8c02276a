package engines

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/dgnsrekt/readaloud/internal/tts"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIName is the persisted name of the OpenAI speech engine.
const OpenAIName = "OpenAI"

// OpenAIConfig holds configuration for the OpenAI speech engine.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: the OpenAI API
	Model   string // default: "tts-1"
	Voice   string // default: "alloy"
	Timeout time.Duration
}

// OpenAIEngine synthesizes MP3 speech using OpenAI's audio API.
type OpenAIEngine struct {
	cfg    OpenAIConfig
	client *openai.Client
}

// NewOpenAIEngine creates an OpenAIEngine with defaults applied.
func NewOpenAIEngine(cfg OpenAIConfig) *OpenAIEngine {
	if cfg.Model == "" {
		cfg.Model = string(openai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.VoiceAlloy)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = RemoteTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIEngine{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}
}

// Name implements tts.Backend.
func (e *OpenAIEngine) Name() string { return OpenAIName }

// Format implements tts.Backend.
func (e *OpenAIEngine) Format() tts.Format { return tts.FormatMP3 }

// CheckAvailability implements tts.Backend.
func (e *OpenAIEngine) CheckAvailability(context.Context) []string {
	if e.cfg.APIKey == "" {
		return []string{"OPENAI_API_KEY (environment variable)"}
	}
	return nil
}

// Synthesize implements tts.Backend.
func (e *OpenAIEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(e.cfg.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(e.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return remoteError(ctx, OpenAIName, e.cfg.Timeout, err)
	}
	defer resp.Close() //nolint:errcheck

	return writeAtomic(outputPath, func(tmp string) error {
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return tts.NewError(tts.ErrorCodeSynthesisFailure, "unable to open temp file", err)
		}
		defer f.Close() //nolint:errcheck

		if _, err := io.Copy(f, resp); err != nil {
			return remoteError(ctx, OpenAIName, e.cfg.Timeout, err)
		}
		return f.Close()
	})
}

var _ tts.Backend = (*OpenAIEngine)(nil)
