package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/internal/session"
	"github.com/dgnsrekt/readaloud/internal/settings"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/dgnsrekt/readaloud/internal/tts/engines"
	"github.com/spf13/viper"
)

const megabyte = 1 << 20

// app owns everything a running session needs.
type app struct {
	store     *settings.Store
	registry  *tts.Registry
	artifacts tts.Artifacts
	cache     *cache.DiskCache
	transport *audio.Transport
	ctrl      *session.Controller
}

type appOptions struct {
	playback bool
}

type appOption func(*appOptions)

// withPlayback opens the audio device and starts a session controller.
func withPlayback() appOption {
	return func(o *appOptions) { o.playback = true }
}

func newApp(ctx context.Context, e environment, opts ...appOption) (*app, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	a := &app{}
	var err error

	a.store, err = settings.Open(dataDir())
	if err != nil {
		return nil, err
	}
	a.registry, err = engines.NewRegistry(engineConfig(e))
	if err != nil {
		return nil, fmt.Errorf("unable to set up engines: %w", err)
	}
	a.artifacts, err = tts.NewArtifacts(filepath.Join(dataDir(), "audio"))
	if err != nil {
		return nil, err
	}
	a.cache, err = openCache()
	if err != nil {
		log.Warn("Synthesis cache disabled", "error", err)
	}

	if !o.playback {
		return a, nil
	}

	device, err := audio.NewOtoDevice()
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("unable to open audio output: %w", err)
	}
	a.transport = audio.NewTransport(device, audio.WithTempo(audio.FFmpegTempo{
		Path:    viper.GetString("ffmpeg"),
		Timeout: viper.GetDuration("tempo_timeout"),
	}))

	cfg := session.Config{
		Engines:   a.registry,
		Transport: a.transport,
		Settings:  a.store,
		Artifacts: a.artifacts,
		Cue:       audio.NewCuePlayer(device),
	}
	if a.cache != nil {
		cfg.Cache = a.cache
	}
	a.ctrl, err = session.New(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if engineName != "" && engineName != a.ctrl.Active() {
		if err := a.ctrl.SwitchEngine(ctx, engineName); err != nil {
			if errors.Is(err, tts.ErrNotFound) {
				_ = a.Close()
				return nil, err
			}
			log.Warn("Engine selected but not ready", "engine", engineName, "error", err)
		}
	}
	if debug {
		if err := a.ctrl.SetDebug(true); err != nil {
			log.Warn("Unable to enable debug mode", "error", err)
		}
	}
	return a, nil
}

// Close stops the session, saves the cache index and releases the
// audio output.
func (a *app) Close() error {
	var errs []error
	if a.ctrl != nil {
		errs = append(errs, a.ctrl.Close())
	}
	if a.transport != nil {
		errs = append(errs, a.transport.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	return errors.Join(errs...)
}

func dataDir() string {
	if d := viper.GetString("data_dir"); d != "" {
		return settings.ExpandPath(d)
	}
	return dirs.Data
}

func cacheDir() string {
	if d := viper.GetString("cache.dir"); d != "" {
		return settings.ExpandPath(d)
	}
	return filepath.Join(dirs.Cache, "speech")
}

// openCache returns nil when caching is disabled.
func openCache() (*cache.DiskCache, error) {
	size := viper.GetInt64("cache.max_size")
	if size <= 0 {
		return nil, nil //nolint:nilnil
	}
	return cache.NewDiskCache(cacheDir(), size*megabyte)
}

// engineConfig collects engine options from the config file, flags and
// environment.
func engineConfig(e environment) engines.Config {
	return engines.Config{
		GTTS: engines.GTTSConfig{
			Language:          viper.GetString("gtts.language"),
			TLD:               viper.GetString("gtts.tld"),
			BaseURL:           viper.GetString("gtts.url"),
			Timeout:           viper.GetDuration("gtts.timeout"),
			RequestsPerMinute: viper.GetInt("gtts.requests_per_minute"),
			Command:           viper.GetString("gtts.command"),
		},
		OpenAI: engines.OpenAIConfig{
			APIKey:  e.OpenAIKey,
			BaseURL: viper.GetString("openai.base_url"),
			Model:   viper.GetString("openai.model"),
			Voice:   viper.GetString("openai.voice"),
			Timeout: viper.GetDuration("openai.timeout"),
		},
		Piper: engines.PiperConfig{
			Command:   viper.GetString("piper.command"),
			ModelPath: settings.ExpandPath(viper.GetString("piper.model")),
			SpeakerID: viper.GetInt("piper.speaker"),
		},
		Coqui: engines.CoquiConfig{
			Command: viper.GetString("coqui.command"),
			Model:   viper.GetString("coqui.model"),
		},
		ESpeakCommand:   viper.GetString("espeak.command"),
		FestivalCommand: viper.GetString("festival.command"),
		SystemVoice:     viper.GetString("system.voice"),
		LocalTimeout:    viper.GetDuration("local_timeout"),
	}
}
