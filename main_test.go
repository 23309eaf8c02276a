package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type fakeChecker struct {
	descriptors []tts.Descriptor
	missing     map[string][]string
}

func (f fakeChecker) Descriptors() []tts.Descriptor { return f.descriptors }

func (f fakeChecker) CheckAvailability(_ context.Context, name string) []string {
	return f.missing[name]
}

func TestWriteEngineReport(t *testing.T) {
	reg := fakeChecker{
		descriptors: []tts.Descriptor{
			{Name: "Piper", Format: tts.FormatWAV},
			{Name: "gTTS", Format: tts.FormatMP3},
		},
		missing: map[string][]string{"Piper": {"piper executable", "voice model"}},
	}

	var buf bytes.Buffer
	writeEngineReport(context.Background(), &buf, reg, "gTTS")
	out := buf.String()

	for _, want := range []string{"✗ Piper", "piper executable", "voice model", "✓ gTTS", "› ", "(MP3)"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestDefaultConfigIsValidYAML(t *testing.T) {
	var m map[string]any
	if err := yaml.Unmarshal([]byte(defaultConfig), &m); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	for _, key := range []string{"cache", "gtts", "openai", "piper"} {
		if _, ok := m[key]; !ok {
			t.Errorf("default config has no %q section", key)
		}
	}
}

func TestEnsureConfigFile(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = filepath.Join(t.TempDir(), "nested", "readaloud.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != defaultConfig {
		t.Error("config file does not hold the defaults")
	}

	// An existing file is left alone.
	if err := os.WriteFile(configFile, []byte("engine: Piper\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := ensureConfigFile(); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(configFile)
	if string(data) != "engine: Piper\n" {
		t.Errorf("existing config overwritten: %q", data)
	}

	configFile = filepath.Join(t.TempDir(), "readaloud.toml")
	if err := ensureConfigFile(); err == nil {
		t.Error("expected an error for a non-YAML config file")
	}
}

func TestEngineConfig(t *testing.T) {
	viper.Set("gtts.language", "de")
	viper.Set("gtts.timeout", "3s")
	viper.Set("gtts.command", "gtts-cli --slow")
	viper.Set("piper.model", "~/voices/de.onnx")
	viper.Set("local_timeout", "7s")
	t.Cleanup(func() {
		viper.Set("gtts.language", "en")
		viper.Set("gtts.timeout", "10s")
		viper.Set("gtts.command", "")
		viper.Set("piper.model", "")
		viper.Set("local_timeout", "20s")
	})

	cfg := engineConfig(environment{OpenAIKey: "sk-test"})

	if cfg.GTTS.Language != "de" {
		t.Errorf("gtts language = %q", cfg.GTTS.Language)
	}
	if cfg.GTTS.Timeout != 3*time.Second {
		t.Errorf("gtts timeout = %v", cfg.GTTS.Timeout)
	}
	if cfg.GTTS.Command != "gtts-cli --slow" {
		t.Errorf("gtts command = %q", cfg.GTTS.Command)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("openai key = %q", cfg.OpenAI.APIKey)
	}
	if strings.HasPrefix(cfg.Piper.ModelPath, "~") {
		t.Errorf("piper model not expanded: %q", cfg.Piper.ModelPath)
	}
	if cfg.LocalTimeout != 7*time.Second {
		t.Errorf("local timeout = %v", cfg.LocalTimeout)
	}
}

func TestSayText(t *testing.T) {
	got, err := sayText(context.Background(), []string{"hello", "world"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Errorf("sayText(args) = %q", got)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		_, _ = w.WriteString("piped text")
		_ = w.Close()
	}()
	got, err = sayText(context.Background(), nil, r)
	if err != nil {
		t.Fatal(err)
	}
	if got != "piped text" {
		t.Errorf("sayText(stdin) = %q", got)
	}
}
