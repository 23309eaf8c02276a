package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# engine to switch to on start; empty keeps the last one used
# (gTTS, OpenAI, Piper, Coqui TTS, eSpeak-NG, Festival, System)
engine: ""
# where settings and synthesized audio are kept; empty uses the
# platform data directory
data_dir: ""
# ffmpeg is used for playback speeds other than 1.0
ffmpeg: "ffmpeg"
tempo_timeout: "30s"
# timeout of offline engines
local_timeout: "20s"

# synthesized audio is cached by engine and text
cache:
  # size in MB, 0 disables the cache
  max_size: 100
  # dir: "~/.cache/readaloud/speech"

gtts:
  language: "en"
  # Google host, e.g. "com", "co.uk", "com.au"
  tld: "com"
  timeout: "10s"
  requests_per_minute: 120
  # run gtts-cli instead of calling Google directly, e.g. "gtts-cli --slow"
  command: ""

# the API key is read from OPENAI_API_KEY, which may be set in a .env
# file next to this one
openai:
  model: "tts-1"
  voice: "alloy"
  # base_url: "https://api.openai.com/v1"
  timeout: "10s"

piper:
  command: "piper"
  # model: "~/.local/share/piper/en_US-lessac-medium.onnx"
  speaker: 0

coqui:
  command: "tts"
  # model: "tts_models/en/ljspeech/tacotron2-DDC"

# command lines may carry extra arguments, e.g. "espeak-ng -v en-us"
espeak:
  command: ""
festival:
  command: ""

# voice for the desktop engine (say -v on macOS)
system:
  voice: ""
`

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Edit the readaloud config file",
	Long:    paragraph(fmt.Sprintf("\n%s the readaloud config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("readaloud config\nreadaloud config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("readaloud", configFile)
		if err != nil {
			return fmt.Errorf("unable to open editor: %w", err)
		}
		c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("editor exited with an error: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Config file:", configFile)
		return nil
	},
}

// ensureConfigFile writes the defaults to configFile unless a file is
// already there.
func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.ConfigFileUsed()
	}
	if configFile == "" {
		return errors.New("no config file location")
	}
	switch ext := filepath.Ext(configFile); ext {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("%q is not a supported config file type, use .yml or .yaml", ext)
	}

	_, err := os.Stat(configFile)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("unable to stat config file: %w", err)
	}

	dir := filepath.Dir(configFile)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".readaloud-*.yml")
	if err != nil {
		return fmt.Errorf("unable to create config file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.WriteString(defaultConfig); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), configFile); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	log.Info("Created default config", "path", configFile)
	return nil
}
