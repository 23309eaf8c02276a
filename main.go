// Package main provides the entry point for the readaloud CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/capture"
	"github.com/dgnsrekt/readaloud/internal/settings"
	"github.com/dgnsrekt/readaloud/ui"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	engineName string
	debug      bool
	mouse      bool

	dirs settings.Dirs

	rootCmd = &cobra.Command{
		Use:   "readaloud",
		Short: "Read the selected text aloud",
		Long: paragraph(
			fmt.Sprintf("\nSelect text anywhere, press %s, and hear it spoken by the engine of your choice.", keyword("t")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOptions()
		},
		RunE: runPanel,
	}
)

// environment holds the variables read straight from the process
// environment (after <config dir>/.env is loaded).
type environment struct {
	OpenAIKey string `env:"OPENAI_API_KEY"`
	Debug     bool   `env:"READALOUD_DEBUG"`
}

func validateOptions() error {
	if configFile != "" && configFile != viper.ConfigFileUsed() {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	engineName = viper.GetString("engine")
	debug = viper.GetBool("debug")
	mouse = viper.GetBool("mouse")

	if viper.GetInt64("cache.max_size") < 0 {
		return fmt.Errorf("cache.max_size must not be negative, got %d", viper.GetInt64("cache.max_size"))
	}
	if viper.GetDuration("local_timeout") < 0 {
		return errors.New("local_timeout must not be negative")
	}
	return nil
}

func readEnvironment() (environment, error) {
	e, err := env.ParseAs[environment]()
	if err != nil {
		return environment{}, fmt.Errorf("error parsing environment: %w", err)
	}
	if e.Debug {
		debug = true
	}
	return e, nil
}

func runPanel(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := readEnvironment()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, e, withPlayback())
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	go func() {
		if err := a.store.Watch(ctx, func(s settings.Settings) {
			a.ctrl.ApplySettings(ctx, s)
		}); err != nil {
			log.Warn("Not watching settings file", "error", err)
		}
	}()

	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	cfg.EnableMouse = mouse

	if _, err := ui.NewProgram(ctx, cfg, a.ctrl, capture.NewClipboard()).Run(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", configFile, "config file")
	rootCmd.PersistentFlags().StringVarP(&engineName, "engine", "e", "", "switch to this engine on start")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output, including the text read")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("data_dir", "")
	viper.SetDefault("ffmpeg", "ffmpeg")
	viper.SetDefault("tempo_timeout", "30s")
	viper.SetDefault("local_timeout", "20s")

	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.max_size", 100)

	viper.SetDefault("gtts.language", "en")
	viper.SetDefault("gtts.tld", "com")
	viper.SetDefault("gtts.url", "")
	viper.SetDefault("gtts.timeout", "10s")
	viper.SetDefault("gtts.requests_per_minute", 120)
	viper.SetDefault("gtts.command", "")

	viper.SetDefault("openai.model", "tts-1")
	viper.SetDefault("openai.voice", "alloy")
	viper.SetDefault("openai.base_url", "")
	viper.SetDefault("openai.timeout", "10s")

	viper.SetDefault("piper.command", "piper")
	viper.SetDefault("piper.model", "")
	viper.SetDefault("piper.speaker", 0)
	viper.SetDefault("coqui.command", "tts")
	viper.SetDefault("coqui.model", "")
	viper.SetDefault("espeak.command", "")
	viper.SetDefault("festival.command", "")
	viper.SetDefault("system.voice", "")

	rootCmd.AddCommand(configCmd, enginesCmd, sayCmd, cacheCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	var err error
	dirs, err = settings.ResolveDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs.Config {
		viper.AddConfigPath(v)
	}

	// Secrets such as OPENAI_API_KEY may live next to the config file.
	dotenv := filepath.Join(dirs.Config[0], ".env")
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Could not load environment file", "path", dotenv, "err", err)
	}

	viper.SetConfigName(settings.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(settings.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		configFile = used
		return
	}

	configFile = filepath.Join(dirs.Config[0], settings.AppName+".yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
