package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	EnableMouse bool
	AltScreen   bool `env:"READALOUD_ALT_SCREEN" envDefault:"true"`

	// How often the panel polls the session for status.
	TickInterval time.Duration `env:"READALOUD_TICK_INTERVAL" envDefault:"500ms"`
}
