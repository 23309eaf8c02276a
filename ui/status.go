package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/session"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	darkRed   = lipgloss.AdaptiveColor{Light: "#A3213F", Dark: "#6E1B2E"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarSpeedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFD7DF")).
				Background(darkRed).
				Render

	engineReadyStyle   = lipgloss.NewStyle().Foreground(mintGreen).Render
	engineMissingStyle = lipgloss.NewStyle().Foreground(red).Render
	engineActiveStyle  = lipgloss.NewStyle().Bold(true).Render
	dimStyle           = lipgloss.NewStyle().Foreground(gray).Render
	warningStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00")).Render
)

// stateIcon returns an icon for the transport state.
func stateIcon(s audio.State) string {
	switch s {
	case audio.StatePlaying:
		return "▶"
	case audio.StatePaused:
		return "⏸"
	case audio.StateLoading:
		return "⟳"
	default:
		return "■"
	}
}

func stateColor(s audio.State) lipgloss.TerminalColor {
	switch s {
	case audio.StatePlaying:
		return lipgloss.Color("#00FF00")
	case audio.StatePaused:
		return lipgloss.Color("#FFFF00")
	case audio.StateLoading:
		return lipgloss.Color("#00AAFF")
	default:
		return gray
	}
}

// formatDuration formats a duration as m:ss.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// stateLabel is the headline for the snapshot. Synthesis and switching
// take precedence over the transport state.
func stateLabel(snap session.Snapshot) string {
	switch {
	case snap.Switching:
		return "Switching engine"
	case snap.Synthesizing:
		return "Synthesizing with " + snap.Active
	case !snap.Ready:
		return snap.Active + " unavailable"
	}
	switch snap.Transport.State {
	case audio.StatePlaying:
		return "Playing"
	case audio.StatePaused:
		return "Paused"
	case audio.StateLoading:
		return "Loading audio"
	}
	if snap.HasAudio {
		return "Ready, press r to replay"
	}
	return "Ready, press t to read the selection"
}

// transportView renders the state line and, while audio is loaded, the
// position. spin is shown for work of unknown length.
func transportView(snap session.Snapshot, spin string) string {
	busy := snap.Switching || snap.Synthesizing || snap.Transport.State == audio.StateLoading

	icon := stateIcon(snap.Transport.State)
	if busy {
		icon = spin
	}
	line := lipgloss.NewStyle().
		Foreground(stateColor(snap.Transport.State)).
		Render(icon + " " + stateLabel(snap))

	ts := snap.Transport
	if ts.State == audio.StatePlaying || ts.State == audio.StatePaused {
		if ts.Indeterminate {
			line += dimStyle(fmt.Sprintf("  %s", formatDuration(ts.Elapsed)))
		} else {
			line += dimStyle(fmt.Sprintf("  %s / %s", formatDuration(ts.Elapsed), formatDuration(ts.Duration)))
		}
	}
	return line
}

// enginesView lists every engine with its availability. Missing
// prerequisites are shown for the active engine only.
func enginesView(snap session.Snapshot, width int) string {
	var b strings.Builder
	for _, e := range snap.Engines {
		marker := "  "
		name := e.Name
		if e.Name == snap.Active {
			marker = "› "
			name = engineActiveStyle(name)
		}

		var mark string
		switch {
		case !e.Checked:
			mark = dimStyle("?")
		case e.Ready():
			mark = engineReadyStyle("✓")
		default:
			mark = engineMissingStyle("✗")
		}

		pad := max(0, 12-runewidth.StringWidth(e.Name))
		fmt.Fprintf(&b, "%s%s %s%s%s\n", marker, mark, name, strings.Repeat(" ", pad), dimStyle(e.Format.String()))

		if e.Name == snap.Active && e.Checked && !e.Ready() {
			missing := "missing: " + strings.Join(e.Missing, ", ")
			if width > 6 {
				missing = truncate.StringWithTail(missing, uint(width-6), ellipsis) //nolint:gosec
			}
			fmt.Fprintf(&b, "      %s\n", engineMissingStyle(missing))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// statusBarView renders the bottom bar: logo, note or message, speed.
func statusBarView(snap session.Snapshot, message string, isError bool, width int) string {
	logo := logoStyle(" readaloud ")

	speed := " " + tts.SpeedDisplay(snap.Speed) + " "
	if snap.Debug {
		speed = " debug" + speed
	}
	speed = statusBarSpeedStyle(speed)

	note := message
	if note == "" {
		note = snap.Message
		isError = snap.Alert
	}
	showMessage := note != ""
	if !showMessage {
		note = "engine: " + snap.Active
	}

	avail := max(0, width-ansi.PrintableRuneWidth(logo)-ansi.PrintableRuneWidth(speed))
	note = truncate.StringWithTail(" "+note+" ", uint(avail), ellipsis) //nolint:gosec
	padding := strings.Repeat(" ", max(0, avail-ansi.PrintableRuneWidth(note)))

	render := statusBarNoteStyle
	switch {
	case showMessage && isError:
		render = statusBarErrorStyle
	case showMessage:
		render = statusBarMessageStyle
	}
	return logo + render(note+padding) + speed
}
