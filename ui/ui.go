// Package ui provides the control panel for readaloud.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/session"
	"github.com/dgnsrekt/readaloud/internal/tts"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show messages like "nothing selected"
	defaultTickInterval  = 500 * time.Millisecond
	ellipsis             = "…"
	maxProgressWidth     = 60
)

// Controller is the session the panel drives.
type Controller interface {
	RequestRead(ctx context.Context, text string) (*session.Job, error)
	Cancel() bool
	CycleEngine(ctx context.Context, step int) error
	Play(ctx context.Context) error
	TogglePause() error
	Stop()
	SetSpeed(speed float64) error
	SetDebug(on bool) error
	Status() session.Snapshot
}

// Capturer reads the text to read aloud.
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

// NewProgram returns a new Tea program.
func NewProgram(ctx context.Context, cfg Config, ctrl Controller, capture Capturer) *tea.Program {
	log.Debug("Starting control panel", "tick", cfg.TickInterval, "alt_screen", cfg.AltScreen)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	opts = append(opts, tea.WithContext(ctx))
	return tea.NewProgram(newModel(ctx, cfg, ctrl, capture), opts...)
}

type (
	tickMsg                 time.Time
	statusMessageTimeoutMsg int

	// actionMsg reports the outcome of a control run off the UI goroutine.
	actionMsg struct {
		action string
		err    error
	}
)

type model struct {
	ctx     context.Context
	cfg     Config
	ctrl    Controller
	capture Capturer

	keys     keyMap
	help     help.Model
	progress progress.Model
	spinner  spinner.Model

	snap  session.Snapshot
	width int

	statusMessage   string
	statusIsError   bool
	statusMessageID int
}

func newModel(ctx context.Context, cfg Config, ctrl Controller, capture Capturer) model {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		ctx:      ctx,
		cfg:      cfg,
		ctrl:     ctrl,
		capture:  capture,
		keys:     defaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner:  sp,
		snap:     ctrl.Status(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.spinner.Tick)
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.cfg.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = min(max(msg.Width-4, 10), maxProgressWidth)

	case tickMsg:
		m.snap = m.ctrl.Status()
		return m, m.tick()

	case actionMsg:
		m.snap = m.ctrl.Status()
		if msg.err != nil {
			log.Debug("Control failed", "action", msg.action, "error", msg.err)
			if !errors.Is(msg.err, tts.ErrCanceled) {
				return m, m.showStatusMessage(tts.UserMessage(msg.err), true)
			}
		}

	case statusMessageTimeoutMsg:
		if int(msg) == m.statusMessageID {
			m.statusMessage = ""
			m.statusIsError = false
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Read):
		return m, m.run("read", func() error {
			text, err := m.capture.Capture(m.ctx)
			if err != nil {
				return fmt.Errorf("unable to read the selection: %w", err)
			}
			_, err = m.ctrl.RequestRead(m.ctx, text)
			return err
		})

	case key.Matches(msg, m.keys.Play):
		return m, m.run("play", func() error { return m.ctrl.Play(m.ctx) })

	case key.Matches(msg, m.keys.Pause):
		return m, m.run("pause", m.ctrl.TogglePause)

	case key.Matches(msg, m.keys.Stop):
		return m, m.run("stop", func() error {
			m.ctrl.Stop()
			return nil
		})

	case key.Matches(msg, m.keys.Cancel):
		if !m.snap.Synthesizing {
			return m, m.showStatusMessage("Nothing to cancel", false)
		}
		return m, m.run("cancel", func() error {
			m.ctrl.Cancel()
			return nil
		})

	case key.Matches(msg, m.keys.NextEngine):
		return m, m.run("next engine", func() error { return m.ctrl.CycleEngine(m.ctx, 1) })

	case key.Matches(msg, m.keys.PrevEngine):
		return m, m.run("previous engine", func() error { return m.ctrl.CycleEngine(m.ctx, -1) })

	case key.Matches(msg, m.keys.Faster):
		speed := tts.NextSpeed(m.snap.Speed)
		return m, m.run("faster", func() error { return m.ctrl.SetSpeed(speed) })

	case key.Matches(msg, m.keys.Slower):
		speed := tts.PrevSpeed(m.snap.Speed)
		return m, m.run("slower", func() error { return m.ctrl.SetSpeed(speed) })

	case key.Matches(msg, m.keys.Debug):
		on := !m.snap.Debug
		return m, m.run("debug", func() error { return m.ctrl.SetDebug(on) })
	}
	return m, nil
}

// run performs a control off the UI goroutine. Engine switches and
// availability checks can take a while.
func (m model) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{action: action, err: fn()}
	}
}

// showStatusMessage shows msg in the status bar until it times out or
// another message replaces it.
func (m *model) showStatusMessage(msg string, isError bool) tea.Cmd {
	m.statusMessageID++
	m.statusMessage = msg
	m.statusIsError = isError

	id := m.statusMessageID
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg(id)
	})
}

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, indent(transportView(m.snap, m.spinner.View()), 2))

	ts := m.snap.Transport
	switch {
	case ts.Indeterminate:
		fmt.Fprintln(&b, indent(dimStyle("duration unknown"), 2))
	case ts.Duration > 0:
		fmt.Fprintln(&b, indent(m.progress.ViewAs(ts.Progress/100), 2))
	default:
		fmt.Fprintln(&b)
	}
	if ts.Warning != "" {
		fmt.Fprintln(&b, indent(warningStyle(ts.Warning), 2))
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, indent(enginesView(m.snap, m.width), 2))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, indent(m.help.View(m.keys), 2))
	fmt.Fprintln(&b)
	b.WriteString(statusBarView(m.snap, m.statusMessage, m.statusIsError, m.width))

	return b.String()
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for j, v := range l {
		if j > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(i + v)
	}
	return b.String()
}
