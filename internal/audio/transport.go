package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/tts"
)

// DefaultPollInterval is how often a playing stream is checked for its end.
const DefaultPollInterval = 100 * time.Millisecond

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("transport is closed")

// State is the transport's playback state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// Status is a snapshot of the transport for display.
type Status struct {
	State    State
	Path     string
	Elapsed  time.Duration
	Duration time.Duration

	// Progress is 0..100. When the duration is unknown it stays 0 and
	// Indeterminate is set.
	Progress      float64
	Indeterminate bool

	Speed   float64
	Warning string
}

// playback is the state of the loaded file.
type playback struct {
	path     string
	playPath string // tempo-shifted copy, or path
	duration time.Duration
	speed    float64
	stream   Stream

	startedAt        time.Time
	pausedAt         time.Time
	accumulatedPause time.Duration
}

// Option configures a Transport.
type Option func(*Transport)

// WithClock replaces time.Now for elapsed-time accounting.
func WithClock(now func() time.Time) Option {
	return func(t *Transport) { t.now = now }
}

// WithTempo sets the tempo shifter used for speeds other than 1.0.
func WithTempo(ts TempoShifter) Option {
	return func(t *Transport) { t.tempo = ts }
}

// WithPollInterval sets how often the end of playback is checked.
func WithPollInterval(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.poll = d
		}
	}
}

// Transport is the playback state machine: Idle, Loading, Playing and
// Paused. A single mutex guards every transition. Files load outside
// the lock; a generation counter discards loads superseded by Stop or a
// newer Play.
type Transport struct {
	device Device
	tempo  TempoShifter
	now    func() time.Time
	poll   time.Duration

	mu      sync.Mutex
	state   State
	gen     uint64
	speed   float64
	warning string
	cur     playback
	done    chan struct{}
	closed  bool

	wg sync.WaitGroup
}

// NewTransport creates an idle transport playing through device.
func NewTransport(device Device, opts ...Option) *Transport {
	t := &Transport{
		device: device,
		tempo:  FFmpegTempo{},
		now:    time.Now,
		poll:   DefaultPollInterval,
		speed:  tts.DefaultSpeed,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetSpeed sets the speed applied at the next Play.
func (t *Transport) SetSpeed(speed float64) error {
	if err := tts.ValidateSpeed(speed); err != nil {
		return err
	}
	t.mu.Lock()
	t.speed = tts.RoundSpeed(speed)
	t.mu.Unlock()
	return nil
}

// Speed returns the configured speed.
func (t *Transport) Speed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speed
}

// State returns the current state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Play starts path from the beginning. If path is paused it resumes
// instead. Playing a file while another plays restarts with the new one.
// Canceling ctx before the file has loaded abandons the load.
func (t *Transport) Play(ctx context.Context, path string) error {
	return t.start(ctx, path, true)
}

// Load always reads path afresh and plays it from the beginning, even
// if the same path is paused. Use it when the file was just rewritten.
func (t *Transport) Load(ctx context.Context, path string) error {
	return t.start(ctx, path, false)
}

func (t *Transport) start(ctx context.Context, path string, resume bool) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		t.mu.Unlock()
		return tts.NewError(tts.ErrorCodeCanceled, "playback canceled", err)
	}
	if resume && t.state == StatePaused && t.cur.path == path {
		t.resumeLocked()
		t.mu.Unlock()
		return nil
	}

	t.stopLocked()
	gen := t.gen
	t.state = StateLoading
	t.cur.path = path
	t.warning = ""
	speed := t.speed
	t.mu.Unlock()

	playPath, warning := t.prepare(ctx, path, speed)
	stream, err := t.device.Open(playPath)

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.closed || ctx.Err() != nil {
		if gen == t.gen {
			t.state = StateIdle
			t.cur = playback{}
		}
		if stream != nil {
			_ = stream.Close()
		}
		removeCopy(path, playPath)
		return tts.NewError(tts.ErrorCodeCanceled, "playback superseded", nil)
	}
	if err != nil {
		removeCopy(path, playPath)
		t.state = StateIdle
		t.cur = playback{}
		log.Warn("Unable to load audio", "path", path, "error", err)
		return tts.NewError(tts.ErrorCodePlaybackLoad, "unable to load audio", err)
	}

	if warning != "" {
		speed = tts.DefaultSpeed
	}
	t.warning = warning
	t.cur = playback{
		path:      path,
		playPath:  playPath,
		duration:  stream.Duration(),
		speed:     speed,
		stream:    stream,
		startedAt: t.now(),
	}
	stream.Play()
	t.state = StatePlaying

	t.done = make(chan struct{})
	t.wg.Add(1)
	go t.watch(gen, stream, t.done)

	log.Debug("Playback started", "path", path, "duration", t.cur.duration, "speed", speed)
	return nil
}

// prepare returns the file to play at speed. When the tempo copy cannot
// be made it falls back to path and returns a warning.
func (t *Transport) prepare(ctx context.Context, path string, speed float64) (string, string) {
	if tts.IsNormalSpeed(speed) {
		return path, ""
	}
	if t.tempo == nil {
		return path, fmt.Sprintf("speed %s unavailable, playing at 1.0x", tts.SpeedDisplay(speed))
	}
	dst := speedPath(path)
	if err := t.tempo.Shift(ctx, path, dst, speed); err != nil {
		log.Warn("Speed adjustment failed, playing at normal speed", "speed", speed, "error", err)
		return path, fmt.Sprintf("speed %s unavailable (%v), playing at 1.0x", tts.SpeedDisplay(speed), err)
	}
	return dst, ""
}

// speedPath names the tempo copy of path: foo.mp3 becomes foo_speed.mp3.
func speedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_speed" + ext
}

func removeCopy(path, playPath string) {
	if playPath != "" && playPath != path {
		if err := os.Remove(playPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Debug("Unable to remove tempo copy", "path", playPath, "error", err)
		}
	}
}

// Pause pauses playback. Pausing while idle only logs a warning.
func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StatePlaying:
		t.cur.stream.Pause()
		t.cur.pausedAt = t.now()
		t.state = StatePaused
	case StatePaused:
	default:
		log.Warn("Pause ignored, nothing is playing", "state", t.state)
	}
}

// Resume continues paused playback; in any other state it does nothing.
func (t *Transport) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StatePaused {
		t.resumeLocked()
	}
}

func (t *Transport) resumeLocked() {
	t.cur.accumulatedPause += t.now().Sub(t.cur.pausedAt)
	t.cur.pausedAt = time.Time{}
	t.cur.stream.Play()
	t.state = StatePlaying
}

// TogglePause pauses while playing and resumes while paused.
func (t *Transport) TogglePause() {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()

	if state == StatePaused {
		t.Resume()
	} else {
		t.Pause()
	}
}

// Stop returns to Idle from any state.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// stopLocked releases the stream, deletes the tempo copy and supersedes
// any load or watch in progress.
func (t *Transport) stopLocked() {
	t.gen++
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	if t.cur.stream != nil {
		if err := t.cur.stream.Close(); err != nil {
			log.Debug("Unable to close stream", "error", err)
		}
	}
	removeCopy(t.cur.path, t.cur.playPath)
	t.cur = playback{}
	t.state = StateIdle
}

// watch polls the stream until it ends or the playback is superseded.
func (t *Transport) watch(gen uint64, stream Stream, done <-chan struct{}) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.mu.Lock()
			if gen != t.gen {
				t.mu.Unlock()
				return
			}
			if t.state == StatePlaying && !stream.IsPlaying() {
				log.Debug("Playback finished", "path", t.cur.path)
				t.stopLocked()
				t.mu.Unlock()
				return
			}
			t.mu.Unlock()
		}
	}
}

// Status returns the current state and position.
func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		State:   t.state,
		Path:    t.cur.path,
		Speed:   t.speed,
		Warning: t.warning,
	}
	if t.state != StatePlaying && t.state != StatePaused {
		return s
	}

	now := t.now()
	if t.state == StatePaused {
		now = t.cur.pausedAt
	}
	elapsed := now.Sub(t.cur.startedAt) - t.cur.accumulatedPause
	if elapsed < 0 {
		elapsed = 0
	}

	s.Speed = t.cur.speed
	s.Duration = t.cur.duration
	if s.Duration <= 0 {
		s.Elapsed = elapsed
		s.Indeterminate = true
		return s
	}
	if elapsed > s.Duration {
		elapsed = s.Duration
	}
	s.Elapsed = elapsed
	s.Progress = float64(elapsed) / float64(s.Duration) * 100
	return s
}

// Close stops playback and waits for background goroutines.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.stopLocked()
	t.mu.Unlock()

	t.wg.Wait()
	return nil
}
