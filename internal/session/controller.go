// Package session coordinates a read: captured text is synthesized by
// the active engine and handed to the playback transport. It owns the
// active engine, cancellation of in-flight synthesis and engine
// switching.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/settings"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/dgnsrekt/readaloud/internal/tts/engines"
)

// DefaultMessageTTL is how long a transient message stays in the snapshot.
const DefaultMessageTTL = 4 * time.Second

// closeWait bounds how long Close waits for a canceled job.
const closeWait = 2 * time.Second

// Transport is the playback state machine.
type Transport interface {
	Play(ctx context.Context, path string) error
	Load(ctx context.Context, path string) error
	Pause()
	Resume()
	Stop()
	Status() audio.Status
	SetSpeed(speed float64) error
}

// Engines resolves and probes synthesis backends.
type Engines interface {
	List() []string
	Descriptors() []tts.Descriptor
	Resolve(name string) (tts.Backend, error)
	CheckAvailability(ctx context.Context, name string) []string
}

// SettingsStore persists user choices.
type SettingsStore interface {
	Get() settings.Settings
	Save(settings.Settings) error
}

// Cue plays the "nothing to read" tone.
type Cue interface {
	Negative()
}

// Cache stores synthesized audio by engine and text.
type Cache interface {
	Lookup(backend, text string) ([]byte, bool)
	Store(backend, text string, data []byte) error
}

// Config wires a Controller to its collaborators. Cache and Cue are
// optional.
type Config struct {
	Engines   Engines
	Transport Transport
	Settings  SettingsStore
	Artifacts tts.Artifacts
	Cue       Cue
	Cache     Cache

	MessageTTL time.Duration
	Now        func() time.Time
}

// EngineStatus is the availability of one engine.
type EngineStatus struct {
	Name    string
	Format  tts.Format
	Missing []string
	Checked bool
}

// Ready reports whether the engine was checked and has no missing
// prerequisites.
func (e EngineStatus) Ready() bool { return e.Checked && len(e.Missing) == 0 }

// Snapshot is everything the UI renders.
type Snapshot struct {
	Active       string
	Engines      []EngineStatus
	Ready        bool
	Synthesizing bool
	Switching    bool
	Transport    audio.Status
	HasAudio     bool
	Speed        float64
	Debug        bool
	Message      string
	Alert        bool // Message describes an error
	LastError    error
}

// Controller is the session controller.
type Controller struct {
	engines   Engines
	transport Transport
	store     SettingsStore
	artifacts tts.Artifacts
	cue       Cue
	cache     Cache
	ttl       time.Duration
	now       func() time.Time

	mu           sync.Mutex
	active       string
	ready        bool
	switching    bool
	speed        float64
	debug        bool
	availability map[string][]string
	job          *Job
	lastErr      error
	message      string
	messageErr   bool
	messageAt    time.Time
}

// New creates a controller with the persisted settings applied and
// availability checked.
func New(ctx context.Context, cfg Config) (*Controller, error) {
	if cfg.Engines == nil || cfg.Transport == nil || cfg.Settings == nil {
		return nil, errors.New("session: engines, transport and settings are required")
	}
	if cfg.MessageTTL <= 0 {
		cfg.MessageTTL = DefaultMessageTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Controller{
		engines:      cfg.Engines,
		transport:    cfg.Transport,
		store:        cfg.Settings,
		artifacts:    cfg.Artifacts,
		cue:          cfg.Cue,
		cache:        cfg.Cache,
		ttl:          cfg.MessageTTL,
		now:          cfg.Now,
		availability: make(map[string][]string),
	}

	s := cfg.Settings.Get()
	c.active = s.Engine
	if _, err := c.engines.Resolve(c.active); err != nil {
		log.Warn("Persisted engine is not registered, using default", "engine", c.active, "error", err)
		c.active = settings.DefaultEngine
		if _, err := c.engines.Resolve(c.active); err != nil {
			if names := c.engines.List(); len(names) > 0 {
				c.active = names[0]
			}
		}
	}
	c.speed = tts.RoundSpeed(tts.ClampSpeed(s.Speed))
	if err := c.transport.SetSpeed(c.speed); err != nil {
		log.Warn("Invalid persisted speed", "speed", s.Speed, "error", err)
		c.speed = tts.DefaultSpeed
	}
	c.debug = s.Debug
	applyLogLevel(c.debug)

	// Audio left over from a previous run may not match the active engine.
	if err := c.artifacts.PurgeAll(); err != nil {
		log.Warn("Unable to remove old audio", "error", err)
	}

	c.RefreshAvailability(ctx)
	return c, nil
}

// Active returns the active engine name.
func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// RequestRead synthesizes text with the active engine and plays the
// result. Blank text plays the negative cue and returns ErrEmptyInput
// without touching any engine.
func (c *Controller) RequestRead(ctx context.Context, text string) (*Job, error) {
	if strings.TrimSpace(text) == "" {
		if c.cue != nil {
			c.cue.Negative()
		}
		err := tts.NewError(tts.ErrorCodeEmptyInput, "nothing selected to read", nil)
		c.report(err)
		return nil, err
	}

	c.mu.Lock()
	if c.switching {
		c.mu.Unlock()
		return nil, tts.NewError(tts.ErrorCodeSwitching, "engine switch in progress", nil)
	}
	name := c.active
	c.mu.Unlock()

	backend, err := c.engines.Resolve(name)
	if err != nil {
		uerr := tts.Unavailable(name, []string{err.Error()})
		c.report(uerr)
		return nil, uerr
	}
	missing := c.engines.CheckAvailability(ctx, name)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.availability[name] = missing
	if c.switching || c.active != name {
		return nil, tts.NewError(tts.ErrorCodeSwitching, "engine switch in progress", nil)
	}
	if len(missing) > 0 {
		c.ready = false
		uerr := tts.Unavailable(name, missing)
		c.reportLocked(uerr)
		return nil, uerr
	}
	c.ready = true

	if c.debug {
		log.Debug("Captured text", "engine", name, "text", text)
	}

	c.cancelJobLocked()
	if err := c.artifacts.Purge(backend.Format()); err != nil {
		log.Warn("Unable to remove stale audio", "error", err)
	}

	job := newJob(ctx, text, name, backend.Format(), c.artifacts)
	c.job = job
	c.lastErr = nil
	c.setMessageLocked(fmt.Sprintf("Synthesizing with %s...", name))
	log.Debug("Synthesis started", "job", job.ID, "engine", name, "chars", len(text))

	go c.run(job, backend)
	return job, nil
}

// run synthesizes and, unless the job was canceled, starts playback.
// The job writes to its own file; only the hand-off moves it to the
// shared artifact path, so a superseded job can never replace newer
// audio.
func (c *Controller) run(job *Job, backend tts.Backend) {
	start := time.Now()
	err := c.synthesize(job, backend)

	// Handoff: the cancel flag is checked under the same mutex Cancel
	// and SwitchEngine take, immediately before the audio is committed
	// and playback is triggered.
	c.mu.Lock()
	if job.canceled.Load() {
		c.clearJobLocked(job)
		c.discardLocked(job)
		c.mu.Unlock()
		log.Debug("Synthesis result discarded", "job", job.ID)
		job.finish(tts.NewError(tts.ErrorCodeCanceled, "synthesis canceled", nil))
		return
	}
	if err == nil {
		if cerr := c.artifacts.Commit(job.tmp, job.format); cerr != nil {
			err = tts.NewError(tts.ErrorCodeSynthesisFailure, "unable to store audio", cerr)
		}
	}
	if err != nil {
		c.clearJobLocked(job)
		c.discardLocked(job)
		c.reportLocked(err)
		c.mu.Unlock()
		log.Warn("Synthesis failed", "job", job.ID, "engine", job.Backend, "error", err)
		job.finish(err)
		return
	}
	c.setMessageLocked("")
	c.mu.Unlock()

	log.Debug("Synthesis finished", "job", job.ID, "duration", time.Since(start))

	// New audio always loads afresh, even over a paused stream of the
	// same path. A Cancel after the handoff cancels job.ctx, which
	// abandons the load.
	perr := c.transport.Load(job.ctx, job.Path)

	c.mu.Lock()
	c.clearJobLocked(job)
	if perr != nil && !errors.Is(perr, tts.ErrCanceled) {
		c.reportLocked(perr)
	}
	c.mu.Unlock()
	job.finish(perr)
}

func (c *Controller) discardLocked(job *Job) {
	if err := c.artifacts.Discard(job.tmp); err != nil {
		log.Warn("Unable to remove discarded audio", "job", job.ID, "error", err)
	}
}

// synthesize produces the job's audio, from the cache when possible.
func (c *Controller) synthesize(job *Job, backend tts.Backend) error {
	if c.cache != nil {
		if data, ok := c.cache.Lookup(job.Backend, job.Text); ok {
			log.Debug("Synthesis cache hit", "job", job.ID)
			return engines.WriteFileAtomic(job.tmp, data)
		}
	}

	if err := backend.Synthesize(job.ctx, job.Text, job.tmp); err != nil {
		return err
	}

	if c.cache != nil {
		data, err := os.ReadFile(job.tmp)
		if err == nil {
			err = c.cache.Store(job.Backend, job.Text, data)
		}
		if err != nil {
			log.Debug("Unable to cache audio", "job", job.ID, "error", err)
		}
	}
	return nil
}

func (c *Controller) clearJobLocked(job *Job) {
	if c.job == job {
		c.job = nil
	}
}

// Cancel cancels the in-flight synthesis. It reports whether there was
// one.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return false
	}
	c.cancelJobLocked()
	c.setMessageLocked("Synthesis canceled")
	return true
}

func (c *Controller) cancelJobLocked() {
	if c.job == nil {
		return
	}
	c.job.canceled.Store(true)
	c.job.cancel()
	log.Debug("Synthesis canceled", "job", c.job.ID)
	c.job = nil
}

// SwitchEngine makes name the active engine. Unknown names return
// ErrNotFound and change nothing. Otherwise reads are refused while
// the in-flight job is canceled, playback stopped, audio purged and the
// choice persisted. Transport controls stay disabled, and
// ErrEngineUnavailable is returned, if the new engine is missing
// prerequisites.
func (c *Controller) SwitchEngine(ctx context.Context, name string) error {
	if _, err := c.engines.Resolve(name); err != nil {
		c.report(err)
		return err
	}

	c.mu.Lock()
	if c.switching {
		c.mu.Unlock()
		return tts.NewError(tts.ErrorCodeSwitching, "engine switch in progress", nil)
	}
	prev := c.active
	c.switching = true
	c.ready = false
	c.cancelJobLocked()
	c.mu.Unlock()

	c.transport.Stop()
	if err := c.artifacts.PurgeAll(); err != nil {
		log.Warn("Unable to remove audio while switching", "error", err)
	}

	c.mu.Lock()
	c.active = name
	c.mu.Unlock()

	s := c.store.Get()
	s.Engine = name
	if err := c.store.Save(s); err != nil {
		log.Warn("Unable to persist engine", "engine", name, "error", err)
	}

	missing := c.engines.CheckAvailability(ctx, name)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.availability[name] = missing
	c.ready = len(missing) == 0
	c.switching = false
	log.Info("Engine switched", "from", prev, "to", name, "ready", c.ready)

	if !c.ready {
		err := tts.Unavailable(name, missing)
		c.reportLocked(err)
		return err
	}
	c.lastErr = nil
	c.setMessageLocked("Engine: " + name)
	return nil
}

// CycleEngine switches to the next (or previous) registered engine.
func (c *Controller) CycleEngine(ctx context.Context, step int) error {
	names := c.engines.List()
	if len(names) == 0 {
		return tts.NewError(tts.ErrorCodeNotFound, "no engines registered", nil)
	}
	active := c.Active()
	idx := 0
	for i, n := range names {
		if n == active {
			idx = i
			break
		}
	}
	idx = ((idx+step)%len(names) + len(names)) % len(names)
	return c.SwitchEngine(ctx, names[idx])
}

// transportReady returns an error while transport controls are disabled.
func (c *Controller) transportReady() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.switching {
		return tts.NewError(tts.ErrorCodeSwitching, "engine switch in progress", nil)
	}
	if !c.ready {
		return tts.Unavailable(c.active, c.availability[c.active])
	}
	return nil
}

// Play resumes paused audio, or plays the last synthesized audio from
// the start.
func (c *Controller) Play(ctx context.Context) error {
	if err := c.transportReady(); err != nil {
		c.report(err)
		return err
	}
	if c.transport.Status().State == audio.StatePaused {
		c.transport.Resume()
		return nil
	}
	if !c.HasAudioAvailable() {
		err := tts.NewError(tts.ErrorCodePlaybackLoad, "nothing to play yet", nil)
		c.report(err)
		return err
	}
	path, err := c.activePath()
	if err != nil {
		return err
	}
	if err := c.transport.Play(ctx, path); err != nil {
		c.report(err)
		return err
	}
	return nil
}

// Pause pauses playback.
func (c *Controller) Pause() error {
	if err := c.transportReady(); err != nil {
		return err
	}
	c.transport.Pause()
	return nil
}

// TogglePause pauses while playing and resumes while paused.
func (c *Controller) TogglePause() error {
	if err := c.transportReady(); err != nil {
		return err
	}
	if c.transport.Status().State == audio.StatePaused {
		c.transport.Resume()
	} else {
		c.transport.Pause()
	}
	return nil
}

// Stop stops playback. Stopping is always allowed.
func (c *Controller) Stop() {
	c.transport.Stop()
}

func (c *Controller) activePath() (string, error) {
	c.mu.Lock()
	name := c.active
	c.mu.Unlock()

	backend, err := c.engines.Resolve(name)
	if err != nil {
		return "", err
	}
	return c.artifacts.Path(backend.Format()), nil
}

// HasAudioAvailable reports whether audio for the active engine exists.
// It is false while switching or while the engine is not ready.
func (c *Controller) HasAudioAvailable() bool {
	c.mu.Lock()
	if c.switching || !c.ready {
		c.mu.Unlock()
		return false
	}
	name := c.active
	c.mu.Unlock()

	backend, err := c.engines.Resolve(name)
	if err != nil {
		return false
	}
	return c.artifacts.Available(backend.Format())
}

// SetSpeed validates, applies and persists the playback speed. It takes
// effect at the next play.
func (c *Controller) SetSpeed(speed float64) error {
	if err := tts.ValidateSpeed(speed); err != nil {
		c.report(err)
		return err
	}
	speed = tts.RoundSpeed(speed)
	if err := c.transport.SetSpeed(speed); err != nil {
		return err
	}

	c.mu.Lock()
	c.speed = speed
	c.setMessageLocked("Speed: " + tts.SpeedDisplay(speed))
	c.mu.Unlock()

	s := c.store.Get()
	s.Speed = speed
	if err := c.store.Save(s); err != nil {
		return fmt.Errorf("unable to persist speed: %w", err)
	}
	return nil
}

// Speed returns the configured speed.
func (c *Controller) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SetDebug turns debug logging on or off and persists the choice.
func (c *Controller) SetDebug(on bool) error {
	c.mu.Lock()
	c.debug = on
	if on {
		c.setMessageLocked("Debug mode on")
	} else {
		c.setMessageLocked("Debug mode off")
	}
	c.mu.Unlock()
	applyLogLevel(on)

	s := c.store.Get()
	s.Debug = on
	if err := c.store.Save(s); err != nil {
		return fmt.Errorf("unable to persist debug mode: %w", err)
	}
	return nil
}

// ApplySettings reacts to settings changed outside the program. They
// are already persisted, so only the in-memory state follows.
func (c *Controller) ApplySettings(ctx context.Context, s settings.Settings) {
	c.mu.Lock()
	active, speed, debug := c.active, c.speed, c.debug
	c.mu.Unlock()

	if s.Engine != active {
		if err := c.SwitchEngine(ctx, s.Engine); err != nil {
			log.Warn("Unable to apply engine from settings", "engine", s.Engine, "error", err)
		}
	}
	if s.Speed != speed {
		if err := c.transport.SetSpeed(s.Speed); err == nil {
			c.mu.Lock()
			c.speed = s.Speed
			c.mu.Unlock()
		}
	}
	if s.Debug != debug {
		c.mu.Lock()
		c.debug = s.Debug
		c.mu.Unlock()
		applyLogLevel(s.Debug)
	}
}

// RefreshAvailability re-checks every engine.
func (c *Controller) RefreshAvailability(ctx context.Context) {
	results := make(map[string][]string)
	for _, name := range c.engines.List() {
		results[name] = c.engines.CheckAvailability(ctx, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for name, missing := range results {
		c.availability[name] = missing
	}
	if !c.switching {
		missing, ok := c.availability[c.active]
		c.ready = ok && len(missing) == 0
	}
}

// Status returns a snapshot for the UI. Availability comes from the
// last check, never from a fresh probe.
func (c *Controller) Status() Snapshot {
	ts := c.transport.Status()
	hasAudio := c.HasAudioAvailable()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Active:       c.active,
		Ready:        c.ready,
		Synthesizing: c.job != nil,
		Switching:    c.switching,
		Transport:    ts,
		HasAudio:     hasAudio,
		Speed:        c.speed,
		Debug:        c.debug,
		LastError:    c.lastErr,
	}
	for _, d := range c.engines.Descriptors() {
		missing, checked := c.availability[d.Name]
		snap.Engines = append(snap.Engines, EngineStatus{
			Name:    d.Name,
			Format:  d.Format,
			Missing: append([]string(nil), missing...),
			Checked: checked,
		})
	}
	if c.message != "" && c.now().Sub(c.messageAt) < c.ttl {
		snap.Message = c.message
		snap.Alert = c.messageErr
	}
	return snap
}

// Close cancels synthesis, stops playback and deletes the audio files.
func (c *Controller) Close() error {
	c.mu.Lock()
	job := c.job
	c.cancelJobLocked()
	c.mu.Unlock()

	if job != nil {
		select {
		case <-job.Done():
		case <-time.After(closeWait):
			log.Warn("Synthesis did not stop in time", "job", job.ID)
		}
	}
	c.transport.Stop()
	return c.artifacts.PurgeAll()
}

func (c *Controller) report(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportLocked(err)
}

func (c *Controller) reportLocked(err error) {
	c.lastErr = err
	c.setMessageLocked(tts.UserMessage(err))
	c.messageErr = true
}

func (c *Controller) setMessageLocked(msg string) {
	c.message = msg
	c.messageErr = false
	c.messageAt = c.now()
}

func applyLogLevel(debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
