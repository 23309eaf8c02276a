package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// MockDevice implements Device for testing purposes.
// It simulates audio playback without actually producing sound.
type MockDevice struct {
	mu sync.Mutex

	// Duration reported by opened streams; per-path values win.
	DefaultDuration time.Duration
	Durations       map[string]time.Duration

	// RealTime makes streams end on their own once Duration of unpaused
	// wall time has passed. Otherwise tests end them with Finish.
	RealTime bool

	// OpenErr makes every Open fail.
	OpenErr error

	// OpenDelay simulates a slow decode.
	OpenDelay time.Duration

	streams   []*MockStream
	openCount atomic.Int64
}

// NewMockDevice creates a mock device whose streams last duration.
func NewMockDevice(duration time.Duration) *MockDevice {
	return &MockDevice{DefaultDuration: duration, Durations: map[string]time.Duration{}}
}

// Open implements Device. Like the real device it fails for missing or
// empty files.
func (d *MockDevice) Open(path string) (Stream, error) {
	d.openCount.Add(1)

	d.mu.Lock()
	delay, openErr := d.OpenDelay, d.OpenErr
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if openErr != nil {
		return nil, openErr
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.Size() == 0 {
		return nil, errors.New("audio file is empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	duration := d.DefaultDuration
	if v, ok := d.Durations[path]; ok {
		duration = v
	}
	s := &MockStream{path: path, duration: duration, realTime: d.RealTime}
	d.streams = append(d.streams, s)
	return s, nil
}

// SetOpenErr sets the error returned by Open.
func (d *MockDevice) SetOpenErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpenErr = err
}

// SetOpenDelay sets the simulated decode time.
func (d *MockDevice) SetOpenDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.OpenDelay = delay
}

// Streams returns every stream opened so far.
func (d *MockDevice) Streams() []*MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockStream, len(d.streams))
	copy(out, d.streams)
	return out
}

// Last returns the most recently opened stream, or nil.
func (d *MockDevice) Last() *MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

// OpenCount returns the number of Open calls.
func (d *MockDevice) OpenCount() int64 {
	return d.openCount.Load()
}

// MockStream is a Stream that only tracks its state.
type MockStream struct {
	mu       sync.Mutex
	path     string
	duration time.Duration
	realTime bool

	playing   bool
	finished  bool
	closed    bool
	resumedAt time.Time
	played    time.Duration

	playCount  int
	pauseCount int
}

// Path returns the file the stream was opened from.
func (s *MockStream) Path() string { return s.path }

func (s *MockStream) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.finished || s.playing {
		return
	}
	s.playing = true
	s.resumedAt = time.Now()
	s.playCount++
}

func (s *MockStream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	s.played += time.Since(s.resumedAt)
	s.playing = false
	s.pauseCount++
}

func (s *MockStream) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing && s.realTime && s.duration > 0 &&
		s.played+time.Since(s.resumedAt) >= s.duration {
		s.playing = false
		s.finished = true
	}
	return s.playing
}

func (s *MockStream) Duration() time.Duration { return s.duration }

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("stream %s already closed", s.path)
	}
	s.closed = true
	s.playing = false
	return nil
}

// Finish simulates the stream reaching its end.
func (s *MockStream) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.finished = true
}

// Closed reports whether Close was called.
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Counts returns how often Play and Pause took effect.
func (s *MockStream) Counts() (plays, pauses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playCount, s.pauseCount
}

var (
	_ Device = (*MockDevice)(nil)
	_ Stream = (*MockStream)(nil)
)
