package audio

import (
	"context"
	"time"
)

// Stream is one loaded file, ready to play from the start.
type Stream interface {
	Play()
	Pause()

	// IsPlaying reports false once the stream is paused or has reached
	// its end.
	IsPlaying() bool

	Duration() time.Duration
	Close() error
}

// Device opens audio files for playback.
type Device interface {
	Open(path string) (Stream, error)
}

// TempoShifter writes a copy of src to dst played at speed, keeping pitch.
type TempoShifter interface {
	Shift(ctx context.Context, src, dst string, speed float64) error
}
