package audio

import (
	"context"
	"io"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Negative cue tone.
const (
	CueFrequency  = 400.0
	CueDuration   = 200 * time.Millisecond
	cueSampleRate = 22050
	cueAmplitude  = 0.3
	cueFade       = 10 * time.Millisecond
)

// CuePlayer plays short audible cues through a Device.
type CuePlayer struct {
	device Device
	dir    string // temp dir; "" means os.TempDir
}

// NewCuePlayer creates a cue player.
func NewCuePlayer(device Device) *CuePlayer {
	return &CuePlayer{device: device}
}

// Negative plays the "nothing to read" tone without blocking.
func (c *CuePlayer) Negative() {
	go func() {
		if err := c.PlayNegative(context.Background()); err != nil {
			log.Debug("Unable to play cue", "error", err)
		}
	}()
}

// PlayNegative plays the tone and returns once it has finished.
func (c *CuePlayer) PlayNegative(ctx context.Context) error {
	f, err := os.CreateTemp(c.dir, "readaloud-cue-*.wav")
	if err != nil {
		return err
	}
	path := f.Name()
	defer os.Remove(path) //nolint:errcheck

	if err := WriteTone(f, CueFrequency, CueDuration, cueSampleRate); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	stream, err := c.device.Open(path)
	if err != nil {
		return err
	}
	defer stream.Close() //nolint:errcheck

	stream.Play()

	deadline := time.NewTimer(stream.Duration() + 250*time.Millisecond)
	defer deadline.Stop()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for stream.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// WriteTone writes a mono 16-bit sine wave as WAV. The edges fade in
// and out so the tone does not click.
func WriteTone(w io.WriteSeeker, freq float64, d time.Duration, sampleRate int) error {
	n := int(d.Seconds() * float64(sampleRate))
	fade := int(cueFade.Seconds() * float64(sampleRate))
	samples := make([]int, n)
	for i := range samples {
		gain := cueAmplitude
		if i < fade {
			gain *= float64(i) / float64(fade)
		} else if n-i < fade {
			gain *= float64(n-i) / float64(fade)
		}
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
		samples[i] = int(v * gain * math.MaxInt16)
	}
	return EncodeWAV(w, samples, sampleRate)
}
