//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process, so every OtoDevice shares it.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

func sharedContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: ChannelCount,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
		log.Debug("Audio device ready", "sample_rate", SampleRate, "channels", ChannelCount)
	})
	return otoCtx, otoErr
}

// OtoDevice plays files through the system audio output.
type OtoDevice struct{}

// NewOtoDevice initializes the audio output.
func NewOtoDevice() (*OtoDevice, error) {
	if _, err := sharedContext(); err != nil {
		return nil, err
	}
	return &OtoDevice{}, nil
}

// Open implements Device.
func (d *OtoDevice) Open(path string) (Stream, error) {
	ctx, err := sharedContext()
	if err != nil {
		return nil, err
	}
	pcm, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return &otoStream{
		pcm:      pcm,
		player:   ctx.NewPlayer(bytes.NewReader(pcm)),
		duration: pcm.Duration(),
	}, nil
}

// otoStream keeps its PCM referenced for as long as oto reads from it.
type otoStream struct {
	pcm      PCM
	player   *oto.Player
	duration time.Duration

	mu     sync.Mutex
	closed bool
}

func (s *otoStream) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.player.Play()
	}
}

func (s *otoStream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.player.Pause()
	}
}

func (s *otoStream) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.player.IsPlaying()
}

func (s *otoStream) Duration() time.Duration { return s.duration }

func (s *otoStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.player.Pause()
	err := s.player.Close()
	s.pcm = nil
	return err
}

var _ Device = (*OtoDevice)(nil)
