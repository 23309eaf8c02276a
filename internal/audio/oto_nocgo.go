//go:build nocgo
// +build nocgo

package audio

import "errors"

// Stub for builds without CGO: the transport, cue and mock device still
// work, only the system output is missing.

var errNoAudio = errors.New("audio output not available in nocgo build")

// OtoDevice plays files through the system audio output.
type OtoDevice struct{}

// NewOtoDevice always fails in a nocgo build.
func NewOtoDevice() (*OtoDevice, error) {
	return nil, errNoAudio
}

// Open implements Device.
func (d *OtoDevice) Open(string) (Stream, error) {
	return nil, errNoAudio
}

var _ Device = (*OtoDevice)(nil)
