package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Output format of the shared oto context. Every decoded file is
// converted to it before playback.
const (
	SampleRate   = 44100
	ChannelCount = 2
	bytesPerSamp = 2
	frameSize    = ChannelCount * bytesPerSamp
)

// PCM is decoded audio in the output format: interleaved stereo,
// signed 16-bit little endian at SampleRate.
type PCM []byte

// Duration returns the play length of the samples.
func (p PCM) Duration() time.Duration {
	frames := len(p) / frameSize
	return time.Duration(frames) * time.Second / SampleRate
}

// DecodeFile reads an MP3 or WAV file and converts it to PCM. The
// container is detected from the content, not the extension.
func DecodeFile(path string) (PCM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("audio file is empty")
	}
	return Decode(data)
}

// Decode converts an in-memory MP3 or WAV file to PCM.
func Decode(data []byte) (PCM, error) {
	r := bytes.NewReader(data)
	if wav.NewDecoder(r).IsValidFile() {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return decodeWAV(r)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return decodeMP3(r)
}

// decodeMP3 decodes with go-mp3, which always yields 16-bit stereo.
func decodeMP3(r io.Reader) (PCM, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	raw = raw[:len(raw)-len(raw)%frameSize]
	if len(raw) == 0 {
		return nil, errors.New("decode mp3: no audio frames")
	}
	if d.SampleRate() == SampleRate {
		return raw, nil
	}
	return resample(raw, d.SampleRate(), SampleRate), nil
}

func decodeWAV(r io.ReadSeeker) (PCM, error) {
	d := wav.NewDecoder(r)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, errors.New("decode wav: no audio frames")
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("decode wav: invalid channel count %d", channels)
	}

	samples := toInt16(buf.Data, int(d.BitDepth))
	pcm := toStereo(samples, channels)
	if buf.Format.SampleRate != SampleRate && buf.Format.SampleRate > 0 {
		pcm = resample(pcm, buf.Format.SampleRate, SampleRate)
	}
	return pcm, nil
}

// toInt16 scales integer samples of the given bit depth to 16 bits.
// 8-bit WAV is unsigned.
func toInt16(data []int, bitDepth int) []int16 {
	out := make([]int16, len(data))
	for i, v := range data {
		switch bitDepth {
		case 8:
			v = (v - 128) << 8
		case 24:
			v >>= 8
		case 32:
			v >>= 16
		}
		out[i] = int16(v)
	}
	return out
}

// toStereo interleaves samples as stereo PCM bytes. Mono is duplicated;
// extra channels beyond the first two are dropped.
func toStereo(samples []int16, channels int) PCM {
	frames := len(samples) / channels
	out := make(PCM, frames*frameSize)
	for f := 0; f < frames; f++ {
		l := samples[f*channels]
		r := l
		if channels > 1 {
			r = samples[f*channels+1]
		}
		binary.LittleEndian.PutUint16(out[f*frameSize:], uint16(l))
		binary.LittleEndian.PutUint16(out[f*frameSize+2:], uint16(r))
	}
	return out
}

// resample converts stereo PCM between sample rates using linear
// interpolation per channel.
func resample(in PCM, from, to int) PCM {
	inFrames := len(in) / frameSize
	if inFrames < 2 || from <= 0 || to <= 0 {
		return in
	}
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make(PCM, outFrames*frameSize)
	ratio := float64(from) / float64(to)

	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)
		for ch := 0; ch < ChannelCount; ch++ {
			s0 := frameSample(in, srcIdx, ch)
			s1 := frameSample(in, srcIdx+1, ch)
			s := int16(float64(s0) + frac*(float64(s1)-float64(s0)))
			binary.LittleEndian.PutUint16(out[i*frameSize+ch*bytesPerSamp:], uint16(s))
		}
	}
	return out
}

// frameSample reads one channel of a frame, clamping to the last frame.
func frameSample(buf PCM, frame, ch int) int16 {
	frames := len(buf) / frameSize
	if frame >= frames {
		frame = frames - 1
	}
	if frame < 0 {
		return 0
	}
	off := frame*frameSize + ch*bytesPerSamp
	return int16(binary.LittleEndian.Uint16(buf[off:]))
}

// EncodeWAV writes mono 16-bit samples as a WAV file.
func EncodeWAV(w io.WriteSeeker, samples []int, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}
