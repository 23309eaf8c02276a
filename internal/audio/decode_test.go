package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTone(t *testing.T, rate int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteTone(f, CueFrequency, CueDuration, rate); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeFile_WAV(t *testing.T) {
	tests := []struct {
		name string
		rate int
	}{
		{name: "native rate", rate: SampleRate},
		{name: "upsampled", rate: 22050},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm, err := DecodeFile(writeTone(t, tt.rate))
			if err != nil {
				t.Fatalf("DecodeFile() error = %v", err)
			}
			if d := pcm.Duration(); d < CueDuration-5*time.Millisecond || d > CueDuration+5*time.Millisecond {
				t.Errorf("duration = %v, want about %v", d, CueDuration)
			}
			if len(pcm)%frameSize != 0 {
				t.Errorf("pcm length %d is not whole frames", len(pcm))
			}

			// Mono input is duplicated to both channels.
			nonSilent := false
			for off := 0; off+frameSize <= len(pcm); off += frameSize {
				l := int16(binary.LittleEndian.Uint16(pcm[off:]))
				r := int16(binary.LittleEndian.Uint16(pcm[off+2:]))
				if l != r {
					t.Fatalf("frame at %d: left %d != right %d", off, l, r)
				}
				if l != 0 {
					nonSilent = true
				}
			}
			if !nonSilent {
				t.Error("decoded tone is silent")
			}
		})
	}
}

func TestDecodeFile_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp3")
	garbage := filepath.Join(dir, "garbage.mp3")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(garbage, []byte("this is not audio at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{empty, garbage, filepath.Join(dir, "missing.wav")} {
		if _, err := DecodeFile(path); err == nil {
			t.Errorf("DecodeFile(%s) expected error", filepath.Base(path))
		}
	}
}

func TestResample(t *testing.T) {
	in := make(PCM, 2*frameSize)
	binary.LittleEndian.PutUint16(in[0:], uint16(int16(0)))
	binary.LittleEndian.PutUint16(in[2:], uint16(int16(100)))
	binary.LittleEndian.PutUint16(in[4:], uint16(int16(1000)))
	neg := int16(-100)
	binary.LittleEndian.PutUint16(in[6:], uint16(neg))

	out := resample(in, 22050, 44100)
	if len(out) != 4*frameSize {
		t.Fatalf("got %d frames, want 4", len(out)/frameSize)
	}

	want := [][2]int16{{0, 100}, {500, 0}, {1000, -100}, {1000, -100}}
	for i, w := range want {
		l := frameSample(out, i, 0)
		r := frameSample(out, i, 1)
		if l != w[0] || r != w[1] {
			t.Errorf("frame %d = (%d, %d), want (%d, %d)", i, l, r, w[0], w[1])
		}
	}
}

func TestToInt16(t *testing.T) {
	tests := []struct {
		depth int
		in    int
		want  int16
	}{
		{depth: 8, in: 128, want: 0},
		{depth: 8, in: 255, want: 127 << 8},
		{depth: 16, in: -1234, want: -1234},
		{depth: 24, in: 0x7fff00, want: 0x7fff},
		{depth: 32, in: -0x10000, want: -1},
	}
	for _, tt := range tests {
		if got := toInt16([]int{tt.in}, tt.depth)[0]; got != tt.want {
			t.Errorf("toInt16(%d, %d bit) = %d, want %d", tt.in, tt.depth, got, tt.want)
		}
	}
}
