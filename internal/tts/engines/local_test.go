package engines

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

// outArgScript writes stdin, or the fixed text RIFF, to the path that
// follows flag.
func outArgScript(flag string) string {
	return `out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "` + flag + `" ]; then shift; out="$1"; fi
  shift
done
[ -n "$out" ] || exit 2
printf 'RIFF' > "$out"
cat >> "$out"`
}

func TestESpeakEngine_Synthesize(t *testing.T) {
	script := writeScript(t, "espeak-ng", outArgScript("-w"))

	engine, err := NewESpeakEngine(script, 0)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "clipboard_speech.wav")
	if err := engine.Synthesize(context.Background(), "--not-an-option", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "RIFF--not-an-option" {
		t.Errorf("content = %q, text should arrive on stdin", data)
	}
}

func TestFestivalEngine_FailureLeavesNoFile(t *testing.T) {
	script := writeScript(t, "text2wave", "echo 'SIOD ERROR' >&2; exit 1")

	engine, err := NewFestivalEngine(script, 0)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	err = engine.Synthesize(context.Background(), "hello", filepath.Join(dir, "clipboard_speech.wav"))
	if !errors.Is(err, tts.ErrSynthesisFailed) {
		t.Fatalf("err = %v, want ErrSynthesisFailed", err)
	}
	assertDirEmpty(t, dir)
}

func TestPiperEngine_Synthesize(t *testing.T) {
	script := writeScript(t, "piper", outArgScript("--output_file"))

	engine, err := NewPiperEngine(PiperConfig{Command: script, ModelPath: "voice.onnx", SpeakerID: 2})
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "clipboard_speech.wav")
	if err := engine.Synthesize(context.Background(), "hello", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if data, _ := os.ReadFile(out); string(data) != "RIFFhello" {
		t.Errorf("content = %q", data)
	}
}

func TestCoquiEngine_SerializesCalls(t *testing.T) {
	// mkdir is atomic: a concurrent second call fails to take the lock.
	lock := filepath.Join(t.TempDir(), "lock")
	script := writeScript(t, "tts", `mkdir "`+lock+`" || exit 3
sleep 0.2
rmdir "`+lock+`"
`+outArgScript("--out_path"))

	engine, err := NewCoquiEngine(CoquiConfig{Command: script})
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out := filepath.Join(dir, string(rune('a'+i))+".wav")
			errs[i] = engine.Synthesize(context.Background(), "hello", out)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("call %d: %v", i, err)
		}
	}
}

func TestCoquiEngine_QueuedCallHonoursContext(t *testing.T) {
	engine, err := NewCoquiEngine(CoquiConfig{Command: "tts", Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	// A previous call still holds the engine.
	if err := engine.lock.acquire(context.Background(), CoquiName, time.Second); err != nil {
		t.Fatal(err)
	}
	defer engine.lock.release()

	out := filepath.Join(t.TempDir(), "clipboard_speech.wav")
	start := time.Now()
	err = engine.Synthesize(context.Background(), "hello", out)
	if !errors.Is(err, tts.ErrSynthesisTimeout) {
		t.Errorf("Synthesize() error = %v, want ErrSynthesisTimeout", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("queued call waited %v", d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := engine.Synthesize(ctx, "hello", out); !errors.Is(err, tts.ErrCanceled) {
		t.Errorf("Synthesize() with canceled ctx error = %v, want ErrCanceled", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output expected")
	}
}

func TestBuild(t *testing.T) {
	backends, err := Build(Config{})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]tts.Format{
		GTTSName:     tts.FormatMP3,
		OpenAIName:   tts.FormatMP3,
		PiperName:    tts.FormatWAV,
		CoquiName:    tts.FormatWAV,
		ESpeakName:   tts.FormatWAV,
		FestivalName: tts.FormatWAV,
		SystemName:   tts.FormatWAV,
	}
	if len(backends) != len(want) {
		t.Fatalf("got %d backends, want %d", len(backends), len(want))
	}
	for _, b := range backends {
		f, ok := want[b.Name()]
		if !ok {
			t.Errorf("unexpected backend %q", b.Name())
			continue
		}
		if b.Format() != f {
			t.Errorf("%s format = %v, want %v", b.Name(), b.Format(), f)
		}
	}

	reg, err := NewRegistry(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Resolve(GTTSName); err != nil {
		t.Errorf("Resolve(%q) error = %v", GTTSName, err)
	}
}

func TestBuild_BadCommand(t *testing.T) {
	if _, err := Build(Config{ESpeakCommand: `espeak-ng "-v`}); err == nil {
		t.Error("expected an error for an unparsable command line")
	}
}
