package engines

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

// fakeMP3 is enough of an MP3 for the engine, which never decodes it.
var fakeMP3 = []byte("ID3\x04\x00\x00\x00\x00\x00\x00\xff\xfb\x90\x00")

func TestGTTSEngine_Synthesize(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("q"))
		mu.Unlock()
		if r.URL.Query().Get("tl") != "en" || r.URL.Query().Get("client") != "tw-ob" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(fakeMP3)
	}))
	defer srv.Close()

	engine := NewGTTSEngine(GTTSConfig{BaseURL: srv.URL})
	if missing := engine.CheckAvailability(context.Background()); len(missing) != 0 {
		t.Fatalf("missing = %v", missing)
	}

	arts, err := tts.NewArtifacts(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	out := arts.Path(engine.Format())

	if err := engine.Synthesize(context.Background(), "hello world", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !arts.Available(tts.FormatMP3) {
		t.Fatal("expected MP3 artifact to be available")
	}
	if filepath.Ext(out) != ".mp3" {
		t.Errorf("artifact %s is not an mp3", out)
	}
	if len(queries) != 1 || queries[0] != "hello world" {
		t.Errorf("queries = %q", queries)
	}
}

func TestGTTSEngine_LongTextIsChunked(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		_, _ = w.Write(fakeMP3)
	}))
	defer srv.Close()

	engine := NewGTTSEngine(GTTSConfig{BaseURL: srv.URL})
	out := filepath.Join(t.TempDir(), "clipboard_speech.mp3")
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 8)

	if err := engine.Synthesize(context.Background(), text, out); err != nil {
		t.Fatal(err)
	}
	want := len(splitText(text, maxChunkRunes))
	if calls != want {
		t.Errorf("requests = %d, want %d", calls, want)
	}
	st, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if st.Size() != int64(want*len(fakeMP3)) {
		t.Errorf("size = %d, want %d", st.Size(), want*len(fakeMP3))
	}
}

func TestGTTSEngine_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		want    error
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
			want: tts.ErrSynthesisFailed,
		},
		{
			name:    "empty body",
			handler: func(http.ResponseWriter, *http.Request) {},
			want:    tts.ErrSynthesisFailed,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout: 100 * time.Millisecond,
			want:    tts.ErrSynthesisTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			dir := t.TempDir()
			engine := NewGTTSEngine(GTTSConfig{BaseURL: srv.URL, Timeout: tt.timeout})
			err := engine.Synthesize(context.Background(), "hello", filepath.Join(dir, "clipboard_speech.mp3"))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			assertDirEmpty(t, dir)
		})
	}
}

func TestGTTSEngine_EmptyText(t *testing.T) {
	engine := NewGTTSEngine(GTTSConfig{BaseURL: "http://127.0.0.1:1"})
	err := engine.Synthesize(context.Background(), "  \n\t ", filepath.Join(t.TempDir(), "x.mp3"))
	if !errors.Is(err, tts.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestGTTSEngine_BadEndpoint(t *testing.T) {
	engine := NewGTTSEngine(GTTSConfig{BaseURL: "not a url"})
	if missing := engine.CheckAvailability(context.Background()); len(missing) != 1 {
		t.Errorf("missing = %v, want 1 item", missing)
	}
}

func TestSplitText(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{name: "empty", text: "", max: 10, want: nil},
		{name: "short", text: "hello world", max: 100, want: []string{"hello world"}},
		{name: "collapses whitespace", text: "hello \n\n  world", max: 100, want: []string{"hello world"}},
		{
			name: "prefers punctuation",
			text: "One two. Three four five",
			max:  12,
			want: []string{"One two.", "Three four", "five"},
		},
		{
			name: "hard split without spaces",
			text: "abcdefghij",
			max:  4,
			want: []string{"abcd", "efgh", "ij"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitText(tt.text, tt.max)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("splitText() = %q, want %q", got, tt.want)
			}
			for _, c := range got {
				if n := utf8.RuneCountInString(c); n > tt.max {
					t.Errorf("chunk %q has %d runes, max %d", c, n, tt.max)
				}
			}
		})
	}
}

func TestGTTSEngine_Command(t *testing.T) {
	script := writeScript(t, "gtts-cli", `out=""
while [ $# -gt 0 ]; do
  case "$1" in
    --lang) shift; [ "$1" = "de" ] || exit 4 ;;
    --output) shift; out="$1" ;;
  esac
  shift
done
[ -n "$out" ] || exit 2
printf 'ID3' > "$out"
cat >> "$out"`)

	engine := NewGTTSEngine(GTTSConfig{Language: "de", Command: script})
	if missing := engine.CheckAvailability(context.Background()); len(missing) != 0 {
		t.Fatalf("missing = %v", missing)
	}

	out := filepath.Join(t.TempDir(), "clipboard_speech.mp3")
	if err := engine.Synthesize(context.Background(), "--hallo welt", out); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ID3--hallo welt" {
		t.Errorf("output = %q", data)
	}

	missing := NewGTTSEngine(GTTSConfig{Command: filepath.Join(t.TempDir(), "no-gtts-cli")})
	if got := missing.CheckAvailability(context.Background()); len(got) != 1 || !strings.Contains(got[0], "gtts-cli") {
		t.Errorf("missing = %v", got)
	}

	bad := NewGTTSEngine(GTTSConfig{Command: `gtts-cli "unterminated`})
	if got := bad.CheckAvailability(context.Background()); len(got) == 0 {
		t.Error("expected a bad command to be reported")
	}
	if err := bad.Synthesize(context.Background(), "hello", out); !errors.Is(err, tts.ErrEngineUnavailable) {
		t.Errorf("Synthesize() error = %v, want ErrEngineUnavailable", err)
	}
}
