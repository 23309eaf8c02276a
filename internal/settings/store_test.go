package settings

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpen_Defaults(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested"))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Get(); got != Defaults() {
		t.Errorf("Get() = %+v, want defaults", got)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("opening should not create the file")
	}
}

func TestStore_Load(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Settings
	}{
		{
			name:    "valid",
			content: "tts_engine: Piper\nplayback_speed: 1.5\ndebug_mode: true\n",
			want:    Settings{Engine: "Piper", Speed: 1.5, Debug: true},
		},
		{
			name:    "corrupt",
			content: "tts_engine: [unterminated\n",
			want:    Defaults(),
		},
		{
			name:    "speed too high is clamped",
			content: "tts_engine: gTTS\nplayback_speed: 9\n",
			want:    Settings{Engine: "gTTS", Speed: 2.0},
		},
		{
			name:    "speed too low is clamped",
			content: "tts_engine: gTTS\nplayback_speed: 0.1\n",
			want:    Settings{Engine: "gTTS", Speed: 0.5},
		},
		{
			name:    "missing fields",
			content: "debug_mode: true\n",
			want:    Settings{Engine: DefaultEngine, Speed: 1.0, Debug: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			s, err := Open(dir)
			if err != nil {
				t.Fatal(err)
			}
			if got := s.Get(); got != tt.want {
				t.Errorf("Get() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStore_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Update(func(v *Settings) {
		v.Engine = "eSpeak-NG"
		v.Speed = 1.25
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Engine != "eSpeak-NG" || got.Speed != 1.3 {
		t.Errorf("Update() = %+v", got)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"tts_engine:", "playback_speed:", "debug_mode:"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("file is missing %s:\n%s", key, data)
		}
	}

	again, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if again.Get() != got {
		t.Errorf("reopened = %+v, want %+v", again.Get(), got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only %s in dir, got %d entries", FileName, len(entries))
	}
}

func TestStore_Watch(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Settings, 4)
	errc := make(chan error, 1)
	go func() { errc <- s.Watch(ctx, func(v Settings) { changes <- v }) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	content := "tts_engine: Festival\nplayback_speed: 0.8\ndebug_mode: false\n"
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case v := <-changes:
		if v.Engine != "Festival" || v.Speed != 0.8 {
			t.Errorf("change = %+v", v)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("READALOUD_TEST_DIR", "/srv/voices")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in, want string
	}{
		{in: "", want: ""},
		{in: "/abs/path", want: "/abs/path"},
		{in: "$READALOUD_TEST_DIR/en.onnx", want: "/srv/voices/en.onnx"},
		{in: "~/models", want: filepath.Join(home, "models")},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveDirs_Overrides(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("READALOUD_CONFIG_HOME", custom)

	dirs, err := ResolveDirs()
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs.Config) == 0 || dirs.Config[0] != custom {
		t.Errorf("Config = %v, want %s first", dirs.Config, custom)
	}
	if dirs.Data == "" || dirs.Cache == "" {
		t.Errorf("dirs = %+v", dirs)
	}
}
