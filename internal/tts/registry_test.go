package tts

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// stubBackend is a minimal Backend for registry tests.
type stubBackend struct {
	name    string
	format  Format
	missing []string
	panics  bool
}

func (s *stubBackend) Name() string   { return s.name }
func (s *stubBackend) Format() Format { return s.format }

func (s *stubBackend) CheckAvailability(context.Context) []string {
	if s.panics {
		panic("probe exploded")
	}
	return s.missing
}

func (s *stubBackend) Synthesize(context.Context, string, string) error { return nil }

func newTestRegistry(t *testing.T) (*Registry, []*stubBackend) {
	t.Helper()
	backends := []*stubBackend{
		{name: "gTTS", format: FormatMP3},
		{name: "eSpeak-NG", format: FormatWAV, missing: []string{"espeak-ng (system package)"}},
		{name: "Festival", format: FormatWAV},
		{name: "Broken", format: FormatWAV, panics: true},
	}
	list := make([]Backend, len(backends))
	for i, b := range backends {
		list[i] = b
	}
	r, err := NewRegistry(list...)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return r, backends
}

// TestRegistryList tests deterministic lexicographic ordering.
func TestRegistryList(t *testing.T) {
	r, _ := newTestRegistry(t)

	want := []string{"Broken", "Festival", "eSpeak-NG", "gTTS"}
	if got := r.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	// The returned slice must be a copy.
	got := r.List()
	got[0] = "mutated"
	if r.List()[0] != "Broken" {
		t.Error("List() exposed internal state")
	}
}

// TestRegistryEmpty tests that an empty registry is valid.
func TestRegistryEmpty(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	if got := r.List(); len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

// TestRegistryResolveRoundTrip tests resolve(b.name) == b for all backends.
func TestRegistryResolveRoundTrip(t *testing.T) {
	r, backends := newTestRegistry(t)

	for _, b := range backends {
		got, err := r.Resolve(b.Name())
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", b.Name(), err)
			continue
		}
		if got != Backend(b) {
			t.Errorf("Resolve(%q) returned a different backend", b.Name())
		}
	}
}

// TestRegistryResolveNotFound tests the NotFound outcome.
func TestRegistryResolveNotFound(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Resolve("DoesNotExist")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
	}

	_, err = r.Resolve("gtts")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve() is case sensitive, got %v", err)
	}
	if !strings.Contains(err.Error(), `"gTTS"`) {
		t.Errorf("expected suggestion in %q", err.Error())
	}
}

// TestRegistryDuplicate tests that duplicate names are rejected.
func TestRegistryDuplicate(t *testing.T) {
	_, err := NewRegistry(
		&stubBackend{name: "gTTS"},
		&stubBackend{name: "gTTS"},
	)
	if err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

// TestRegistryCheckAvailability tests that probes never propagate faults.
func TestRegistryCheckAvailability(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		engine      string
		wantMissing int
		contains    string
	}{
		{name: "ready", engine: "gTTS", wantMissing: 0},
		{name: "missing executable", engine: "eSpeak-NG", wantMissing: 1, contains: "espeak-ng"},
		{name: "panicking probe", engine: "Broken", wantMissing: 1, contains: "availability check failed"},
		{name: "unknown engine", engine: "DoesNotExist", wantMissing: 1, contains: "not registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing := r.CheckAvailability(ctx, tt.engine)
			if len(missing) != tt.wantMissing {
				t.Fatalf("CheckAvailability() = %v, want %d entries", missing, tt.wantMissing)
			}
			if tt.contains != "" && !strings.Contains(missing[0], tt.contains) {
				t.Errorf("missing %q does not mention %q", missing[0], tt.contains)
			}
		})
	}
}

// TestRegistryDescriptors tests descriptor listing.
func TestRegistryDescriptors(t *testing.T) {
	r, _ := newTestRegistry(t)

	descs := r.Descriptors()
	if len(descs) != 4 {
		t.Fatalf("expected 4 descriptors, got %d", len(descs))
	}
	if descs[3] != (Descriptor{Name: "gTTS", Format: FormatMP3}) {
		t.Errorf("unexpected descriptor %+v", descs[3])
	}
}
