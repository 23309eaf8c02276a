package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// tickingClock advances one second per call so access order is strict.
func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestCache(t *testing.T, capacity int64) *DiskCache {
	t.Helper()
	dc, err := NewDiskCache(t.TempDir(), capacity)
	if err != nil {
		t.Fatal(err)
	}
	dc.now = tickingClock()
	t.Cleanup(func() { _ = dc.Close() })
	return dc
}

func TestKey(t *testing.T) {
	a := Key("gTTS", "hello")
	if a != Key("gTTS", "hello") {
		t.Error("key is not stable")
	}
	if a == Key("Piper", "hello") {
		t.Error("key should depend on the backend")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("backend and text must be separated")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestDiskCache_PutGet(t *testing.T) {
	dc := newTestCache(t, 1<<20)

	small := []byte("ID3 small")
	large := []byte(strings.Repeat("RIFF wave data ", 500))

	for name, data := range map[string][]byte{"small": small, "large": large} {
		if err := dc.Store("gTTS", name, data); err != nil {
			t.Fatalf("Store(%s) error = %v", name, err)
		}
		got, ok := dc.Lookup("gTTS", name)
		if !ok {
			t.Fatalf("Lookup(%s) missed", name)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("Lookup(%s) returned different bytes", name)
		}
	}

	if _, ok := dc.Lookup("Piper", "small"); ok {
		t.Error("lookup with another backend should miss")
	}

	st := dc.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Items != 2 {
		t.Errorf("stats = %+v", st)
	}
	if st.Size >= int64(len(small)+len(large)) {
		t.Errorf("size %d: large entry should be compressed", st.Size)
	}
}

func TestDiskCache_EvictsLeastRecentlyUsed(t *testing.T) {
	dc := newTestCache(t, 300)

	for _, k := range []string{"a", "b"} {
		if err := dc.Put(k, bytes.Repeat([]byte(k), 100)); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := dc.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	if err := dc.Put("c", bytes.Repeat([]byte("c"), 150)); err != nil {
		t.Fatal(err)
	}

	if _, ok := dc.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := dc.Get("a"); !ok {
		t.Error("a was used recently and should stay")
	}
	if dc.Stats().Evictions != 1 {
		t.Errorf("evictions = %d, want 1", dc.Stats().Evictions)
	}
}

func TestDiskCache_TooLarge(t *testing.T) {
	dc := newTestCache(t, 10)
	if err := dc.Put("x", []byte("this is longer than ten bytes")); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put() error = %v, want ErrItemTooLarge", err)
	}
}

func TestDiskCache_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	if err := dc.Store("eSpeak-NG", "hello", []byte("RIFF")); err != nil {
		t.Fatal(err)
	}
	if err := dc.Close(); err != nil {
		t.Fatal(err)
	}

	again, err := NewDiskCache(dir, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close() //nolint:errcheck
	if got, ok := again.Lookup("eSpeak-NG", "hello"); !ok || string(got) != "RIFF" {
		t.Errorf("Lookup() = %q, %v", got, ok)
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dc := newTestCache(t, 1<<20)
	if err := dc.Put("k", []byte("data")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dc.dir, "k.bin")); err != nil {
		t.Fatal(err)
	}
	if _, ok := dc.Get("k"); ok {
		t.Error("expected miss after the file was removed")
	}
	if dc.Stats().Items != 0 {
		t.Error("entry should be dropped from the index")
	}
}

func TestDiskCache_Clear(t *testing.T) {
	dc := newTestCache(t, 1<<20)
	_ = dc.Put("a", []byte("1"))
	_ = dc.Put("b", []byte("2"))
	if err := dc.Clear(); err != nil {
		t.Fatal(err)
	}
	if st := dc.Stats(); st.Items != 0 || st.Size != 0 {
		t.Errorf("stats after clear = %+v", st)
	}
}
