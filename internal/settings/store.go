// Package settings persists the user's engine, speed and debug choices
// between runs.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileName is the settings file inside the data directory.
const FileName = "settings.yml"

// DefaultEngine is used when nothing valid is persisted.
const DefaultEngine = "gTTS"

// Settings is the persisted record.
type Settings struct {
	Engine string  `yaml:"tts_engine"`
	Speed  float64 `yaml:"playback_speed"`
	Debug  bool    `yaml:"debug_mode"`
}

// Defaults returns the settings used on first run.
func Defaults() Settings {
	return Settings{Engine: DefaultEngine, Speed: tts.DefaultSpeed}
}

// Normalize fills a missing engine and clamps the speed.
func (s Settings) Normalize() Settings {
	if s.Engine == "" {
		s.Engine = DefaultEngine
	}
	s.Speed = tts.RoundSpeed(tts.ClampSpeed(s.Speed))
	return s
}

// Store reads and writes the settings file.
type Store struct {
	path string

	mu  sync.Mutex
	cur Settings
}

// Open loads the settings file in dir, creating dir if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create settings directory: %w", err)
	}
	s := &Store{path: filepath.Join(dir, FileName)}
	s.cur = s.read()
	return s, nil
}

// Path returns the settings file path.
func (s *Store) Path() string { return s.path }

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Reload re-reads the file and returns what was loaded.
func (s *Store) Reload() Settings {
	v := s.read()
	s.mu.Lock()
	s.cur = v
	s.mu.Unlock()
	return v
}

// read loads the file, falling back to defaults when it is missing or
// unreadable.
func (s *Store) read() Settings {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults()
	}
	if err != nil {
		log.Warn("Unable to read settings, using defaults", "path", s.path, "error", err)
		return Defaults()
	}

	v := Defaults()
	if err := yaml.Unmarshal(data, &v); err != nil {
		log.Warn("Corrupt settings file, using defaults", "path", s.path, "error", err)
		return Defaults()
	}
	return v.Normalize()
}

// Save writes v atomically and makes it current.
func (s *Store) Save(v Settings) error {
	v = v.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(v); err != nil {
		return err
	}
	s.cur = v
	return nil
}

// Update applies fn to the current settings and saves the result.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	v := s.cur
	s.mu.Unlock()

	fn(&v)
	if err := s.Save(v); err != nil {
		return s.Get(), err
	}
	return s.Get(), nil
}

func (s *Store) write(v Settings) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.yml")
	if err != nil {
		return fmt.Errorf("unable to write settings: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("unable to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("unable to write settings: %w", err)
	}
	log.Debug("Settings saved", "path", s.path, "engine", v.Engine, "speed", v.Speed, "debug", v.Debug)
	return nil
}

// Watch calls fn whenever the file is changed by someone else. It
// blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, fn func(Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}
	log.Debug("fsnotify watching settings", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			v := s.read()
			s.mu.Lock()
			changed := v != s.cur
			s.cur = v
			s.mu.Unlock()
			if changed {
				log.Debug("Settings changed on disk", "engine", v.Engine, "speed", v.Speed, "debug", v.Debug)
				fn(v)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "dir", dir, "error", err)
		}
	}
}
