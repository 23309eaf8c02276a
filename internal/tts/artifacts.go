package tts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	artifactBase = "clipboard_speech"
	jobPrefix    = artifactBase + "_job_"
)

// Artifacts derives the audio file paths used for playback. There is one
// path per output format so a backend only ever writes the file matching
// its declared format.
type Artifacts struct {
	Dir string
}

// NewArtifacts ensures dir exists and returns its artifact layout.
func NewArtifacts(dir string) (Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return Artifacts{}, fmt.Errorf("unable to create audio directory: %w", err)
	}
	return Artifacts{Dir: dir}, nil
}

// Path returns the synthesis output path for the format.
func (a Artifacts) Path(f Format) string {
	return filepath.Join(a.Dir, artifactBase+"."+f.Ext())
}

// SpeedPath returns the path of the tempo-shifted copy of a format.
func (a Artifacts) SpeedPath(f Format) string {
	return filepath.Join(a.Dir, artifactBase+"_speed."+f.Ext())
}

// JobPath returns a private output path for one synthesis job. The job
// writes there and Commit moves the result to Path.
func (a Artifacts) JobPath(f Format, id string) string {
	return filepath.Join(a.Dir, jobPrefix+id+"."+f.Ext())
}

// Commit moves a finished job file into place as the artifact of f.
func (a Artifacts) Commit(jobPath string, f Format) error {
	if err := os.Rename(jobPath, a.Path(f)); err != nil {
		return fmt.Errorf("unable to move audio into place: %w", err)
	}
	return nil
}

// Discard removes a job file that will not be committed.
func (a Artifacts) Discard(jobPath string) error {
	return removeIfExists(jobPath)
}

// Available reports whether a non-empty artifact exists for the format.
func (a Artifacts) Available(f Format) bool {
	st, err := os.Stat(a.Path(f))
	return err == nil && st.Mode().IsRegular() && st.Size() > 0
}

// Purge removes every artifact whose format is not in keep.
func (a Artifacts) Purge(keep ...Format) error {
	var errs []error
	for _, f := range Formats {
		if containsFormat(keep, f) {
			continue
		}
		errs = append(errs, removeIfExists(a.Path(f)), removeIfExists(a.SpeedPath(f)))

		// Leftovers of canceled or interrupted jobs.
		stale, _ := filepath.Glob(filepath.Join(a.Dir, jobPrefix+"*."+f.Ext()))
		for _, p := range stale {
			errs = append(errs, removeIfExists(p))
		}
	}
	return errors.Join(errs...)
}

// PurgeAll removes every artifact.
func (a Artifacts) PurgeAll() error {
	return a.Purge()
}

func containsFormat(list []Format, f Format) bool {
	for _, v := range list {
		if v == f {
			return true
		}
	}
	return false
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to remove %s: %w", path, err)
	}
	return nil
}
