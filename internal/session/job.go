package session

import (
	"context"
	"sync/atomic"

	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/google/uuid"
)

// Job is one synthesis of captured text.
type Job struct {
	ID      string
	Text    string
	Backend string
	Path    string // artifact the audio is committed to

	format tts.Format
	tmp    string // private synthesis output

	ctx    context.Context
	cancel context.CancelFunc

	// canceled is the cancel flag. It is written and checked under the
	// controller mutex.
	canceled atomic.Bool

	done chan struct{}
	err  error
}

func newJob(parent context.Context, text, backend string, format tts.Format, artifacts tts.Artifacts) *Job {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	id := uuid.NewString()
	return &Job{
		ID:      id,
		Text:    text,
		Backend: backend,
		Path:    artifacts.Path(format),
		format:  format,
		tmp:     artifacts.JobPath(format, id),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Done is closed when the job has finished, including playback handoff.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the job's outcome once Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Canceled reports whether the job was canceled.
func (j *Job) Canceled() bool { return j.canceled.Load() }

func (j *Job) finish(err error) {
	j.err = err
	j.cancel()
	close(j.done)
}
