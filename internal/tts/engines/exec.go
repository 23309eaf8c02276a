package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/mattn/go-shellwords"
)

const (
	// RemoteTimeout bounds network-bound synthesis.
	RemoteTimeout = 10 * time.Second

	// LocalTimeout bounds synthesis in an external process.
	LocalTimeout = 20 * time.Second

	// gracePeriod is the time between SIGINT and SIGKILL on timeout.
	gracePeriod = 500 * time.Millisecond
)

// lookPath is swapped in tests to simulate missing executables.
var lookPath = exec.LookPath

// Command is an executable plus fixed leading arguments, parsed from a
// shell-like command line such as "espeak-ng -v en-us -s 170".
type Command struct {
	Path string
	Args []string
}

// ParseCommand parses a command line with shell quoting rules. An empty
// line yields the fallback executable with no extra arguments.
func ParseCommand(line, fallback string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Path: fallback}, nil
	}
	args, err := shellwords.NewParser().Parse(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(args) == 0 {
		return Command{Path: fallback}, nil
	}
	return Command{Path: args[0], Args: args[1:]}, nil
}

// With returns the full argument list with extra arguments appended.
func (c Command) With(extra ...string) []string {
	out := make([]string, 0, len(c.Args)+len(extra))
	out = append(out, c.Args...)
	return append(out, extra...)
}

// missingExecutable returns a description if the command is not on PATH.
func missingExecutable(c Command, description string) []string {
	if _, err := lookPath(c.Path); err != nil {
		return []string{description}
	}
	return nil
}

// runRequest describes one external synthesis process.
type runRequest struct {
	engine  string
	cmd     Command
	args    []string
	stdin   string
	timeout time.Duration
}

// runCommand executes a synthesis process with timeout protection.
// Stdin is configured before the process starts. On deadline the process
// gets SIGINT, then SIGKILL after a grace period, and the call fails with
// ErrSynthesisTimeout.
func runCommand(ctx context.Context, req runRequest) error {
	if req.timeout <= 0 {
		req.timeout = LocalTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.cmd.Path, req.cmd.With(req.args...)...) //nolint:gosec
	cmd.Stdin = strings.NewReader(req.stdin)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		return interrupt(cmd.Process)
	}
	cmd.WaitDelay = gracePeriod

	start := time.Now()
	err := cmd.Run()
	log.Debug("Synthesis process finished",
		"engine", req.engine,
		"command", req.cmd.Path,
		"duration", time.Since(start),
		"error", err)

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return tts.NewError(tts.ErrorCodeSynthesisTimeout,
			fmt.Sprintf("%s timed out after %v", req.engine, req.timeout), ctx.Err())
	case errors.Is(ctx.Err(), context.Canceled):
		return tts.NewError(tts.ErrorCodeCanceled, req.engine+" synthesis canceled", ctx.Err())
	case err != nil:
		msg := fmt.Sprintf("%s failed", req.cmd.Path)
		if s := strings.TrimSpace(stderr.String()); s != "" {
			msg = fmt.Sprintf("%s: %s", msg, s)
		}
		return tts.NewError(tts.ErrorCodeSynthesisFailure, msg, err)
	}
	return nil
}

// interrupt asks the process to stop. Windows has no SIGINT.
func interrupt(p *os.Process) error {
	if p == nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(syscall.SIGINT)
}

// remoteError classifies a failed remote call as timeout, cancel or failure.
func remoteError(ctx context.Context, engine string, timeout time.Duration, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return tts.NewError(tts.ErrorCodeSynthesisTimeout,
			fmt.Sprintf("%s timed out after %v", engine, timeout), err)
	case errors.Is(ctx.Err(), context.Canceled):
		return tts.NewError(tts.ErrorCodeCanceled, engine+" synthesis canceled", err)
	default:
		return tts.NewError(tts.ErrorCodeSynthesisFailure, engine+" request failed", err)
	}
}

// writeAtomic produces outputPath through a temp file in the same
// directory. fn receives the temp path and must fill it. The result is
// renamed into place only if non-empty; otherwise it is removed.
func writeAtomic(outputPath string, fn func(tmpPath string) error) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return tts.NewError(tts.ErrorCodeSynthesisFailure, "unable to create output directory", err)
	}

	ext := filepath.Ext(outputPath)
	f, err := os.CreateTemp(dir, ".synth-*"+ext)
	if err != nil {
		return tts.NewError(tts.ErrorCodeSynthesisFailure, "unable to create temp file", err)
	}
	tmp := f.Name()
	_ = f.Close()

	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmp)
		}
	}()

	if err := fn(tmp); err != nil {
		return err
	}

	st, err := os.Stat(tmp)
	if err != nil {
		return tts.NewError(tts.ErrorCodeSynthesisFailure, "synthesis produced no file", err)
	}
	if st.Size() == 0 {
		return tts.NewError(tts.ErrorCodeSynthesisFailure, "synthesis produced an empty file", nil)
	}

	if err := os.Rename(tmp, outputPath); err != nil {
		return tts.NewError(tts.ErrorCodeSynthesisFailure, "unable to move audio into place", err)
	}
	ok = true
	return nil
}

// writeBytesAtomic writes data to outputPath through writeAtomic.
func writeBytesAtomic(outputPath string, data []byte) error {
	return writeAtomic(outputPath, func(tmp string) error {
		if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
			return tts.NewError(tts.ErrorCodeSynthesisFailure, "unable to write audio", err)
		}
		return nil
	})
}

// WriteFileAtomic stores already-synthesized audio at outputPath with
// the same guarantees a backend gives.
func WriteFileAtomic(outputPath string, data []byte) error {
	return writeBytesAtomic(outputPath, data)
}

// engineLock serializes calls to an engine that cannot run twice at
// once. Unlike a mutex, waiting for it gives up when ctx is done.
type engineLock chan struct{}

func newEngineLock() engineLock { return make(engineLock, 1) }

// acquire waits for the lock or for ctx.
func (l engineLock) acquire(ctx context.Context, engine string, timeout time.Duration) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return tts.NewError(tts.ErrorCodeSynthesisTimeout,
				fmt.Sprintf("%s timed out after %v waiting for a previous call", engine, timeout), ctx.Err())
		}
		return tts.NewError(tts.ErrorCodeCanceled, engine+" synthesis canceled", ctx.Err())
	}
}

func (l engineLock) release() { <-l }
