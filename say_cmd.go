package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/capture"
	"github.com/dgnsrekt/readaloud/internal/session"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const sayPollInterval = 100 * time.Millisecond

var sayCmd = &cobra.Command{
	Use:   "say [TEXT...]",
	Short: "Read text aloud once and exit",
	Long: paragraph(fmt.Sprintf("\n%s the arguments, standard input, or the current selection, then wait for playback to end.",
		keyword("Read"))),
	Example: paragraph("readaloud say hello world\necho hello | readaloud say\nreadaloud say --engine Piper"),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		text, err := sayText(ctx, args, os.Stdin)
		if err != nil {
			return err
		}

		e, err := readEnvironment()
		if err != nil {
			return err
		}
		a, err := newApp(ctx, e, withPlayback())
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		start := time.Now()
		job, err := a.ctrl.RequestRead(ctx, text)
		if err != nil {
			return sayError(err)
		}
		if err := waitSpoken(ctx, a.ctrl, job); err != nil {
			return sayError(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Read %s characters with %s in %s\n",
			humanize.Comma(int64(len([]rune(text)))), job.Backend, time.Since(start).Round(time.Millisecond))
		if st, err := os.Stat(job.Path); err == nil {
			log.Debug("Audio written", "path", job.Path, "size", humanize.Bytes(uint64(st.Size()))) //nolint:gosec
		}
		return nil
	},
}

// sayText picks the text to read: arguments, then piped input, then
// the selection.
func sayText(ctx context.Context, args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if yes, err := stdinIsPipe(stdin); err != nil {
		return "", err
	} else if yes {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read from stdin: %w", err)
		}
		return string(b), nil
	}
	text, err := capture.NewClipboard().Capture(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to read the selection: %w", err)
	}
	return text, nil
}

func stdinIsPipe(f *os.File) (bool, error) {
	stat, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// waitSpoken blocks until the job has been synthesized and its audio
// has finished playing.
func waitSpoken(ctx context.Context, ctrl *session.Controller, job *session.Job) error {
	select {
	case <-job.Done():
	case <-ctx.Done():
		ctrl.Cancel()
		return ctx.Err()
	}
	if err := job.Err(); err != nil {
		return err
	}

	ticker := time.NewTicker(sayPollInterval)
	defer ticker.Stop()
	for {
		if ctrl.Status().Transport.State == audio.StateIdle {
			return nil
		}
		select {
		case <-ctx.Done():
			ctrl.Stop()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func sayError(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return errors.New(tts.UserMessage(err))
}
