package engines

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/dgnsrekt/readaloud/internal/tts"
)

// SystemName is the persisted name of the desktop OS engine.
const SystemName = "System"

// sapiScript renders stdin to a wave file through System.Speech.
const sapiScript = `Add-Type -AssemblyName System.Speech; ` +
	`$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; ` +
	`$s.SetOutputToWaveFile($args[0]); ` +
	`$s.Speak([Console]::In.ReadToEnd()); $s.Dispose()`

// SystemEngine uses the speech synthesizer that ships with the desktop
// OS: `say` on macOS, SAPI through PowerShell on Windows and pico2wave
// elsewhere. The OS engine is a single shared resource, so calls are
// serialized per instance.
type SystemEngine struct {
	goos    string
	voice   string
	timeout time.Duration

	lock engineLock
}

// NewSystemEngine creates the desktop OS engine.
func NewSystemEngine(voice string, timeout time.Duration) *SystemEngine {
	if timeout <= 0 {
		timeout = LocalTimeout
	}
	return &SystemEngine{goos: runtime.GOOS, voice: voice, timeout: timeout, lock: newEngineLock()}
}

// Name implements tts.Backend.
func (e *SystemEngine) Name() string { return SystemName }

// Format implements tts.Backend.
func (e *SystemEngine) Format() tts.Format { return tts.FormatWAV }

// CheckAvailability implements tts.Backend.
func (e *SystemEngine) CheckAvailability(context.Context) []string {
	cmd, desc := e.command()
	return missingExecutable(cmd, desc)
}

// command returns the platform command and its missing description.
func (e *SystemEngine) command() (Command, string) {
	switch e.goos {
	case "darwin":
		return Command{Path: "say"}, "say (macOS speech)"
	case "windows":
		return Command{Path: "powershell"}, "powershell (Windows speech)"
	default:
		return Command{Path: "pico2wave"}, "pico2wave (libttspico-utils)"
	}
}

// args returns the platform arguments for writing to out.
func (e *SystemEngine) args(out, text string) ([]string, string) {
	switch e.goos {
	case "darwin":
		args := []string{"-o", out, "--file-format=WAVE", "--data-format=LEI16@22050", "-f", "-"}
		if e.voice != "" {
			args = append([]string{"-v", e.voice}, args...)
		}
		return args, text
	case "windows":
		return []string{"-NoProfile", "-NonInteractive", "-Command", sapiScript, out}, text
	default:
		lang := e.voice
		if lang == "" {
			lang = "en-US"
		}
		// pico2wave only accepts text as an argument; "--" ends options.
		return []string{"-l", lang, "-w", out, "--", text}, ""
	}
}

// Synthesize implements tts.Backend.
func (e *SystemEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.lock.acquire(ctx, SystemName, e.timeout); err != nil {
		return err
	}
	defer e.lock.release()

	cmd, _ := e.command()
	return writeAtomic(outputPath, func(tmp string) error {
		args, stdin := e.args(tmp, text)
		if err := runCommand(ctx, runRequest{
			engine:  SystemName,
			cmd:     cmd,
			args:    args,
			stdin:   stdin,
			timeout: e.timeout,
		}); err != nil {
			return fmt.Errorf("%s speech: %w", e.goos, err)
		}
		return nil
	})
}

var _ tts.Backend = (*SystemEngine)(nil)
