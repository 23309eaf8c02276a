package tts

import (
	"errors"
	"fmt"
	"strings"
)

// Common TTS errors. A *Error matches the sentinel for its code through
// errors.Is, so callers can test either way.
var (
	// ErrEmptyInput indicates the captured text was empty or whitespace
	ErrEmptyInput = errors.New("no text to read")

	// ErrNotFound indicates an unknown engine name
	ErrNotFound = errors.New("engine not found")

	// ErrEngineUnavailable indicates the engine is missing prerequisites
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrSynthesisFailed indicates synthesis did not produce audio
	ErrSynthesisFailed = errors.New("text synthesis failed")

	// ErrSynthesisTimeout indicates synthesis exceeded its deadline
	ErrSynthesisTimeout = errors.New("text synthesis timed out")

	// ErrPlaybackLoad indicates an audio file could not be loaded for playback
	ErrPlaybackLoad = errors.New("unable to load audio for playback")

	// ErrCanceled indicates an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrSwitching indicates an engine switch is in progress
	ErrSwitching = errors.New("engine switch in progress")

	// ErrSpeedOutOfRange is returned when speed is outside valid range
	ErrSpeedOutOfRange = errors.New("speed must be between 0.5 and 2.0")
)

// ErrorCode identifies specific error types
type ErrorCode string

const (
	ErrorCodeEmptyInput        ErrorCode = "EMPTY_INPUT"
	ErrorCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeSynthesisFailure  ErrorCode = "SYNTHESIS_FAILURE"
	ErrorCodeSynthesisTimeout  ErrorCode = "SYNTHESIS_TIMEOUT"
	ErrorCodePlaybackLoad      ErrorCode = "PLAYBACK_LOAD_FAILURE"
	ErrorCodeCanceled          ErrorCode = "CANCELED"
	ErrorCodeSwitching         ErrorCode = "SWITCHING"
)

var sentinels = map[ErrorCode]error{
	ErrorCodeEmptyInput:        ErrEmptyInput,
	ErrorCodeNotFound:          ErrNotFound,
	ErrorCodeEngineUnavailable: ErrEngineUnavailable,
	ErrorCodeSynthesisFailure:  ErrSynthesisFailed,
	ErrorCodeSynthesisTimeout:  ErrSynthesisTimeout,
	ErrorCodePlaybackLoad:      ErrPlaybackLoad,
	ErrorCodeCanceled:          ErrCanceled,
	ErrorCodeSwitching:         ErrSwitching,
}

// Error represents a TTS-specific error with additional context
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error

	// Missing lists unmet prerequisites for ErrorCodeEngineUnavailable.
	Missing []string
}

// NewError creates a new TTS error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Unavailable builds an engine-unavailable error carrying the missing list.
func Unavailable(engine string, missing []string) *Error {
	m := make([]string, len(missing))
	copy(m, missing)
	return &Error{
		Code:    ErrorCodeEngineUnavailable,
		Message: fmt.Sprintf("%s is unavailable", engine),
		Missing: m,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if len(e.Missing) > 0 {
		msg = fmt.Sprintf("%s (missing: %s)", msg, strings.Join(e.Missing, ", "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's code.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// MissingOf extracts the missing-prerequisite list from err, if any.
func MissingOf(err error) []string {
	var te *Error
	if errors.As(err, &te) {
		return te.Missing
	}
	return nil
}

// UserMessage renders err as a short status line for the UI.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if missing := MissingOf(err); len(missing) > 0 {
		return "Missing: " + strings.Join(missing, ", ")
	}
	var te *Error
	if errors.As(err, &te) {
		if te.Cause != nil {
			return fmt.Sprintf("%s: %v", te.Message, te.Cause)
		}
		return te.Message
	}
	return err.Error()
}
