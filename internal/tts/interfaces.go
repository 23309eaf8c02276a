package tts

import "context"

// Backend defines the contract for text-to-speech engines.
// Implementations include cloud APIs (gTTS, OpenAI), offline neural
// engines (Piper, Coqui), rule-based engines (eSpeak-NG, Festival) and
// the desktop OS engine.
type Backend interface {
	// Name returns the stable engine name.
	Name() string

	// Format returns the audio format Synthesize writes.
	Format() Format

	// CheckAvailability inspects runtime prerequisites and returns a
	// human-readable description of each missing one. An empty result
	// means the engine is ready. It must not panic or block for long.
	CheckAvailability(ctx context.Context) []string

	// Synthesize converts text to audio written at outputPath.
	// On success a non-empty file in Format() exists at outputPath before
	// it returns; on failure no partial file is left behind.
	// The implementation must handle timeout protection internally.
	Synthesize(ctx context.Context, text, outputPath string) error
}
