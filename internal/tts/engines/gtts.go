package engines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"golang.org/x/time/rate"
)

// GTTSName is the persisted name of the Google Translate engine.
const GTTSName = "gTTS"

// maxChunkRunes is the longest text the translate endpoint accepts per request.
const maxChunkRunes = 100

// GTTSEngine implements tts.Backend using the Google Translate TTS
// endpoint, the same service the gTTS tool talks to. Long text is split
// into chunks; the MP3 responses are concatenated frame-wise. When a
// command is configured, gtts-cli is run instead.
type GTTSEngine struct {
	language string
	tld      string
	baseURL  string
	timeout  time.Duration
	client   *http.Client

	cli    *Command
	cliErr error

	// Rate limiting to avoid being blocked by Google
	limiter *rate.Limiter
}

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// Language code (e.g., "en", "es", "fr") - defaults to "en"
	Language string

	// TLD selects the Google host, e.g. "com" or "co.uk" - defaults to "com"
	TLD string

	// BaseURL overrides the endpoint entirely (used in tests)
	BaseURL string

	// Timeout bounds a whole synthesis - defaults to RemoteTimeout
	Timeout time.Duration

	// Rate limit requests per minute to avoid being blocked (defaults to 120)
	RequestsPerMinute int

	// HTTPClient is optional
	HTTPClient *http.Client

	// Command runs gtts-cli instead of calling the endpoint directly,
	// e.g. "gtts-cli" or "gtts-cli --slow". Empty uses HTTP.
	Command string
}

// NewGTTSEngine creates a new gTTS engine.
func NewGTTSEngine(config GTTSConfig) *GTTSEngine {
	if config.Language == "" {
		config.Language = "en"
	}
	if config.TLD == "" {
		config.TLD = "com"
	}
	if config.BaseURL == "" {
		config.BaseURL = fmt.Sprintf("https://translate.google.%s/translate_tts", config.TLD)
	}
	if config.Timeout <= 0 {
		config.Timeout = RemoteTimeout
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 120
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	e := &GTTSEngine{
		language: config.Language,
		tld:      config.TLD,
		baseURL:  config.BaseURL,
		timeout:  config.Timeout,
		client:   config.HTTPClient,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 10),
	}
	if strings.TrimSpace(config.Command) != "" {
		cmd, err := ParseCommand(config.Command, "gtts-cli")
		e.cli, e.cliErr = &cmd, err
	}
	return e
}

// Name implements tts.Backend.
func (e *GTTSEngine) Name() string { return GTTSName }

// Format implements tts.Backend.
func (e *GTTSEngine) Format() tts.Format { return tts.FormatMP3 }

// CheckAvailability implements tts.Backend. Network reachability is not
// probed; a failed request surfaces as a synthesis failure instead.
func (e *GTTSEngine) CheckAvailability(context.Context) []string {
	var missing []string
	if e.cliErr != nil {
		missing = append(missing, fmt.Sprintf("valid gtts-cli command (%v)", e.cliErr))
	} else if e.cli != nil {
		missing = append(missing, missingExecutable(*e.cli, "gtts-cli (pip install gTTS)")...)
	}
	u, err := url.Parse(e.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		missing = append(missing, fmt.Sprintf("valid gTTS endpoint URL (got %q)", e.baseURL))
	}
	if e.language == "" {
		missing = append(missing, "gTTS language code")
	}
	return missing
}

// Synthesize implements tts.Backend.
func (e *GTTSEngine) Synthesize(ctx context.Context, text, outputPath string) error {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return tts.NewError(tts.ErrorCodeEmptyInput, "text cannot be empty", nil)
	}

	if e.cliErr != nil {
		return tts.NewError(tts.ErrorCodeEngineUnavailable, "invalid gtts-cli command", e.cliErr)
	}
	if e.cli != nil {
		return e.synthesizeCLI(ctx, text, outputPath)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return writeAtomic(outputPath, func(tmp string) error {
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return tts.NewError(tts.ErrorCodeSynthesisFailure, "unable to open temp file", err)
		}
		defer f.Close() //nolint:errcheck

		for i, chunk := range chunks {
			if err := e.limiter.Wait(ctx); err != nil {
				return remoteError(ctx, GTTSName, e.timeout, err)
			}
			if err := e.fetch(ctx, f, chunk, i, len(chunks)); err != nil {
				return err
			}
		}
		log.Debug("gTTS synthesis complete", "chunks", len(chunks), "path", outputPath)
		return f.Close()
	})
}

// synthesizeCLI runs gtts-cli, which does its own chunking. The text
// is passed on stdin ("-") so it is never taken for an option.
func (e *GTTSEngine) synthesizeCLI(ctx context.Context, text, outputPath string) error {
	return writeAtomic(outputPath, func(tmp string) error {
		return runCommand(ctx, runRequest{
			engine:  GTTSName,
			cmd:     *e.cli,
			args:    []string{"--lang", e.language, "--tld", e.tld, "--output", tmp, "-"},
			stdin:   text,
			timeout: e.timeout,
		})
	})
}

// fetch downloads one chunk and appends it to w.
func (e *GTTSEngine) fetch(ctx context.Context, w io.Writer, chunk string, idx, total int) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", chunk)
	q.Set("tl", e.language)
	q.Set("client", "tw-ob")
	q.Set("ttsspeed", "1")
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(len([]rune(chunk))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return tts.NewError(tts.ErrorCodeSynthesisFailure, "unable to build gTTS request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (readaloud)")

	resp, err := e.client.Do(req)
	if err != nil {
		return remoteError(ctx, GTTSName, e.timeout, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return tts.NewError(tts.ErrorCodeSynthesisFailure,
			fmt.Sprintf("gTTS returned HTTP %d", resp.StatusCode),
			errors.New(strings.TrimSpace(string(body))))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return remoteError(ctx, GTTSName, e.timeout, err)
	}
	if n == 0 {
		return tts.NewError(tts.ErrorCodeSynthesisFailure, "gTTS returned no audio", nil)
	}
	return nil
}

// splitText breaks text into chunks of at most max runes, preferring
// sentence punctuation, then whitespace, as split points.
func splitText(text string, max int) []string {
	text = strings.Join(strings.Fields(text), " ")
	var chunks []string
	for text != "" {
		runes := []rune(text)
		if len(runes) <= max {
			chunks = append(chunks, text)
			break
		}

		cut := -1
		for i := max; i > 0; i-- {
			if strings.ContainsRune(".!?;:,", runes[i-1]) {
				cut = i
				break
			}
		}
		if cut < max/2 {
			for i := max; i > 0; i-- {
				if unicode.IsSpace(runes[i]) {
					cut = i
					break
				}
			}
		}
		if cut <= 0 {
			cut = max
		}

		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(string(runes[cut:]))
	}
	return chunks
}

var _ tts.Backend = (*GTTSEngine)(nil)
