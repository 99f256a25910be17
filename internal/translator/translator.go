// Package translator turns source-language text into English through a
// streaming chat model. Content is translated chunk by chunk with a
// sliding conversation history for continuity; failed chunks are marked
// inline rather than aborting a whole chapter.
package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"honyaku/internal/chunker"
	"honyaku/internal/console"
	"honyaku/internal/llm"
)

// Streamer is the model dependency: a streaming chat completion plus
// the model identity used for cache keying.
type Streamer interface {
	GenerateStream(ctx context.Context, messages []llm.Message, onDelta func(string)) (string, error)
	Model() string
}

// Memory is an optional chunk-level translation cache.
type Memory interface {
	Get(ctx context.Context, sourceText, model string) (string, bool, error)
	Save(ctx context.Context, sourceText, model, translatedText string) error
}

// Config controls chunking, retries, and history.
type Config struct {
	// ChunkSize is the per-request budget in characters.
	ChunkSize int
	// Retries bounds attempts per chunk before the failure marker is
	// emitted instead.
	Retries int
	// RetryBackoff is the base for exponential backoff between
	// attempts. Defaults to one second.
	RetryBackoff time.Duration
	// Delay is the rate-limiting pause after each successful request.
	Delay time.Duration
	// HistoryLength is the number of prior user/assistant pairs kept
	// as context for the next chunk.
	HistoryLength int
}

// Progress identifies the position being translated, for display.
type Progress struct {
	Chapter     int
	Chunk       int
	TotalChunks int
}

// Translator translates titles and chapter bodies.
type Translator struct {
	stream        Streamer
	memory        Memory
	cfg           Config
	titlePrompt   string
	contentPrompt string
	console       *console.Console
}

// New builds a Translator. memory may be nil to disable caching.
func New(stream Streamer, memory Memory, cfg Config, titlePrompt, contentPrompt string, con *console.Console) *Translator {
	if con == nil {
		con = console.New()
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Translator{
		stream:        stream,
		memory:        memory,
		cfg:           cfg,
		titlePrompt:   titlePrompt,
		contentPrompt: contentPrompt,
		console:       con,
	}
}

// Translate translates text to English. Titles are sent as a single
// chunk with the title prompt and any failure is returned to the
// caller; content is chunked, translated with history, and chunks that
// exhaust their retries are replaced by a failure marker followed by
// the untranslated source. Empty input translates to the empty string.
func (t *Translator) Translate(ctx context.Context, text string, isTitle bool, progress *Progress) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	if isTitle {
		snippet := []rune(text)
		if len(snippet) > 30 {
			snippet = append(snippet[:30], []rune("...")...)
		}
		t.console.Info("Translating title 「%s」", string(snippet))

		history := []llm.Message{{Role: "system", Content: t.titlePrompt}}
		return t.translateChunk(ctx, text, &history, nil)
	}

	chunks := chunker.Split(text, t.cfg.ChunkSize)
	history := []llm.Message{{Role: "system", Content: t.contentPrompt}}
	results := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		var prog *Progress
		if progress != nil {
			prog = &Progress{Chapter: progress.Chapter, Chunk: i + 1, TotalChunks: len(chunks)}
		}

		translated, err := t.translateWithRetries(ctx, chunk, &history, prog)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			t.console.Error("Translation failed after all retries: %v", err)
			translated = fmt.Sprintf("[TRANSLATION FAILED]\n%s", chunk)
		}
		results = append(results, translated)
	}

	return strings.Join(results, "\n\n"), nil
}

func (t *Translator) translateWithRetries(ctx context.Context, chunk string, history *[]llm.Message, prog *Progress) (string, error) {
	var lastErr error
	for attempt := 0; attempt < t.cfg.Retries; attempt++ {
		translated, err := t.translateChunk(ctx, chunk, history, prog)
		if err == nil {
			return translated, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", err
		}

		if attempt+1 < t.cfg.Retries {
			delay := time.Duration(1<<(attempt+1)) * t.cfg.RetryBackoff
			t.console.Warning("Translation failed, retrying in %v (attempt %d/%d)",
				delay, attempt+2, t.cfg.Retries)
			if !sleep(ctx, delay) {
				return "", err
			}
		}
	}
	return "", lastErr
}

// translateChunk runs one model call (or cache hit) and, on success,
// folds the exchange into the sliding history.
func (t *Translator) translateChunk(ctx context.Context, chunk string, history *[]llm.Message, prog *Progress) (string, error) {
	if t.memory != nil {
		if cached, ok, err := t.memory.Get(ctx, chunk, t.stream.Model()); err == nil && ok {
			t.pushHistory(history, chunk, cached)
			return cached, nil
		}
	}

	messages := append(append([]llm.Message{}, *history...),
		llm.Message{Role: "user", Content: chunk})

	var (
		received   strings.Builder
		start      = time.Now()
		lastUpdate = time.Now()
	)
	full, err := t.stream.GenerateStream(ctx, messages, func(delta string) {
		received.WriteString(delta)
		if time.Since(lastUpdate) >= time.Second {
			t.displayProgress(received.String(), time.Since(start), prog)
			lastUpdate = time.Now()
		}
	})
	t.console.ClearLine()
	if err != nil {
		return "", err
	}

	trimmed := strings.TrimSpace(full)
	if trimmed == "" {
		return "", fmt.Errorf("empty response")
	}
	if llm.IsRefusal(trimmed) {
		return "", fmt.Errorf("model refused to translate")
	}

	t.pushHistory(history, chunk, trimmed)

	if t.memory != nil {
		if err := t.memory.Save(ctx, chunk, t.stream.Model(), trimmed); err != nil {
			t.console.Warning("Failed to cache translation: %v", err)
		}
	}

	if t.cfg.Delay > 0 && !sleep(ctx, t.cfg.Delay) {
		return trimmed, nil
	}
	return trimmed, nil
}

// pushHistory appends one user/assistant pair and trims the history to
// the system message plus the most recent HistoryLength pairs.
func (t *Translator) pushHistory(history *[]llm.Message, chunk, translated string) {
	*history = append(*history,
		llm.Message{Role: "user", Content: chunk},
		llm.Message{Role: "assistant", Content: translated})

	maxMessages := 1 + t.cfg.HistoryLength*2
	if len(*history) > maxMessages {
		excess := len(*history) - maxMessages
		*history = append((*history)[:1], (*history)[1+excess:]...)
	}
}

// displayProgress redraws the streaming progress line: received size,
// rate, and a one-line tail preview.
func (t *Translator) displayProgress(response string, elapsed time.Duration, prog *Progress) {
	runes := []rune(response)
	speed := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		speed = float64(len(runes)) / secs
	}

	preview := runes
	if len(preview) > 50 {
		preview = preview[len(preview)-50:]
	}
	tail := strings.ReplaceAll(string(preview), "\n", " ")

	prefix := ""
	if prog != nil {
		prefix = t.console.ChunkInfo(prog.Chapter, prog.Chunk, prog.TotalChunks) + " "
	}
	t.console.ProgressUpdate("%sProgress: %s chars at %s. %s",
		prefix, t.console.Count(len(runes)), t.console.Speed(speed),
		t.console.Muted(tail+"..."))
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
