// Package scout runs the secondary model pass that extracts character
// names from source text. Responses arrive as JSON of varying hygiene
// (code fences, chatty preambles), so parsing is tolerant and failures
// are retried per chunk with exponential backoff.
package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"time"

	"honyaku/internal/chunker"
	"honyaku/internal/console"
	"honyaku/internal/llm"
	"honyaku/internal/namefilter"
)

// Generator is the model call the scout depends on.
type Generator interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

// Config controls chunking and retry behavior.
type Config struct {
	// ChunkSize is the per-request budget in characters.
	ChunkSize int
	// JSONRetries bounds attempts per chunk when the model refuses or
	// returns unparseable JSON.
	JSONRetries int
	// Delay is the rate-limiting pause before each request.
	Delay time.Duration
	// RetryBackoff is the base for exponential backoff between retries
	// of the same chunk. Defaults to one second.
	RetryBackoff time.Duration
}

// Scout extracts name candidates from text chunks.
type Scout struct {
	gen     Generator
	cfg     Config
	prompt  string
	console *console.Console
}

// New builds a Scout. prompt is the extraction system prompt.
func New(gen Generator, cfg Config, prompt string, con *console.Console) *Scout {
	if con == nil {
		con = console.New()
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Scout{gen: gen, cfg: cfg, prompt: prompt, console: con}
}

// CollectNames splits text into chunks and yields one batch of entries
// per successfully parsed, non-empty chunk. Batches are yielded as they
// complete so the caller can persist votes incrementally; a chunk that
// exhausts its retries is logged and skipped, never fatal. Iteration
// stops early when ctx is canceled.
func (s *Scout) CollectNames(ctx context.Context, text string) iter.Seq[[]namefilter.Entry] {
	return func(yield func([]namefilter.Entry) bool) {
		chunks := chunker.Split(text, s.cfg.ChunkSize)

		for i, chunk := range chunks {
			if ctx.Err() != nil {
				return
			}
			chunkNum := i + 1
			s.console.Info("Name scout chunk %d/%d (%d chars)", chunkNum, len(chunks), len([]rune(chunk)))

			entries, ok := s.scoutChunk(ctx, chunk, chunkNum)
			if !ok {
				s.console.Error("Failed to process chunk %d after %d attempts", chunkNum, s.cfg.JSONRetries)
				continue
			}
			if len(entries) == 0 {
				continue
			}

			s.console.Success("Found %d names in chunk %d", len(entries), chunkNum)
			if !yield(entries) {
				return
			}
		}
	}
}

// scoutChunk runs the retry loop for one chunk.
func (s *Scout) scoutChunk(ctx context.Context, chunk string, chunkNum int) ([]namefilter.Entry, bool) {
	for attempt := 0; attempt < s.cfg.JSONRetries; attempt++ {
		if attempt > 0 {
			if !sleep(ctx, time.Duration(1<<attempt)*s.cfg.RetryBackoff) {
				return nil, false
			}
		}
		if s.cfg.Delay > 0 && !sleep(ctx, s.cfg.Delay) {
			return nil, false
		}

		raw, err := s.gen.Generate(ctx, []llm.Message{
			{Role: "system", Content: s.prompt},
			{Role: "user", Content: chunk},
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, false
			}
			s.console.Warning("API error for chunk %d: %v, retrying...", chunkNum, err)
			continue
		}
		if llm.IsRefusal(raw) {
			s.console.Warning("Model refused to process chunk %d, retrying...", chunkNum)
			continue
		}

		entries, err := ParseResponse(raw)
		if err != nil {
			s.console.Warning("Failed to parse JSON from chunk %d: %v, retrying...", chunkNum, err)
			continue
		}
		return entries, true
	}
	return nil, false
}

// codeFenceRE captures the body of a fully fenced markdown block.
var codeFenceRE = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ParseResponse extracts name entries from a raw model reply. It strips
// a surrounding code fence, then takes the outermost {...} span, so
// prose before or after the JSON does not break parsing. Entries with a
// missing or blank original or english are dropped; an unparseable part
// label degrades to unknown.
func ParseResponse(raw string) ([]namefilter.Entry, error) {
	jsonStr := strings.TrimSpace(raw)
	if strings.HasPrefix(jsonStr, "```") {
		if m := codeFenceRE.FindStringSubmatch(jsonStr); m != nil {
			jsonStr = m[1]
		} else {
			jsonStr = strings.TrimPrefix(jsonStr, "```json")
			jsonStr = strings.TrimPrefix(jsonStr, "```")
			jsonStr = strings.TrimSpace(strings.TrimSuffix(jsonStr, "```"))
		}
	}

	start := strings.Index(jsonStr, "{")
	end := strings.LastIndex(jsonStr, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no valid JSON object found")
	}

	var parsed struct {
		Names []struct {
			Original *string `json:"original"`
			English  *string `json:"english"`
			Part     *string `json:"part"`
		} `json:"names"`
	}
	if err := json.Unmarshal([]byte(jsonStr[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}

	var entries []namefilter.Entry
	for _, n := range parsed.Names {
		if n.Original == nil || n.English == nil {
			continue
		}
		original := strings.TrimSpace(*n.Original)
		english := strings.TrimSpace(*n.English)
		if original == "" || english == "" {
			continue
		}

		part := namefilter.Unknown
		if n.Part != nil {
			part = namefilter.ParsePart(*n.Part)
		}
		entries = append(entries, namefilter.Entry{Original: original, English: english, Part: part})
	}
	return entries, nil
}

// ChapterPayload formats one chapter for scouting, prefixing the body
// with a heading so names in titles are scouted too.
func ChapterPayload(number int, title, content string) string {
	return fmt.Sprintf("### Chapter %d - %s\n%s", number, title, content)
}

// sleep waits for d or until ctx is canceled; it reports whether the
// full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
