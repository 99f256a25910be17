package chunker_test

import (
	"strings"
	"testing"

	"honyaku/internal/chunker"
)

func TestSplit_ShortText(t *testing.T) {
	text := "Hello\nWorld"
	chunks := chunker.Split(text, 100)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("expected %q, got %q", text, chunks[0])
	}
}

func TestSplit_LineBoundary(t *testing.T) {
	chunks := chunker.Split("Hello\nWorld", 5)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "Hello" || chunks[1] != "World" {
		t.Errorf("expected [Hello World], got %v", chunks)
	}
}

func TestSplit_EmptyText(t *testing.T) {
	if chunks := chunker.Split("", 100); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty input, got %v", chunks)
	}
}

func TestSplit_LosslessOnLines(t *testing.T) {
	text := "Line 1\nLine 2\nLine 3\nLine 4"
	chunks := chunker.Split(text, 15)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if rejoined := strings.Join(chunks, "\n"); rejoined != text {
		t.Errorf("round trip failed: %q != %q", rejoined, text)
	}
}

func TestSplit_PreservesEmptyLines(t *testing.T) {
	text := "Paragraph one.\n\nParagraph two."
	chunks := chunker.Split(text, 100)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("blank line lost: %q", chunks[0])
	}
}

func TestSplit_LongLineFallsBackToWords(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	chunks := chunker.Split(text, 12)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 12 {
			t.Errorf("chunk %d exceeds budget (%d runes): %q", i, n, c)
		}
	}
	if rejoined := strings.Join(chunks, " "); rejoined != text {
		t.Errorf("word round trip failed: %q", rejoined)
	}
}

func TestSplit_OversizedWordEmittedWhole(t *testing.T) {
	word := strings.Repeat("x", 30)
	text := "short " + word + " tail"
	chunks := chunker.Split(text, 10)

	found := false
	for _, c := range chunks {
		if c == word {
			found = true
		} else if len([]rune(c)) > 10 {
			t.Errorf("unexpected over-budget chunk: %q", c)
		}
	}
	if !found {
		t.Errorf("long word should be its own chunk: %v", chunks)
	}
}

func TestSplit_JapaneseRuneBudget(t *testing.T) {
	// Budget is counted in runes, not bytes.
	text := "吾輩は猫である\n名前はまだ無い"
	chunks := chunker.Split(text, 7)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "吾輩は猫である" || chunks[1] != "名前はまだ無い" {
		t.Errorf("unexpected chunks: %v", chunks)
	}
}

func TestSplit_NoEmptyChunks(t *testing.T) {
	for _, text := range []string{"\n", "a\n\nb", "  ", "one\n"} {
		for _, c := range chunker.Split(text, 3) {
			if c == "" {
				t.Errorf("empty chunk produced for input %q", text)
			}
		}
	}
}
