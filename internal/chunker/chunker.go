// Package chunker splits large texts into bounded segments for the
// translation and name-scout pipelines while preserving line and word
// integrity. The split is lossless: joining the chunks back with the
// separators used to split them reproduces the input exactly.
package chunker

import "strings"

// Split splits text into pieces of at most maxChars runes each, in two
// phases:
//
//  1. Lines are accumulated greedily into chunks joined by "\n". A line
//     that would push the current chunk over maxChars closes the chunk
//     and starts a new one.
//  2. Any chunk still over maxChars (a single long line) is re-split on
//     whitespace with the same greedy rule, joined by a single space.
//
// A single word longer than maxChars is emitted whole as its own chunk;
// that is the only case where a chunk exceeds the budget. Empty input
// yields no chunks.
func Split(text string, maxChars int) []string {
	if text == "" {
		return nil
	}

	var chunks []string
	for _, chunk := range accumulate(strings.Split(text, "\n"), "\n", maxChars) {
		if runeLen(chunk) <= maxChars {
			chunks = append(chunks, chunk)
			continue
		}
		chunks = append(chunks, accumulate(strings.Fields(chunk), " ", maxChars)...)
	}
	return chunks
}

// accumulate greedily packs parts into chunks joined by sep, each chunk
// at most maxChars runes unless a single part alone exceeds the budget.
func accumulate(parts []string, sep string, maxChars int) []string {
	var (
		chunks  []string
		current []string
		size    int
	)

	for _, part := range parts {
		partSize := runeLen(part)
		if len(current) > 0 {
			partSize += runeLen(sep)
		}

		if size+partSize > maxChars && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, sep))
			current = []string{part}
			size = runeLen(part)
		} else {
			current = append(current, part)
			size += partSize
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, sep))
	}
	return chunks
}

func runeLen(s string) int {
	return len([]rune(s))
}
