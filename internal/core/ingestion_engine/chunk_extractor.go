package ingestion_engine

import (
	"strings"
	"unicode"

	"github.com/markdave123-py/bostadsdata/internal/core"
)

// SplitSentences splits text into sentence-sized segments in original order.
// A segment ends at a run of '.', '!' or '?' followed by whitespace or the end
// of the text, or at a newline. Whitespace-only segments are dropped, so empty
// text yields no segments.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0

	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			emit(i + 1)
			continue
		}
		if !isTerminator(r) {
			continue
		}
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if j+1 == len(runes) || unicode.IsSpace(runes[j+1]) {
			emit(j + 1)
		}
		i = j
	}
	emit(len(runes))
	return out
}

// ChunkText splits text into positioned chunks.
func ChunkText(text string) []core.Chunk {
	sentences := SplitSentences(text)
	chunks := make([]core.Chunk, len(sentences))
	for i, s := range sentences {
		chunks[i] = core.Chunk{Position: i, Text: s, TokenCount: approxTokens(s)}
	}
	return chunks
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
