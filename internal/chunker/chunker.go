// Package chunker splits document text into overlapping segments.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentenceRe = regexp.MustCompile(`(?s)[^.!?\n]+[.!?\n]+|[^.!?\n]+$`)

// Chunker splits text into sentence-aligned chunks with character overlap.
//
// Chunks are packed greedily from whole sentences up to Size characters.
// A chunk may overrun Size by at most one sentence; sentences longer than
// Size on their own are hard-cut at Size. The trailing Overlap characters
// of each chunk are carried into the next one so context is not lost at
// boundaries. Splitting is deterministic: identical input and parameters
// always yield identical segments.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Non-positive size falls back to 500 and a
// negative or oversized overlap is clamped.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Size returns the configured chunk size in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Split splits text into chunk segments. Empty or whitespace-only input
// yields no segments.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := splitSentences(text, c.size)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	seedLen := 0 // overlap seed length; a chunk must hold more than its seed

	for _, sentence := range sentences {
		if current.Len() > seedLen && current.Len()+1+len(sentence) > c.size {
			chunk := strings.TrimSpace(current.String())
			chunks = append(chunks, chunk)
			current.Reset()
			seedLen = 0
			// Seed the next chunk with trailing context from this one.
			if c.overlap > 0 {
				current.WriteString(tail(chunk, c.overlap))
				seedLen = current.Len()
			}
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > seedLen {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks
}

// splitSentences extracts sentence units, hard-cutting any single
// sentence longer than maxLen so no unit exceeds the chunk budget.
func splitSentences(text string, maxLen int) []string {
	raw := sentenceRe.FindAllString(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		for len(s) > maxLen {
			cut := cutBefore(s, maxLen)
			sentences = append(sentences, s[:cut])
			s = s[cut:]
		}
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// cutBefore returns the largest rune boundary in s not past n, so hard
// cuts never split a multibyte rune. When the first rune alone exceeds
// n it is kept whole rather than mangled.
func cutBefore(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return n
}

// tail returns the trailing n bytes of s, advanced to the next rune
// boundary so the overlap seed is always valid UTF-8. Returns all of s
// when shorter.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
