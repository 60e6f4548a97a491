// Package answer assembles retrieved context and generates grounded answers.
package answer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// Entry is one labeled chunk selected for generation.
type Entry struct {
	// Label is the 1-based display index.
	Label int

	// Source is the human-readable source name, empty when unknown.
	Source string

	// Text is the chunk content.
	Text string

	// Score is the final (post-rerank) relevance score.
	Score float32
}

// Bundle is the query-scoped ordered context passed to generation.
type Bundle struct {
	Entries []Entry

	// Text is the concatenated labeled context string.
	Text string
}

// Empty reports whether the bundle holds no grounding evidence. Callers
// must not invoke remote generation on an empty bundle.
func (b Bundle) Empty() bool {
	return len(b.Entries) == 0
}

// Assemble builds the generation context from rank-ordered candidates.
// Candidates whose trimmed text is empty are dropped; survivors get a
// 1-based label with the basename of their source path appended when
// source metadata exists. Blocks are joined in input order:
//
//	[Document 1 (manual.txt)]:
//	<text>
//
//	[Document 2 (manual.txt)]:
//	<text>
func Assemble(candidates []vectorstore.Candidate) Bundle {
	var bundle Bundle
	var blocks []string

	for _, c := range candidates {
		text := strings.TrimSpace(c.Chunk.Text)
		if text == "" {
			continue
		}

		entry := Entry{
			Label:  len(bundle.Entries) + 1,
			Source: sourceName(c.Chunk),
			Text:   text,
			Score:  c.Score,
		}
		bundle.Entries = append(bundle.Entries, entry)

		label := fmt.Sprintf("[Document %d]", entry.Label)
		if entry.Source != "" {
			label = fmt.Sprintf("[Document %d (%s)]", entry.Label, entry.Source)
		}
		blocks = append(blocks, label+":\n"+text)
	}

	bundle.Text = strings.Join(blocks, "\n\n")
	return bundle
}

// sourceName derives a human-readable source label for a chunk: the
// basename of its source path when present, falling back to the parent
// document name.
func sourceName(chunk vectorstore.Chunk) string {
	if src, ok := chunk.Metadata["source"]; ok && src != "" {
		return filepath.Base(src)
	}
	return chunk.DocName
}
