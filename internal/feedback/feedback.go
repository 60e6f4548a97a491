// Package feedback persists user feedback on answers as JSONL records.
package feedback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// previewLen bounds the chunk text preview stored per record.
const previewLen = 300

// DocRef is one retrieved document reference attached to a record.
type DocRef struct {
	ChunkID string  `json:"chunk_id"`
	Score   float32 `json:"score"`
	Source  string  `json:"source,omitempty"`
	Preview string  `json:"preview"`
}

// Record is one feedback entry.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Helpful   bool      `json:"helpful"`
	Comment   string    `json:"comment,omitempty"`
	Model     string    `json:"model,omitempty"`
	Docs      []DocRef  `json:"docs"`
}

// DocsFromCandidates produces the {score, source} document list from a
// scored candidate sequence, with a bounded text preview.
func DocsFromCandidates(candidates []vectorstore.Candidate) []DocRef {
	docs := make([]DocRef, 0, len(candidates))
	for _, c := range candidates {
		preview := c.Chunk.Text
		if len(preview) > previewLen {
			// Back off to a rune boundary so the preview stays valid UTF-8.
			cut := previewLen
			for cut > 0 && !utf8.RuneStart(preview[cut]) {
				cut--
			}
			preview = preview[:cut]
		}
		docs = append(docs, DocRef{
			ChunkID: c.Chunk.ID,
			Score:   c.Score,
			Source:  c.Chunk.Metadata["source"],
			Preview: preview,
		})
	}
	return docs
}

// Logger appends feedback records to a JSONL file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a feedback logger writing to path. The parent
// directory is created on first write.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Log appends one record. A zero ID or timestamp is filled in.
func (l *Logger) Log(record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling feedback record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating feedback directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening feedback file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing feedback record: %w", err)
	}
	return nil
}

// ReadLast returns the last n records, oldest first. A missing file
// yields an empty result.
func (l *Logger) ReadLast(n int) ([]Record, error) {
	if n <= 0 {
		n = 10
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening feedback file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading feedback file: %w", err)
	}

	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("parsing feedback record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}
