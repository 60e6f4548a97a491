// Package document defines the document model and sources that supply
// documents for indexing.
package document

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
)

// ErrSourceNotFound is returned when the document source does not exist.
var ErrSourceNotFound = errors.New("document source not found")

// Document is a raw source unit. Documents are immutable once read.
type Document struct {
	// ID uniquely identifies the document within its source.
	ID string

	// Name is a human-readable name (usually the file basename).
	Name string

	// Path is the origin path within the source.
	Path string

	// Text is the full document text.
	Text string

	// Metadata carries arbitrary key-value pairs propagated to chunks.
	Metadata map[string]string
}

// Source supplies an enumerable set of documents from arbitrary storage.
type Source interface {
	// Load returns all documents from the source.
	// Returns ErrSourceNotFound when the backing storage is absent.
	Load(ctx context.Context) ([]Document, error)
}

// hashID derives a stable short identifier from a source path.
func hashID(path string) string {
	h := sha1.Sum([]byte(path))
	return hex.EncodeToString(h[:8])
}
