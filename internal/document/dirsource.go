package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirSource loads documents from plain-text files in a directory.
type DirSource struct {
	dir        string
	extensions map[string]bool
}

// NewDirSource creates a Source reading .txt and .md files from dir.
// Other file types are skipped; the surrounding upload/conversion layer
// is responsible for producing plain text.
func NewDirSource(dir string) *DirSource {
	return &DirSource{
		dir: dir,
		extensions: map[string]bool{
			".txt": true,
			".md":  true,
		},
	}
}

// Load reads all matching files under the directory (non-recursive).
// Returns ErrSourceNotFound when the directory does not exist.
func (s *DirSource) Load(ctx context.Context) ([]Document, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, s.dir)
		}
		return nil, fmt.Errorf("stat source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSourceNotFound, s.dir)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !s.extensions[ext] {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		docs = append(docs, Document{
			ID:   hashID(path),
			Name: entry.Name(),
			Path: path,
			Text: string(data),
			Metadata: map[string]string{
				"source": path,
			},
		})
	}

	return docs, nil
}
