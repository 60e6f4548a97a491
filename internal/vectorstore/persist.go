package vectorstore

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	manifestFile = "manifest.json"
	chunksFile   = "chunks.json"
	vectorsFile  = "vectors.gob"

	// artifactVersion guards against loading artifacts written by an
	// incompatible layout.
	artifactVersion = 1
)

// manifest describes a persisted index artifact. It is small enough to
// read on every cache acquisition.
type manifest struct {
	Version    int       `json:"version"`
	Dimension  int       `json:"dimension"`
	Metric     Metric    `json:"metric"`
	Model      string    `json:"model"`
	ChunkCount int       `json:"chunk_count"`
	BuiltAt    time.Time `json:"built_at"`
}

// Save persists the index as a self-contained directory artifact:
// manifest.json (dimension, metric, model, count), chunks.json (per-chunk
// text and metadata keyed by stable id) and vectors.gob (raw vectors in
// chunk order).
//
// The artifact is written to a temporary sibling directory and renamed
// into place, so from the caller's perspective the persist either fully
// succeeds or the prior artifact remains intact.
func (idx *Index) Save(dir string) error {
	chunks, vectors := idx.snapshot()

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	tmp, err := os.MkdirTemp(parent, filepath.Base(dir)+".tmp-")
	if err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	m := manifest{
		Version:    artifactVersion,
		Dimension:  idx.dimension,
		Metric:     idx.metric,
		Model:      idx.model,
		ChunkCount: len(chunks),
		BuiltAt:    time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(tmp, manifestFile), m); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := writeJSON(filepath.Join(tmp, chunksFile), chunks); err != nil {
		return fmt.Errorf("writing chunks: %w", err)
	}
	if err := writeGob(filepath.Join(tmp, vectorsFile), vectors); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}

	// Swap: move any prior artifact aside, rename the new one in, then
	// drop the old one. Queries against a loaded index are unaffected;
	// the fingerprint cache picks up the new artifact on next acquisition.
	old := dir + ".old"
	if _, err := os.Stat(dir); err == nil {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("clearing stale artifact: %w", err)
		}
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("moving prior artifact aside: %w", err)
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		// Restore the prior artifact; the build failed, not the index.
		if _, statErr := os.Stat(old); statErr == nil {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("activating artifact: %w", err)
	}
	_ = os.RemoveAll(old)

	return nil
}

// LoadIndex restores a persisted index from dir. It does not need the
// original document source.
//
// Returns ErrIndexNotFound when the artifact is absent and ErrIndexCorrupt
// when it is structurally invalid (unreadable files, count or dimension
// disagreement between manifest, chunks and vectors).
func LoadIndex(dir string) (*Index, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
		}
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	var m manifest
	if err := readJSON(filepath.Join(dir, manifestFile), &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrIndexCorrupt, err)
	}
	if m.Version != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported artifact version %d", ErrIndexCorrupt, m.Version)
	}
	if _, err := ParseMetric(string(m.Metric)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}

	var chunks []Chunk
	if err := readJSON(filepath.Join(dir, chunksFile), &chunks); err != nil {
		return nil, fmt.Errorf("%w: chunks: %v", ErrIndexCorrupt, err)
	}

	var vectors [][]float32
	if err := readGob(filepath.Join(dir, vectorsFile), &vectors); err != nil {
		return nil, fmt.Errorf("%w: vectors: %v", ErrIndexCorrupt, err)
	}

	if len(chunks) != m.ChunkCount || len(vectors) != m.ChunkCount {
		return nil, fmt.Errorf("%w: manifest says %d chunks, found %d chunks and %d vectors",
			ErrIndexCorrupt, m.ChunkCount, len(chunks), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != m.Dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, manifest says %d",
				ErrIndexCorrupt, i, len(vec), m.Dimension)
		}
	}

	idx, err := NewIndex(m.Dimension, m.Metric, m.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	idx.chunks = chunks
	idx.vectors = vectors
	return idx, nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Sync()
}

func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

func writeGob(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		return err
	}
	return f.Sync()
}

func readGob(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
