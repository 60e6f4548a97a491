package vectorstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Fingerprint computes a cheap content/version fingerprint of a persisted
// artifact: a hash over the manifest bytes plus the sizes and mtimes of
// the data files. Loading an index is expensive; callers memoize the load
// keyed by this value and recompute it on every acquisition attempt.
//
// Returns ErrIndexNotFound when the artifact directory is absent.
func Fingerprint(dir string) (string, error) {
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrIndexNotFound, dir)
		}
		return "", fmt.Errorf("stat artifact: %w", err)
	}

	h := sha256.New()

	manifestBytes, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return "", fmt.Errorf("%w: manifest: %v", ErrIndexCorrupt, err)
	}
	h.Write(manifestBytes)

	for _, name := range []string{chunksFile, vectorsFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrIndexCorrupt, name, err)
		}
		fmt.Fprintf(h, "%s:%d:%d\n", name, info.Size(), info.ModTime().UnixNano())
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
