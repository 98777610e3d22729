// Package storage persists generated images. One file per job id, written
// once. Workers produce into a scratch path first; Commit renames it into
// the served directory, so a half-written image is never visible at its
// public URL.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// URLPrefix is the path the HTTP layer serves Dir under.
const URLPrefix = "/generated"

// ContentStore is a directory-backed blob sink keyed by job id.
type ContentStore struct {
	dir string
}

// NewContentStore ensures the target directory exists.
func NewContentStore(dir string) (*ContentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	return &ContentStore{dir: dir}, nil
}

// Dir returns the directory the HTTP layer should serve at URLPrefix.
func (s *ContentStore) Dir() string {
	return s.dir
}

// ScratchPath returns where a worker should write its output for the job.
// The scratch file lives in the same directory so Commit's rename stays on
// one filesystem.
func (s *ContentStore) ScratchPath(jobID string) string {
	return filepath.Join(s.dir, fmt.Sprintf(".tmp_%s.png", jobID))
}

// Commit publishes the scratch file under the job's final name and returns
// the URL it is served at.
func (s *ContentStore) Commit(jobID string) (string, error) {
	final := filepath.Join(s.dir, fileName(jobID))
	if err := os.Rename(s.ScratchPath(jobID), final); err != nil {
		return "", fmt.Errorf("publish image for job %s: %w", jobID, err)
	}
	return URLPrefix + "/" + fileName(jobID), nil
}

// Discard removes a job's scratch file if present. Safe to call when the
// worker never produced one.
func (s *ContentStore) Discard(jobID string) {
	_ = os.Remove(s.ScratchPath(jobID))
}

func fileName(jobID string) string {
	return fmt.Sprintf("img_%s.png", jobID)
}
