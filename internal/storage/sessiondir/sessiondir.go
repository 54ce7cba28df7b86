// Package sessiondir allocates the per-session output directory and writes
// captures into it without ever replacing an existing file.
package sessiondir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrExists is returned when the session directory or a capture file is
// already present.
var ErrExists = errors.New("already exists")

// NameLayout formats the session start as in pics_2026-10-15T21:04.
const NameLayout = "2006-01-02T15:04"

// Handle is the allocated output location of one session.
type Handle struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Name derives the directory name for a session started at t.
func Name(prefix string, t time.Time) string {
	return prefix + t.Format(NameLayout)
}

// Allocate creates root (if needed) and a fresh session directory inside it.
// It fails if the session directory already exists.
func Allocate(root, prefix string, now time.Time) (*Handle, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	path := filepath.Join(root, Name(prefix, now))
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("session directory %s: %w", path, ErrExists)
		}
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Handle{Path: path, CreatedAt: now}, nil
}

// Write stores data as name inside the session directory. Existing files
// are never overwritten.
func (h *Handle) Write(name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid capture file name %q", name)
	}
	path := filepath.Join(h.Path, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("capture %s: %w", path, ErrExists)
		}
		return "", fmt.Errorf("create capture: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return "", errors.Join(fmt.Errorf("write capture: %w", err), f.Close())
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close capture: %w", err)
	}
	return path, nil
}
