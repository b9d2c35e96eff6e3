// SPDX-License-Identifier: MIT

package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/perigee-io/eofetch/internal/orbit"
)

// FileCache stores one newline-delimited filename list per orbit kind
// under a cache directory. Writes are atomic and durable via renameio, so
// a crashed refresh never leaves a truncated list behind. A FileCache
// must have a single writer per orbit kind.
type FileCache struct {
	dir string
}

// NewFileCache returns a cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &FileCache{dir: dir}, nil
}

// DefaultCacheDir resolves the per-user cache directory, honouring
// XDG_CACHE_HOME and falling back to ~/.cache.
func DefaultCacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "eofetch"), nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

func (c *FileCache) path(kind orbit.Kind) string {
	return filepath.Join(c.dir, string(kind)+"_filenames.txt")
}

// Read returns the cached filename list for kind, with ok=false when no
// entry exists.
func (c *FileCache) Read(kind orbit.Kind) ([]string, bool, error) {
	data, err := os.ReadFile(c.path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read filename cache: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, true, nil
}

// Write atomically replaces the filename list for kind.
func (c *FileCache) Write(kind orbit.Kind, names []string) error {
	pending, err := renameio.NewPendingFile(c.path(kind))
	if err != nil {
		return fmt.Errorf("create pending cache file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	if _, err := pending.WriteString(sb.String()); err != nil {
		return fmt.Errorf("write filename cache: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace filename cache: %w", err)
	}
	return nil
}

// Clear removes the cache entry for kind. Missing entries are not an error.
func (c *FileCache) Clear(kind orbit.Kind) error {
	if err := os.Remove(c.path(kind)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear filename cache: %w", err)
	}
	return nil
}
