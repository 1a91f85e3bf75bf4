package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"briefcast/internal/types"
)

// FileStore keeps one JSON file per fingerprint under a cache directory.
// Entry age is the file's mtime, so entries written by a previous process
// expire on the same clock.
type FileStore struct {
	dir       string
	staleness time.Duration
}

func NewFileStore(dir string, staleness time.Duration) *FileStore {
	if staleness == 0 {
		staleness = time.Hour
	}
	return &FileStore{dir: dir, staleness: staleness}
}

func (s *FileStore) path(fingerprint string) string {
	return filepath.Join(s.dir, fmt.Sprintf("newsletters_%s.json", fingerprint))
}

func (s *FileStore) Get(ctx context.Context, fingerprint string) ([]types.Newsletter, bool) {
	path := s.path(fingerprint)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	if time.Since(info.ModTime()) >= s.staleness {
		slog.Debug("Cache entry expired", "fingerprint", fingerprint, "age", time.Since(info.ModTime()))
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Failed to read cache entry, treating as miss", "fingerprint", fingerprint, "error", err)
		return nil, false
	}

	var items []types.Newsletter
	if err := json.Unmarshal(data, &items); err != nil {
		slog.Warn("Corrupt cache entry, treating as miss", "fingerprint", fingerprint, "error", err)
		return nil, false
	}

	slog.Info("Using cached newsletters", "fingerprint", fingerprint, "count", len(items))
	return items, true
}

func (s *FileStore) Put(ctx context.Context, fingerprint string, items []types.Newsletter) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := os.WriteFile(s.path(fingerprint), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	slog.Debug("Cached newsletters", "fingerprint", fingerprint, "count", len(items))
	return nil
}
