package publish

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"briefcast/internal/hash"
)

// scriptPreviewLimit caps the script excerpt stored in episode metadata.
const scriptPreviewLimit = 500

// wordsPerMinute matches the speaking rate used for script sizing, so the
// estimated duration in metadata lines up with the generated script.
const wordsPerMinute = 150

// EpisodeMeta is the sidecar metadata written next to each published
// episode.
type EpisodeMeta struct {
	Title           string    `json:"title"`
	FileName        string    `json:"file_name"`
	SizeBytes       int64     `json:"size_bytes"`
	AudioHash       string    `json:"audio_hash"`
	WordCount       int       `json:"word_count"`
	DurationMinutes float64   `json:"estimated_duration_minutes"`
	ScriptPreview   string    `json:"script_preview"`
	PublishedAt     time.Time `json:"published_at"`
}

// LocalStore publishes episodes into a local uploads directory. It is the
// primary distribution target: a failure here fails the run.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Publish copies the audio file into the uploads directory under a
// timestamped, content-addressed name and writes metadata alongside it.
// It returns the destination path and the metadata.
func (l *LocalStore) Publish(audioPath, title, script string) (string, EpisodeMeta, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", EpisodeMeta{}, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	audioHash, err := hash.SumFile(audioPath)
	if err != nil {
		return "", EpisodeMeta{}, fmt.Errorf("failed to hash audio file: %w", err)
	}

	ext := filepath.Ext(audioPath)
	if ext == "" {
		ext = ".mp3"
	}
	name := fmt.Sprintf("podcast_%s_%s%s", time.Now().Format("20060102_150405"), audioHash[:8], ext)
	dest := filepath.Join(l.dir, name)

	size, err := copyFile(audioPath, dest)
	if err != nil {
		return "", EpisodeMeta{}, err
	}

	words := len(strings.Fields(script))
	meta := EpisodeMeta{
		Title:           title,
		FileName:        name,
		SizeBytes:       size,
		AudioHash:       audioHash,
		WordCount:       words,
		DurationMinutes: float64(words) / wordsPerMinute,
		ScriptPreview:   preview(script),
		PublishedAt:     time.Now(),
	}

	metaPath := dest + ".json"
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", EpisodeMeta{}, fmt.Errorf("failed to marshal episode metadata: %w", err)
	}
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return "", EpisodeMeta{}, fmt.Errorf("failed to write episode metadata: %w", err)
	}

	slog.Info("Published episode", "path", dest, "size", size)
	return dest, meta, nil
}

func copyFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create published file: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, in)
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("failed to copy audio file: %w", err)
	}
	return size, nil
}

func preview(script string) string {
	if len(script) <= scriptPreviewLimit {
		return script
	}
	return script[:scriptPreviewLimit] + "..."
}
