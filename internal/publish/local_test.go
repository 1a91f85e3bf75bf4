package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.mp3")
	if err := os.WriteFile(path, []byte("MP3DATA"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestPublishCopiesAudioAndWritesMetadata(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	script := strings.Repeat("word ", 300)

	dest, meta, err := store.Publish(writeAudioFixture(t), "Morning Briefing", script)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("published file unreadable: %v", err)
	}
	if string(data) != "MP3DATA" {
		t.Errorf("published content = %q", data)
	}

	name := filepath.Base(dest)
	if !strings.HasPrefix(name, "podcast_") || !strings.HasSuffix(name, ".mp3") {
		t.Errorf("unexpected file name: %q", name)
	}

	if meta.Title != "Morning Briefing" {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.WordCount != 300 {
		t.Errorf("word count = %d, want 300", meta.WordCount)
	}
	if meta.DurationMinutes != 2 {
		t.Errorf("duration = %g, want 2 (300 words at 150 wpm)", meta.DurationMinutes)
	}
	if meta.SizeBytes != int64(len("MP3DATA")) {
		t.Errorf("size = %d", meta.SizeBytes)
	}
	if len(meta.AudioHash) != 64 {
		t.Errorf("hash length = %d, want sha256 hex", len(meta.AudioHash))
	}
	if !strings.Contains(name, meta.AudioHash[:8]) {
		t.Errorf("file name %q does not embed hash prefix %q", name, meta.AudioHash[:8])
	}

	metaPath := dest + ".json"
	if _, err := os.Stat(metaPath); err != nil {
		t.Errorf("metadata sidecar missing: %v", err)
	}
}

func TestPublishScriptPreviewTruncated(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	longScript := strings.Repeat("a", scriptPreviewLimit+100)

	_, meta, err := store.Publish(writeAudioFixture(t), "T", longScript)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(meta.ScriptPreview) > scriptPreviewLimit+3 {
		t.Errorf("preview too long: %d chars", len(meta.ScriptPreview))
	}
	if !strings.HasSuffix(meta.ScriptPreview, "...") {
		t.Error("truncated preview should end with ellipsis")
	}
}

func TestPublishMissingAudio(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	if _, _, err := store.Publish(filepath.Join(t.TempDir(), "missing.mp3"), "T", "s"); err == nil {
		t.Error("expected error for missing audio file")
	}
}
