package feed

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"briefcast/internal/storage"
)

type fakeLister struct {
	episodes []storage.Episode
	err      error
}

func (f *fakeLister) RecentEpisodes(ctx context.Context, limit int) ([]storage.Episode, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.episodes) {
		return f.episodes[:limit], nil
	}
	return f.episodes, nil
}

func sampleEpisodes() []storage.Episode {
	return []storage.Episode{
		{
			ID:              2,
			Title:           "Tuesday Briefing",
			AudioPath:       "podcast_20260113_080000_aa.mp3",
			AudioHash:       "hash-2",
			SizeBytes:       2048,
			DurationMinutes: 9.5,
			NewsletterCount: 7,
			CreatedAt:       time.Date(2026, 1, 13, 8, 0, 0, 0, time.UTC),
		},
		{
			ID:              1,
			Title:           "Monday Briefing",
			AudioPath:       "podcast_20260112_080000_bb.mp3",
			AudioHash:       "hash-1",
			SizeBytes:       1024,
			DurationMinutes: 10,
			NewsletterCount: 5,
			CreatedAt:       time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC),
		},
	}
}

func TestRSSFeed(t *testing.T) {
	server := New("briefcast", Config{BaseURL: "https://pod.example.com"}, &fakeLister{episodes: sampleEpisodes()})

	rec := httptest.NewRecorder()
	server.handleRSSFeed(rec, httptest.NewRequest("GET", "/feed.rss", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "rss+xml") {
		t.Errorf("content type = %q", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"Tuesday Briefing",
		"Monday Briefing",
		"https://pod.example.com/episodes/podcast_20260113_080000_aa.mp3",
		"audio/mpeg",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("rss missing %q", want)
		}
	}
}

func TestAtomFeed(t *testing.T) {
	server := New("briefcast", Config{}, &fakeLister{episodes: sampleEpisodes()})

	rec := httptest.NewRecorder()
	server.handleAtomFeed(rec, httptest.NewRequest("GET", "/feed.atom", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "atom+xml") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Tuesday Briefing") {
		t.Error("atom missing episode title")
	}
}

func TestFeedListerError(t *testing.T) {
	server := New("briefcast", Config{}, &fakeLister{err: errors.New("db locked")})

	rec := httptest.NewRecorder()
	server.handleRSSFeed(rec, httptest.NewRequest("GET", "/feed.rss", nil))

	if rec.Code != 500 {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	server := New("briefcast", Config{}, &fakeLister{})

	rec := httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `"status":"ok"`) || !strings.Contains(body, "briefcast") {
		t.Errorf("health body = %q", body)
	}
}

func TestConfigDefaults(t *testing.T) {
	server := New("briefcast", Config{}, &fakeLister{})
	if server.config.Port != "8080" {
		t.Errorf("port = %q", server.config.Port)
	}
	if server.config.FeedSize != 50 {
		t.Errorf("feed size = %d", server.config.FeedSize)
	}
	if server.config.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q", server.config.BaseURL)
	}
}
