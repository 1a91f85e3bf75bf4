package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"briefcast/internal/storage"
)

// EpisodeLister yields recently published episodes, newest first.
type EpisodeLister interface {
	RecentEpisodes(ctx context.Context, limit int) ([]storage.Episode, error)
}

type Config struct {
	Port      string
	FeedSize  int
	BaseURL   string
	UploadDir string
}

// Server exposes the episode catalog as a podcast feed plus the audio files
// themselves.
type Server struct {
	name     string
	config   Config
	episodes EpisodeLister
	server   *http.Server
}

func New(name string, config Config, episodes EpisodeLister) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.FeedSize == 0 {
		config.FeedSize = 50
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:" + config.Port
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Server{
		name:     name,
		config:   config,
		episodes: episodes,
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.rss", s.handleRSSFeed)
	mux.HandleFunc("/feed.atom", s.handleAtomFeed)
	mux.HandleFunc("/health", s.handleHealth)
	if s.config.UploadDir != "" {
		mux.Handle("/episodes/", http.StripPrefix("/episodes/", http.FileServer(http.Dir(s.config.UploadDir))))
	}

	s.server = &http.Server{
		Addr:    ":" + s.config.Port,
		Handler: mux,
	}

	go func() {
		slog.Info("Feed server starting", "name", s.name, "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Feed server error", "name", s.name, "error", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Feed server shutdown error", "name", s.name, "error", err)
		}
	}
	return nil
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	feed, ok := s.loadFeed(w, r)
	if !ok {
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		slog.Error("Failed to generate RSS", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	fmt.Fprint(w, rss)
}

func (s *Server) handleAtomFeed(w http.ResponseWriter, r *http.Request) {
	feed, ok := s.loadFeed(w, r)
	if !ok {
		return
	}

	atom, err := feed.ToAtom()
	if err != nil {
		slog.Error("Failed to generate Atom", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	fmt.Fprint(w, atom)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","name":"%s","time":"%s"}`, s.name, time.Now().UTC().Format(time.RFC3339))
}

func (s *Server) loadFeed(w http.ResponseWriter, r *http.Request) (*feeds.Feed, bool) {
	episodes, err := s.episodes.RecentEpisodes(r.Context(), s.config.FeedSize)
	if err != nil {
		slog.Error("Failed to list episodes", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Error: %v", err)
		return nil, false
	}
	return s.buildFeed(episodes), true
}

func (s *Server) buildFeed(episodes []storage.Episode) *feeds.Feed {
	items := make([]*feeds.Item, 0, len(episodes))
	for _, ep := range episodes {
		link := fmt.Sprintf("%s/episodes/%s", s.config.BaseURL, ep.AudioPath)
		items = append(items, &feeds.Item{
			Id:          ep.AudioHash,
			Title:       ep.Title,
			Link:        &feeds.Link{Href: link},
			Description: fmt.Sprintf("Briefing from %d newsletters, about %.1f minutes.", ep.NewsletterCount, ep.DurationMinutes),
			Enclosure: &feeds.Enclosure{
				Url:    link,
				Type:   "audio/mpeg",
				Length: fmt.Sprintf("%d", ep.SizeBytes),
			},
			Created: ep.CreatedAt,
		})
	}

	return &feeds.Feed{
		Title:       fmt.Sprintf("%s briefings", s.name),
		Link:        &feeds.Link{Href: s.config.BaseURL + "/feed.rss"},
		Description: "Personalized audio briefings generated from newsletters",
		Author:      &feeds.Author{Name: s.name},
		Created:     time.Now().UTC(),
		Items:       items,
	}
}
