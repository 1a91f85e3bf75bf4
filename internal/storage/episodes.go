package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Episode is a published briefing as recorded in the database.
type Episode struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	AudioPath       string    `json:"audio_path"`
	ScriptPath      string    `json:"script_path"`
	AudioHash       string    `json:"audio_hash"`
	SizeBytes       int64     `json:"size_bytes"`
	DurationMinutes float64   `json:"duration_minutes"`
	NewsletterCount int       `json:"newsletter_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Run is one pipeline execution's outcome.
type Run struct {
	ID               int64
	StartedAt        time.Time
	EndedAt          time.Time
	Success          bool
	NewslettersFound int
	Errors           []string
}

func (s *Store) AddEpisode(ctx context.Context, ep Episode) (int64, error) {
	query := `
		INSERT INTO episodes (title, audio_path, script_path, audio_hash, size_bytes, duration_minutes, newsletter_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.conn.ExecContext(ctx, query,
		ep.Title, ep.AudioPath, ep.ScriptPath, ep.AudioHash,
		ep.SizeBytes, ep.DurationMinutes, ep.NewsletterCount)
	if err != nil {
		return 0, fmt.Errorf("failed to store episode: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read episode id: %w", err)
	}
	return id, nil
}

// RecentEpisodes returns up to limit episodes, newest first. The result
// feeds the RSS/Atom endpoints.
func (s *Store) RecentEpisodes(ctx context.Context, limit int) ([]Episode, error) {
	query := `
		SELECT id, title, audio_path, script_path, audio_hash, size_bytes, duration_minutes, newsletter_count, created_at
		FROM episodes
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var ep Episode
		if err := rows.Scan(&ep.ID, &ep.Title, &ep.AudioPath, &ep.ScriptPath, &ep.AudioHash,
			&ep.SizeBytes, &ep.DurationMinutes, &ep.NewsletterCount, &ep.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		episodes = append(episodes, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate episodes: %w", err)
	}
	return episodes, nil
}

func (s *Store) RecordRun(ctx context.Context, run Run) error {
	var errText string
	if len(run.Errors) > 0 {
		data, err := json.Marshal(run.Errors)
		if err != nil {
			errText = strings.Join(run.Errors, "; ")
		} else {
			errText = string(data)
		}
	}

	query := `
		INSERT INTO runs (started_at, ended_at, success, newsletters_found, errors)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.conn.ExecContext(ctx, query,
		run.StartedAt, run.EndedAt, run.Success, run.NewslettersFound, errText); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}
