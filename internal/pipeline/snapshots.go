package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"briefcast/internal/types"
)

// Audit snapshots are best-effort: a failed write is logged and the run
// continues.

type newsletterMeta struct {
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Date       time.Time `json:"date"`
	Source     string    `json:"source"`
	BodyLength int       `json:"body_length"`
}

func snapshotNewsletters(dir string, items []types.Newsletter) {
	metas := make([]newsletterMeta, 0, len(items))
	for _, item := range items {
		metas = append(metas, newsletterMeta{
			Subject:    item.Subject,
			Sender:     item.Sender,
			Date:       item.Date,
			Source:     item.Source,
			BodyLength: len(item.Body),
		})
	}
	writeSnapshot(dir, "newsletters_metadata", metas)
}

type filterDecision struct {
	Subject  string   `json:"subject"`
	Source   string   `json:"source"`
	Relevant bool     `json:"is_relevant"`
	Score    float64  `json:"relevance_score"`
	Reason   string   `json:"reason"`
	Topics   []string `json:"topics"`
}

func snapshotVerdicts(dir string, all []types.Scored) {
	decisions := make([]filterDecision, 0, len(all))
	for _, scored := range all {
		decisions = append(decisions, filterDecision{
			Subject:  scored.Newsletter.Subject,
			Source:   scored.Newsletter.Source,
			Relevant: scored.Verdict.Relevant,
			Score:    scored.Verdict.Score,
			Reason:   scored.Verdict.Reason,
			Topics:   scored.Verdict.Topics,
		})
	}
	writeSnapshot(dir, "filter_decisions", decisions)
}

func snapshotResult(dir string, result *types.PipelineResult) {
	writeSnapshot(dir, "pipeline_result", result)
}

func writeSnapshot(dir, prefix string, v any) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("Failed to create snapshot directory", "error", err)
		return
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Warn("Failed to marshal snapshot", "prefix", prefix, "error", err)
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", prefix, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("Failed to write snapshot", "path", path, "error", err)
	}
}
