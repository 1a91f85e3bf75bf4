package filter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"briefcast/internal/oracle"
	"briefcast/internal/types"
)

// bodyPreviewLimit caps how much newsletter body is sent per scoring call.
const bodyPreviewLimit = 2000

// Engine scores newsletters for relevance against a user profile with a
// bounded pool of concurrent oracle calls.
type Engine struct {
	oracle         oracle.Client
	maxConcurrency int
}

func New(client oracle.Client, maxConcurrency int) *Engine {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Engine{oracle: client, maxConcurrency: maxConcurrency}
}

// Filter scores every newsletter and returns the relevant subset ranked by
// score descending, plus the full verdict list (rejections included) for the
// audit snapshot. A scoring failure never drops an item: the verdict degrades
// to relevant with score 0.5 and a reason naming the failure.
func (e *Engine) Filter(ctx context.Context, items []types.Newsletter, profile types.Profile) (ranked []types.Scored, all []types.Scored) {
	if len(items) == 0 {
		return nil, nil
	}

	workers := e.maxConcurrency
	if workers > len(items) {
		workers = len(items)
	}
	slog.Info("Filtering newsletters", "count", len(items), "workers", workers)

	jobs := make(chan int)
	results := make(chan types.Scored, len(items))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- types.Scored{
					Newsletter: items[idx],
					Verdict:    e.scoreOne(ctx, items[idx], profile),
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range items {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for scored := range results {
		all = append(all, scored)
		if scored.Verdict.Relevant {
			slog.Info("Relevant", "subject", truncate(scored.Newsletter.Subject, 50), "score", scored.Verdict.Score)
			ranked = append(ranked, scored)
		} else {
			slog.Info("Filtered out", "subject", truncate(scored.Newsletter.Subject, 50))
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Verdict.Score > ranked[j].Verdict.Score
	})

	slog.Info("Filtering complete", "in", len(items), "relevant", len(ranked))
	return ranked, all
}

func (e *Engine) scoreOne(ctx context.Context, item types.Newsletter, profile types.Profile) types.Verdict {
	response, err := e.oracle.Complete(ctx, scorePrompt(item, profile))
	if err != nil {
		slog.Error("Error scoring newsletter, keeping it with fallback verdict", "subject", item.Subject, "error", err)
		return types.Verdict{
			Relevant: true,
			Score:    0.5,
			Reason:   fmt.Sprintf("error during filtering: %v", err),
		}
	}
	return ParseVerdict(response)
}

func scorePrompt(item types.Newsletter, profile types.Profile) string {
	preview := item.Body
	if len(preview) > bodyPreviewLimit {
		preview = preview[:bodyPreviewLimit]
	}

	return fmt.Sprintf(`Evaluate if this newsletter contains relevant NEWS or UPDATES for %s, who works as %s.

User interests: %s

Newsletter details:
Subject: %s
From: %s
Source: %s
Content preview: %s

Determine if this contains:
1. Breaking news or important updates in the user's field
2. New product announcements or features
3. Industry trends or insights
4. Research findings or technical developments
5. Relevant business or policy changes
6. Anything relevant to their personal life or things they need to get done

DO NOT include:
- Promotional content without news value
- Pure marketing or sales pitches
- Repeated/recycled content

Respond with JSON only:
{
    "is_relevant": true/false,
    "relevance_score": 0.0-1.0,
    "reason": "brief explanation",
    "topics": ["topic1", "topic2"]
}`,
		profile.Name, profile.Role, strings.Join(profile.Interests, ", "),
		item.Subject, item.Sender, item.Source, preview)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
