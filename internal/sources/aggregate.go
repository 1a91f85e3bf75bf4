package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"briefcast/internal/cache"
	"briefcast/internal/types"
)

// AccountFetch pairs a source with the query to run against it.
type AccountFetch struct {
	Source types.Source
	Query  types.FetchQuery
}

// Aggregator merges fetches from several sources into one ordered batch.
// Source order and intra-source order are preserved; a failing source is
// logged and recorded but never aborts the batch.
type Aggregator struct {
	Cache cache.Store
}

func NewAggregator(store cache.Store) *Aggregator {
	return &Aggregator{Cache: store}
}

// Aggregate runs every fetch in order and returns the concatenation of the
// successful results plus one error string per failed source.
func (a *Aggregator) Aggregate(ctx context.Context, fetches []AccountFetch) ([]types.Newsletter, []string) {
	var merged []types.Newsletter
	var failures []string

	for i, fetch := range fetches {
		name := fetch.Source.Name()
		slog.Info("Fetching newsletters", "source", name, "position", fmt.Sprintf("%d/%d", i+1, len(fetches)))

		items, err := a.fetchOne(ctx, fetch)
		if err != nil {
			slog.Error("Error fetching from source", "source", name, "error", err)
			failures = append(failures, fmt.Sprintf("failed to fetch from %s: %v", name, err))
			continue
		}

		slog.Info("Source returned newsletters", "source", name, "count", len(items))
		merged = append(merged, items...)
	}

	slog.Info("Total newsletters fetched", "count", len(merged))
	return merged, failures
}

func (a *Aggregator) fetchOne(ctx context.Context, fetch AccountFetch) ([]types.Newsletter, error) {
	fingerprint := fetch.Query.Fingerprint(fetch.Source.Name())

	if fetch.Query.UseCache && a.Cache != nil {
		if items, ok := a.Cache.Get(ctx, fingerprint); ok {
			return items, nil
		}
	}

	items, err := fetch.Source.Fetch(ctx, fetch.Query)
	if err != nil {
		return nil, err
	}

	if fetch.Query.UseCache && a.Cache != nil {
		if err := a.Cache.Put(ctx, fingerprint, items); err != nil {
			slog.Warn("Failed to write cache entry", "fingerprint", fingerprint, "error", err)
		}
	}

	return items, nil
}

// MatchesKeywords reports whether a newsletter passes the keyword prefilter:
// with no filters everything in the window is admitted, otherwise at least
// one term must appear (case-insensitively) in subject or sender.
func MatchesKeywords(n types.Newsletter, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	combined := strings.ToLower(n.Subject + " " + n.Sender)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
