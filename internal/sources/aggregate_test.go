package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"briefcast/internal/types"
)

type fakeSource struct {
	name       string
	items      []types.Newsletter
	fetchErr   error
	fetchCalls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Connect(ctx context.Context) error { return nil }

func (f *fakeSource) Disconnect() {}

func (f *fakeSource) Fetch(ctx context.Context, q types.FetchQuery) ([]types.Newsletter, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.items, nil
}

func makeItems(source string, n int) []types.Newsletter {
	items := make([]types.Newsletter, n)
	for i := range items {
		items[i] = types.Newsletter{
			Subject: fmt.Sprintf("%s item %d", source, i),
			Sender:  "news@" + strings.ToLower(source) + ".com",
			Date:    time.Now(),
			Source:  source,
		}
	}
	return items
}

func TestAggregatePreservesOrderAcrossFailures(t *testing.T) {
	first := &fakeSource{name: "alpha", items: makeItems("alpha", 5)}
	broken := &fakeSource{name: "broken", fetchErr: errors.New("connection reset")}
	last := &fakeSource{name: "omega", items: makeItems("omega", 4)}

	agg := NewAggregator(nil)
	merged, failures := agg.Aggregate(context.Background(), []AccountFetch{
		{Source: first}, {Source: broken}, {Source: last},
	})

	if len(merged) != 9 {
		t.Fatalf("expected 9 items, got %d", len(merged))
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if !strings.Contains(failures[0], "broken") {
		t.Errorf("failure message does not name the source: %q", failures[0])
	}

	for i := 0; i < 5; i++ {
		if merged[i].Source != "alpha" {
			t.Fatalf("item %d: expected alpha, got %s", i, merged[i].Source)
		}
	}
	for i := 5; i < 9; i++ {
		if merged[i].Source != "omega" {
			t.Fatalf("item %d: expected omega, got %s", i, merged[i].Source)
		}
	}
}

func TestAggregateAllSourcesFail(t *testing.T) {
	agg := NewAggregator(nil)
	merged, failures := agg.Aggregate(context.Background(), []AccountFetch{
		{Source: &fakeSource{name: "a", fetchErr: errors.New("down")}},
		{Source: &fakeSource{name: "b", fetchErr: errors.New("down")}},
	})

	if len(merged) != 0 {
		t.Errorf("expected no items, got %d", len(merged))
	}
	if len(failures) != 2 {
		t.Errorf("expected 2 failures, got %d", len(failures))
	}
}

type mapCache struct {
	entries map[string][]types.Newsletter
	puts    int
}

func (c *mapCache) Get(ctx context.Context, fp string) ([]types.Newsletter, bool) {
	items, ok := c.entries[fp]
	return items, ok
}

func (c *mapCache) Put(ctx context.Context, fp string, items []types.Newsletter) error {
	c.puts++
	c.entries[fp] = items
	return nil
}

func TestAggregateUsesCache(t *testing.T) {
	src := &fakeSource{name: "cached", items: makeItems("cached", 3)}
	store := &mapCache{entries: map[string][]types.Newsletter{}}
	agg := NewAggregator(store)
	query := types.FetchQuery{Lookback: time.Hour, UseCache: true}

	merged, failures := agg.Aggregate(context.Background(), []AccountFetch{{Source: src, Query: query}})
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(merged) != 3 || src.fetchCalls != 1 || store.puts != 1 {
		t.Fatalf("first pass: items=%d fetches=%d puts=%d", len(merged), src.fetchCalls, store.puts)
	}

	merged, _ = agg.Aggregate(context.Background(), []AccountFetch{{Source: src, Query: query}})
	if len(merged) != 3 {
		t.Fatalf("second pass: expected 3 items, got %d", len(merged))
	}
	if src.fetchCalls != 1 {
		t.Errorf("expected cache hit to skip fetch, got %d fetches", src.fetchCalls)
	}
}

func TestAggregateSkipsCacheWhenDisabled(t *testing.T) {
	src := &fakeSource{name: "fresh", items: makeItems("fresh", 2)}
	store := &mapCache{entries: map[string][]types.Newsletter{}}
	agg := NewAggregator(store)
	query := types.FetchQuery{Lookback: time.Hour, UseCache: false}

	agg.Aggregate(context.Background(), []AccountFetch{{Source: src, Query: query}})
	agg.Aggregate(context.Background(), []AccountFetch{{Source: src, Query: query}})

	if src.fetchCalls != 2 {
		t.Errorf("expected 2 fetches with cache disabled, got %d", src.fetchCalls)
	}
	if store.puts != 0 {
		t.Errorf("expected no cache writes, got %d", store.puts)
	}
}

func TestMatchesKeywords(t *testing.T) {
	n := types.Newsletter{Subject: "Weekly AI Digest", Sender: "news@stratechery.com"}

	tests := []struct {
		keywords []string
		want     bool
	}{
		{nil, true},
		{[]string{}, true},
		{[]string{"ai"}, true},
		{[]string{"stratechery"}, true},
		{[]string{"DIGEST"}, true},
		{[]string{"crypto"}, false},
		{[]string{"crypto", "weekly"}, true},
		{[]string{""}, false},
	}

	for _, tt := range tests {
		if got := MatchesKeywords(n, tt.keywords); got != tt.want {
			t.Errorf("MatchesKeywords(%v) = %v, want %v", tt.keywords, got, tt.want)
		}
	}
}
