package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"briefcast/internal/mailtext"
	"briefcast/internal/types"
)

// RSSSource treats a newsletter's public feed as another account: entries
// inside the lookback window become Newsletter records in the same shape the
// IMAP source produces.
type RSSSource struct {
	name       string
	feedURL    string
	maxItems   int
	fullText   bool
	parser     *gofeed.Parser
	httpClient *http.Client
}

func NewRSSSource(name, feedURL string, maxItems int, fullText bool) *RSSSource {
	if maxItems == 0 {
		maxItems = 50
	}
	return &RSSSource{
		name:       name,
		feedURL:    feedURL,
		maxItems:   maxItems,
		fullText:   fullText,
		parser:     gofeed.NewParser(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *RSSSource) Name() string {
	return s.name
}

func (s *RSSSource) Connect(ctx context.Context) error {
	if _, err := url.ParseRequestURI(s.feedURL); err != nil {
		return fmt.Errorf("invalid feed url %s: %w", s.feedURL, err)
	}
	return nil
}

func (s *RSSSource) Disconnect() {}

func (s *RSSSource) Fetch(ctx context.Context, q types.FetchQuery) ([]types.Newsletter, error) {
	feed, err := s.parser.ParseURLWithContext(s.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", s.feedURL, err)
	}

	cutoff := time.Now().Add(-q.Lookback)
	var newsletters []types.Newsletter

	for _, item := range feed.Items {
		if len(newsletters) >= s.maxItems {
			break
		}

		published := time.Now()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}
		if published.Before(cutoff) {
			continue
		}

		sender := feed.Title
		if item.Author != nil && item.Author.Email != "" {
			sender = fmt.Sprintf("%s <%s>", item.Author.Name, item.Author.Email)
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}
		if plain, err := mailtext.Extract(body); err == nil && plain != "" {
			body = plain
		}

		if s.fullText && item.Link != "" {
			if full, err := s.fetchArticleText(ctx, item.Link); err == nil && len(full) > len(body) {
				body = full
			} else if err != nil {
				slog.Debug("Full-text fetch failed, using feed content", "link", item.Link, "error", err)
			}
		}

		newsletter := types.Newsletter{
			Subject: item.Title,
			Sender:  sender,
			Date:    published,
			Body:    body,
			Source:  s.sourceLabel(feed, sender),
		}

		if !MatchesKeywords(newsletter, q.Keywords) {
			continue
		}
		newsletters = append(newsletters, newsletter)
	}

	slog.Info("Fetched newsletters from feed", "feed", s.name, "count", len(newsletters))
	return newsletters, nil
}

func (s *RSSSource) sourceLabel(feed *gofeed.Feed, sender string) string {
	if label := types.SourceFromSender(sender); label != "Unknown" {
		return label
	}
	if feed.Title != "" {
		return feed.Title
	}
	return s.name
}

// fetchArticleText pulls the linked page and runs readability extraction,
// for feeds that only carry a teaser of the full issue.
func (s *RSSSource) fetchArticleText(ctx context.Context, link string) (string, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid article url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "briefcast/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch page: %s", resp.Status)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}
	return article.TextContent, nil
}
