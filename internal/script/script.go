package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"briefcast/internal/oracle"
	"briefcast/internal/types"
)

// wordsPerMinute is the assumed speaking rate for sizing scripts.
const wordsPerMinute = 150

// newsletterExcerptLimit caps how much of each newsletter body goes into a
// generation prompt.
const newsletterExcerptLimit = 3000

// Segment is one per-newsletter script in the segmented variant.
type Segment struct {
	Source  string `json:"newsletter_source"`
	Subject string `json:"subject"`
	Script  string `json:"script"`
}

// Generator produces podcast scripts from newsletter batches.
type Generator struct {
	oracle oracle.Client
}

func NewGenerator(client oracle.Client) *Generator {
	return &Generator{oracle: client}
}

// Briefing generates one combined, personalized podcast script. The error
// return is soft-fatal for the pipeline: the caller substitutes a visible
// placeholder and continues.
func (g *Generator) Briefing(ctx context.Context, items []types.Newsletter, targetMinutes int, profile types.Profile) (string, error) {
	if len(items) == 0 {
		return "No newsletters found to summarize.", nil
	}

	targetWords := targetMinutes * wordsPerMinute

	sources := make(map[string]bool)
	var sourceList []string
	for _, item := range items {
		label := item.Source
		if label == "" {
			label = item.Sender
		}
		if !sources[label] {
			sources[label] = true
			sourceList = append(sourceList, label)
		}
	}

	prompt := fmt.Sprintf(`You are creating a personalized podcast script for %s, a %s, summarizing today's newsletters.

Here are %d newsletters from the lookback window:

%s

Newsletter sources include: %s

Please create an engaging, personalized podcast script that:

PERSONALIZATION:
- Address %s directly in a conversational way
- Tailor insights specifically for a %s
- Prioritize developments relevant to their interests

CONTENT STRUCTURE:
1. Start with a personal greeting
2. Lead with the most important and breaking news
3. Group related topics together, even if from different newsletters
4. ALWAYS mention which newsletter(s) each topic comes from
5. When multiple sources cover the same topic, cite all sources briefly

DELIVERY:
- Natural, conversational tone
- Approximately %d words (%d minutes at %d WPM)
- Smooth transitions between topics
- End with a personalized closing and a preview of what to watch for
- Spell out abbreviations on first use

Format the script with clear paragraph breaks for natural speech pauses.`,
		profile.Name, profile.Role, len(items), formatNewsletters(items),
		strings.Join(sourceList, ", "), profile.Name, profile.Role,
		targetWords, targetMinutes, wordsPerMinute)

	script, err := g.oracle.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("script generation failed: %w", err)
	}

	slog.Info("Generated script", "words", len(strings.Fields(script)))
	return script, nil
}

// Segments generates one short script per newsletter. A failed generation
// yields an error-placeholder segment rather than dropping the newsletter.
func (g *Generator) Segments(ctx context.Context, items []types.Newsletter, segmentMinutes int) []Segment {
	segments := make([]Segment, 0, len(items))
	wordsPerSegment := segmentMinutes * wordsPerMinute

	for i, item := range items {
		source := item.Source
		if source == "" {
			source = "Unknown"
		}

		body := item.Body
		if len(body) > newsletterExcerptLimit {
			body = body[:newsletterExcerptLimit]
		}

		prompt := fmt.Sprintf(`Create a %d-minute podcast segment about this newsletter:

Subject: %s
From: %s
Content: %s

Create an engaging, conversational script of approximately %d words that:
1. Introduces the newsletter source
2. Explains the main topic
3. Highlights the most interesting insights
4. Ends with a smooth transition to the next segment

This is segment %d of %d.`,
			segmentMinutes, item.Subject, source, body, wordsPerSegment, i+1, len(items))

		text, err := g.oracle.Complete(ctx, prompt)
		if err != nil {
			slog.Error("Error generating segment", "subject", item.Subject, "error", err)
			text = fmt.Sprintf("Error generating segment: %v", err)
		}

		segments = append(segments, Segment{
			Source:  source,
			Subject: item.Subject,
			Script:  text,
		})
	}

	return segments
}

// Title generates a short, filename-safe episode title. Any failure falls
// back to a generic title.
func (g *Generator) Title(ctx context.Context, items []types.Newsletter) string {
	const fallback = "Newsletter Roundup"
	const maxWords = 6

	if len(items) == 0 {
		return fallback
	}

	subjects := items
	if len(subjects) > 5 {
		subjects = subjects[:5]
	}
	var lines []string
	for _, item := range subjects {
		label := item.Source
		if label == "" {
			label = item.Sender
		}
		lines = append(lines, fmt.Sprintf("- %s (from %s)", item.Subject, label))
	}

	prompt := fmt.Sprintf(`Generate a concise, descriptive title (max %d words) summarizing these newsletters:

%s

The title should:
- Capture the most important/common theme
- Be specific and informative
- Be suitable for a filename (no special characters)

Return ONLY the title, nothing else.`, maxWords, strings.Join(lines, "\n"))

	raw, err := g.oracle.Complete(ctx, prompt)
	if err != nil {
		slog.Error("Error generating title", "error", err)
		return fallback
	}

	title := sanitizeTitle(raw, maxWords)
	if title == "" {
		return fallback
	}
	return title
}

func sanitizeTitle(raw string, maxWords int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}

func formatNewsletters(items []types.Newsletter) string {
	var b strings.Builder
	for i, item := range items {
		label := item.Source
		if label == "" {
			label = item.Sender
		}

		body := item.Body
		if len(body) > newsletterExcerptLimit {
			body = body[:newsletterExcerptLimit]
		}

		fmt.Fprintf(&b, "\nNewsletter %d:\nSource: %s\nSubject: %s\nDate: %s\n---\n%s\n---\n",
			i+1, label, item.Subject, item.Date.Format("2006-01-02 15:04"), body)
	}
	return b.String()
}
