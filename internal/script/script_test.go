package script

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"briefcast/internal/types"
)

type recordingOracle struct {
	response string
	err      error
	prompts  []string
}

func (o *recordingOracle) Complete(ctx context.Context, prompt string) (string, error) {
	o.prompts = append(o.prompts, prompt)
	if o.err != nil {
		return "", o.err
	}
	return o.response, nil
}

func sampleItems() []types.Newsletter {
	return []types.Newsletter{
		{Subject: "Go 1.26 released", Sender: "golang@news.dev", Date: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), Body: "Release notes", Source: "Golang Weekly"},
		{Subject: "Inference costs drop", Sender: "ai@digest.io", Date: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), Body: "Market analysis", Source: "AI Digest"},
	}
}

var profile = types.Profile{Name: "Sam", Role: "backend engineer", Interests: []string{"go", "ai"}}

func TestBriefingPromptContents(t *testing.T) {
	oracle := &recordingOracle{response: "Good morning Sam, here is your briefing."}
	gen := NewGenerator(oracle)

	script, err := gen.Briefing(context.Background(), sampleItems(), 10, profile)
	if err != nil {
		t.Fatalf("Briefing failed: %v", err)
	}
	if script != oracle.response {
		t.Errorf("unexpected script: %q", script)
	}

	if len(oracle.prompts) != 1 {
		t.Fatalf("expected 1 oracle call, got %d", len(oracle.prompts))
	}
	prompt := oracle.prompts[0]
	for _, want := range []string{"Sam", "backend engineer", "Golang Weekly", "AI Digest", "1500 words", "Go 1.26 released"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBriefingEmptyBatch(t *testing.T) {
	gen := NewGenerator(&recordingOracle{})

	script, err := gen.Briefing(context.Background(), nil, 10, profile)
	if err != nil {
		t.Fatalf("Briefing failed: %v", err)
	}
	if !strings.Contains(script, "No newsletters") {
		t.Errorf("unexpected empty-batch script: %q", script)
	}
}

func TestBriefingPropagatesError(t *testing.T) {
	gen := NewGenerator(&recordingOracle{err: errors.New("rate limited")})

	_, err := gen.Briefing(context.Background(), sampleItems(), 10, profile)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error does not wrap cause: %v", err)
	}
}

func TestBriefingTruncatesLongBodies(t *testing.T) {
	oracle := &recordingOracle{response: "ok"}
	gen := NewGenerator(oracle)

	items := sampleItems()
	items[0].Body = strings.Repeat("x", newsletterExcerptLimit+500)

	if _, err := gen.Briefing(context.Background(), items, 5, profile); err != nil {
		t.Fatalf("Briefing failed: %v", err)
	}
	if strings.Contains(oracle.prompts[0], strings.Repeat("x", newsletterExcerptLimit+1)) {
		t.Error("body was not truncated in prompt")
	}
}

func TestSegmentsErrorPlaceholder(t *testing.T) {
	oracle := &recordingOracle{err: errors.New("model unavailable")}
	gen := NewGenerator(oracle)

	segments := gen.Segments(context.Background(), sampleItems(), 2)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	for _, seg := range segments {
		if !strings.Contains(seg.Script, "Error generating segment") {
			t.Errorf("segment %q missing error placeholder: %q", seg.Subject, seg.Script)
		}
	}
	if segments[0].Source != "Golang Weekly" || segments[1].Source != "AI Digest" {
		t.Error("segments not in source order")
	}
}

func TestTitleSanitized(t *testing.T) {
	oracle := &recordingOracle{response: `"AI Costs & Go 1.26 Release Highlights Today!"` + "\n"}
	gen := NewGenerator(oracle)

	title := gen.Title(context.Background(), sampleItems())
	if strings.ContainsAny(title, `"&!`) {
		t.Errorf("title contains special characters: %q", title)
	}
	if len(strings.Fields(title)) > 6 {
		t.Errorf("title longer than 6 words: %q", title)
	}
}

func TestTitleFallback(t *testing.T) {
	gen := NewGenerator(&recordingOracle{err: errors.New("down")})

	if title := gen.Title(context.Background(), sampleItems()); title != "Newsletter Roundup" {
		t.Errorf("expected fallback title, got %q", title)
	}

	if title := gen.Title(context.Background(), nil); title != "Newsletter Roundup" {
		t.Errorf("expected fallback title for empty batch, got %q", title)
	}
}
