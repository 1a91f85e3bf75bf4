package filter

import (
	"strings"
	"testing"
)

func TestParseVerdictClean(t *testing.T) {
	v := ParseVerdict(`{"is_relevant": true, "relevance_score": 0.85, "reason": "major release", "topics": ["go", "tooling"]}`)

	if !v.Relevant {
		t.Error("expected relevant")
	}
	if v.Score != 0.85 {
		t.Errorf("score = %g, want 0.85", v.Score)
	}
	if v.Reason != "major release" {
		t.Errorf("reason = %q", v.Reason)
	}
	if len(v.Topics) != 2 {
		t.Errorf("topics = %v", v.Topics)
	}
}

func TestParseVerdictNestedBraces(t *testing.T) {
	v := ParseVerdict(`prefix {"is_relevant": true, "relevance_score": 0.7, "reason": "mentions {config} syntax", "topics": []} suffix`)

	if !v.Relevant || v.Score != 0.7 {
		t.Errorf("verdict = %+v", v)
	}
}

func TestParseVerdictClampsScore(t *testing.T) {
	high := ParseVerdict(`{"is_relevant": true, "relevance_score": 1.7, "reason": "x"}`)
	if high.Score != 1 {
		t.Errorf("score above 1 not clamped: %g", high.Score)
	}

	low := ParseVerdict(`{"is_relevant": false, "relevance_score": -0.3, "reason": "x"}`)
	if low.Score != 0 {
		t.Errorf("score below 0 not clamped: %g", low.Score)
	}
}

func TestParseVerdictDefaultReason(t *testing.T) {
	v := ParseVerdict(`{"is_relevant": true, "relevance_score": 0.5}`)
	if v.Reason == "" {
		t.Error("expected a default reason")
	}
}

func TestParseVerdictHeuristicFallback(t *testing.T) {
	v := ParseVerdict(`I think "is_relevant" should be true here because the content is topical.`)

	if !v.Relevant {
		t.Error("heuristic should have judged relevant")
	}
	if v.Score != 0.5 {
		t.Errorf("heuristic score = %g, want 0.5", v.Score)
	}
	if !strings.Contains(v.Reason, "parse error") {
		t.Errorf("reason should mention the parse failure: %q", v.Reason)
	}
}

func TestParseVerdictHeuristicIrrelevant(t *testing.T) {
	v := ParseVerdict("This is just promotional noise, nothing useful.")

	if v.Relevant {
		t.Error("heuristic should have judged irrelevant")
	}
	if v.Score != 0 {
		t.Errorf("score = %g, want 0", v.Score)
	}
}

func TestExtractJSONUnbalanced(t *testing.T) {
	if _, ok := extractJSON(`{"is_relevant": true`); ok {
		t.Error("unbalanced braces should not extract")
	}
	if _, ok := extractJSON("no braces at all"); ok {
		t.Error("text without braces should not extract")
	}
}
