package filter

import (
	"encoding/json"
	"log/slog"
	"strings"

	"briefcast/internal/types"
)

// ParseVerdict extracts a structured verdict from a free-form oracle
// response. The response may wrap the JSON object in prose; the first
// balanced brace span is parsed. When no parseable verdict is found the
// result falls back to a heuristic read of the raw text with score 0.5.
func ParseVerdict(response string) types.Verdict {
	if span, ok := extractJSON(response); ok {
		var verdict types.Verdict
		if err := json.Unmarshal([]byte(span), &verdict); err == nil {
			if verdict.Score < 0 {
				verdict.Score = 0
			}
			if verdict.Score > 1 {
				verdict.Score = 1
			}
			if verdict.Reason == "" {
				verdict.Reason = "no reason provided"
			}
			return verdict
		}
	}

	slog.Warn("Unparseable verdict response, using text heuristic", "response", truncate(response, 100))

	lower := strings.ToLower(response)
	relevant := strings.Contains(lower, "is_relevant") && strings.Contains(lower, "true")

	score := 0.0
	if relevant {
		score = 0.5
	}
	return types.Verdict{
		Relevant: relevant,
		Score:    score,
		Reason:   "verdict parse error - decision based on text analysis",
	}
}

// extractJSON returns the first top-level {...} span in text, matching the
// closing brace by depth count so nested objects survive.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
