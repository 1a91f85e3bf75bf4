package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"briefcast/internal/types"
)

// scriptedOracle returns a canned response for the newsletter whose subject
// appears in the prompt. Safe for concurrent use: the map is read-only after
// construction.
type scriptedOracle struct {
	responses map[string]string
	errs      map[string]error
}

func (o *scriptedOracle) Complete(ctx context.Context, prompt string) (string, error) {
	for subject, err := range o.errs {
		if strings.Contains(prompt, subject) {
			return "", err
		}
	}
	for subject, resp := range o.responses {
		if strings.Contains(prompt, subject) {
			return resp, nil
		}
	}
	return "", fmt.Errorf("no scripted response matched prompt")
}

func verdictJSON(relevant bool, score float64) string {
	return fmt.Sprintf(`{"is_relevant": %t, "relevance_score": %g, "reason": "scripted", "topics": ["test"]}`, relevant, score)
}

func newsletter(subject string) types.Newsletter {
	return types.Newsletter{Subject: subject, Sender: "news@example.com", Date: time.Now(), Body: "body", Source: "Example"}
}

var profile = types.Profile{Name: "Sam", Role: "engineer", Interests: []string{"ai"}}

func TestFilterRanksRelevantByScore(t *testing.T) {
	scores := []float64{0.9, 0.2, 0.7, 0.4, 0.95, 0.1}
	relevant := []bool{true, false, true, true, true, false}

	oracle := &scriptedOracle{responses: map[string]string{}}
	var items []types.Newsletter
	for i, score := range scores {
		subject := fmt.Sprintf("subject-%d", i)
		items = append(items, newsletter(subject))
		oracle.responses[subject] = verdictJSON(relevant[i], score)
	}

	engine := New(oracle, 10)
	ranked, all := engine.Filter(context.Background(), items, profile)

	if len(all) != 6 {
		t.Fatalf("expected 6 verdicts, got %d", len(all))
	}
	if len(ranked) != 4 {
		t.Fatalf("expected 4 relevant items, got %d", len(ranked))
	}

	want := []float64{0.95, 0.9, 0.7, 0.4}
	for i, scored := range ranked {
		if scored.Verdict.Score != want[i] {
			t.Errorf("rank %d: score %g, want %g", i, scored.Verdict.Score, want[i])
		}
	}
}

func TestFilterOracleErrorKeepsItem(t *testing.T) {
	oracle := &scriptedOracle{
		responses: map[string]string{"good": verdictJSON(true, 0.8)},
		errs:      map[string]error{"flaky": errors.New("connection timeout")},
	}
	items := []types.Newsletter{newsletter("good"), newsletter("flaky")}

	engine := New(oracle, 2)
	ranked, all := engine.Filter(context.Background(), items, profile)

	if len(all) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(all))
	}
	if len(ranked) != 2 {
		t.Fatalf("expected both items retained, got %d", len(ranked))
	}

	if ranked[0].Newsletter.Subject != "good" || ranked[0].Verdict.Score != 0.8 {
		t.Errorf("unexpected top item: %+v", ranked[0])
	}
	fallback := ranked[1]
	if fallback.Newsletter.Subject != "flaky" {
		t.Fatalf("expected flaky item second, got %q", fallback.Newsletter.Subject)
	}
	if !fallback.Verdict.Relevant || fallback.Verdict.Score != 0.5 {
		t.Errorf("fallback verdict = %+v, want relevant with score 0.5", fallback.Verdict)
	}
	if !strings.Contains(fallback.Verdict.Reason, "connection timeout") {
		t.Errorf("fallback reason does not name the failure: %q", fallback.Verdict.Reason)
	}
}

func TestFilterEmptyBatch(t *testing.T) {
	engine := New(&scriptedOracle{}, 10)
	ranked, all := engine.Filter(context.Background(), nil, profile)
	if ranked != nil || all != nil {
		t.Error("expected nil results for empty batch")
	}
}

func TestFilterProseWrappedVerdict(t *testing.T) {
	oracle := &scriptedOracle{responses: map[string]string{
		"wrapped": "Sure! Here is my assessment:\n" + verdictJSON(true, 0.6) + "\nHope that helps.",
	}}

	engine := New(oracle, 1)
	ranked, _ := engine.Filter(context.Background(), []types.Newsletter{newsletter("wrapped")}, profile)

	if len(ranked) != 1 {
		t.Fatalf("expected 1 relevant item, got %d", len(ranked))
	}
	if ranked[0].Verdict.Score != 0.6 {
		t.Errorf("score = %g, want 0.6", ranked[0].Verdict.Score)
	}
}
