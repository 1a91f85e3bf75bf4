package types

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"briefcast/internal/hash"
)

// Newsletter is one candidate content unit pulled from a source. It is
// immutable after creation; stages pass the collection downstream and never
// mutate entries in place.
type Newsletter struct {
	Subject  string    `json:"subject"`
	Sender   string    `json:"sender"`
	Date     time.Time `json:"date"`
	Body     string    `json:"body"`
	HTMLBody string    `json:"html_body,omitempty"`
	Source   string    `json:"source"`
}

// SourceFromSender derives an organization label from a sender address,
// e.g. "Ben's Newsletter <ben@stratechery.com>" -> "Stratechery".
func SourceFromSender(sender string) string {
	at := strings.Index(sender, "@")
	if at < 0 {
		return "Unknown"
	}
	domain := sender[at+1:]
	if i := strings.IndexAny(domain, "> "); i >= 0 {
		domain = domain[:i]
	}
	if i := strings.Index(domain, "."); i >= 0 {
		domain = domain[:i]
	}
	if domain == "" {
		return "Unknown"
	}
	return strings.ToUpper(domain[:1]) + domain[1:]
}

// FetchQuery describes one fetch against a source.
type FetchQuery struct {
	Lookback time.Duration
	Folder   string
	Keywords []string
	UseCache bool
}

// Fingerprint returns a stable cache key for this query against one account.
// Identical fingerprints must always describe identical fetches, so the
// keyword list is sorted before hashing.
func (q FetchQuery) Fingerprint(accountID string) string {
	keywords := make([]string, len(q.Keywords))
	copy(keywords, q.Keywords)
	sort.Strings(keywords)

	key, _ := json.Marshal(struct {
		Account  string   `json:"account"`
		Lookback string   `json:"lookback"`
		Folder   string   `json:"folder"`
		Keywords []string `json:"keywords"`
	}{accountID, q.Lookback.String(), q.Folder, keywords})

	return hash.Sum(key)[:16]
}

// Profile describes the listener the briefing is personalized for.
type Profile struct {
	Name      string
	Role      string
	Interests []string
}

// SimpleKeywords derives coarse keyword prefilters from the profile, used
// when smart filtering is enabled but no explicit filters were given.
func (p Profile) SimpleKeywords() []string {
	seen := make(map[string]bool)
	var keywords []string
	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}

	for _, word := range strings.Fields(p.Role) {
		add(word)
	}
	for _, interest := range p.Interests {
		add(interest)
	}
	for _, indicator := range []string{"newsletter", "weekly", "daily", "digest", "update", "news"} {
		add(indicator)
	}
	return keywords
}

// Verdict is the structured relevance judgment for one newsletter. It is
// produced exactly once per item per pipeline run.
type Verdict struct {
	Relevant bool     `json:"is_relevant"`
	Score    float64  `json:"relevance_score"`
	Reason   string   `json:"reason"`
	Topics   []string `json:"topics"`
}

// Scored pairs a newsletter with its verdict.
type Scored struct {
	Newsletter Newsletter
	Verdict    Verdict
}

// PipelineResult accumulates the outcome of one pipeline run. Errors is
// append-only; Success is set only after every required stage succeeded.
type PipelineResult struct {
	Success          bool      `json:"success"`
	StartedAt        time.Time `json:"started_at"`
	EndedAt          time.Time `json:"ended_at"`
	NewslettersFound int       `json:"newsletters_found"`
	ScriptPath       string    `json:"script_path,omitempty"`
	AudioPath        string    `json:"audio_path,omitempty"`
	UploadedURL      string    `json:"uploaded_url,omitempty"`
	AnnouncementRef  string    `json:"announcement_ref,omitempty"`
	Segments         []string  `json:"segments,omitempty"`
	Errors           []string  `json:"errors"`
}

func NewPipelineResult() *PipelineResult {
	return &PipelineResult{
		StartedAt: time.Now(),
		Errors:    []string{},
	}
}

func (r *PipelineResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Finalize stamps the end time. It is called from the run's cleanup path on
// every exit, success or not.
func (r *PipelineResult) Finalize() {
	r.EndedAt = time.Now()
}

// Source yields newsletters for a time window. Disconnect must be idempotent;
// callers swallow any error it produces.
type Source interface {
	Name() string
	Connect(ctx context.Context) error
	Fetch(ctx context.Context, q FetchQuery) ([]Newsletter, error)
	Disconnect()
}
