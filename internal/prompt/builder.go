// Package prompt builds the instruction text sent to the generation backend.
//
// Build is a pure function of its inputs: the same entry, language and kind
// always produce byte-identical prompts, which is what makes Request.Key a
// valid cache key.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/insight"
)

// Version is bumped whenever instruction wording or schemas change, so
// persisted results from older prompts stop matching.
const Version = "v3"

// DefaultBudget is the article text limit, in runes.
const DefaultBudget = 2000

// Kind selects the output schema.
type Kind string

const (
	KindSingle  Kind = "single"
	KindCompare Kind = "compare"
	KindChat    Kind = "chat"
)

// ErrMissingOther is returned when a compare request has no second entry.
var ErrMissingOther = errors.New("compare request needs two entries")

// Request fully determines a prompt.
type Request struct {
	Entry    feeds.Entry
	Other    *feeds.Entry // second article, compare only
	Language Language
	Kind     Kind
}

// Key identifies the request for caching: hex SHA-256 over the prompt
// version, kind, language and entry IDs.
func (r Request) Key() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s", Version, r.Kind, r.Language, r.Entry.ID)
	if r.Other != nil {
		fmt.Fprintf(h, "\x00%s", r.Other.ID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Prompt is the text handed to the generation client.
type Prompt struct {
	System  string
	History []insight.ChatTurn // prior turns, chat only
	User    string
	JSON    bool // the backend should be asked for a JSON object
}

// Builder renders prompts with a fixed article budget.
type Builder struct {
	Budget int
}

// NewBuilder returns a Builder; budget <= 0 means DefaultBudget.
func NewBuilder(budget int) *Builder {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Builder{Budget: budget}
}

// Build renders a single-article or compare prompt.
func (b *Builder) Build(req Request) (Prompt, error) {
	switch req.Kind {
	case KindSingle:
		return Prompt{
			System: singleSystem(req.Language),
			User:   "Analyze this article.\n\n" + b.article(req.Entry),
			JSON:   true,
		}, nil

	case KindCompare:
		if req.Other == nil {
			return Prompt{}, ErrMissingOther
		}
		var user strings.Builder
		user.WriteString("Compare how these two articles cover the story.\n\n")
		user.WriteString("=== ARTICLE A ===\n")
		user.WriteString(b.article(req.Entry))
		user.WriteString("\n\n=== ARTICLE B ===\n")
		user.WriteString(b.article(*req.Other))
		return Prompt{
			System: compareSystem(req.Language),
			User:   user.String(),
			JSON:   true,
		}, nil

	default:
		return Prompt{}, fmt.Errorf("unsupported prompt kind %q", req.Kind)
	}
}

// BuildChat renders a follow-up question about one article. The article is
// the grounding context; history carries the earlier turns of the thread.
func (b *Builder) BuildChat(entry feeds.Entry, lang Language, history []insight.ChatTurn, question string) Prompt {
	system := fmt.Sprintf(`You are a careful news literacy assistant. Answer the reader's questions about the article below.
Base every answer on the article. When the article does not say, answer that it does not say.
Keep answers under 120 words. Plain text only, no markdown.
%s

=== ARTICLE ===
%s`, lang.scriptRule(), b.article(entry))

	turns := make([]insight.ChatTurn, len(history))
	copy(turns, history)

	return Prompt{
		System:  system,
		History: turns,
		User:    strings.TrimSpace(question),
	}
}

// article renders the entry header and its budget-truncated body.
func (b *Builder) article(e feeds.Entry) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Title: %s\n", e.Title)
	if e.Source != "" {
		fmt.Fprintf(&s, "Source: %s\n", e.Source)
	}
	if !e.PublishedAt.IsZero() {
		fmt.Fprintf(&s, "Published: %s\n", e.PublishedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	s.WriteString("Text:\n")
	s.WriteString(Truncate(e.Text(), b.Budget))
	return s.String()
}

// Truncate keeps the first budget runes of s. It is not sentence-aware.
func Truncate(s string, budget int) string {
	if budget <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == budget {
			return s[:i]
		}
		n++
	}
	return s
}

func singleSystem(lang Language) string {
	return fmt.Sprintf(`You are a media literacy analyst. Separate what the article reports as fact from opinion, framing and omissions.

Return ONLY one JSON object, no markdown fences, no commentary, with exactly these keys:
{
  "title": "neutral rewrite of the headline, at most 60 characters",
  "summary": "three sentence summary of what happened",
  "fact_ratio": integer 0-100, share of verifiable factual statements,
  "opinion_ratio": integer 0-100, share of opinion or interpretation, scored independently of fact_ratio,
  "stated_claim": "what the article openly argues or reports",
  "hidden_context": "framing, missing background or interests the article does not state",
  "rating": "FACT" or "MIXED" or "OPINION",
  "keywords": ["up to five keywords"],
  "sentiment": "HOT" or "NEUTRAL" or "COLD",
  "facts": [{"fact": "a checkable statement", "evidence": "the sentence from the article that supports it"}],
  "missing_viewpoints": "voices or counter-arguments the article leaves out",
  "verification_needed": "claims a reader should verify before trusting"
}

%s
Use %s for all values. Do not put line breaks inside string values.`, lang.scriptRule(), lang.Name())
}

func compareSystem(lang Language) string {
	return fmt.Sprintf(`You are a media literacy analyst comparing two reports of the same story.

Return ONLY one JSON object, no markdown fences, no commentary, with exactly these keys:
{
  "core_difference": "the single most important difference in how A and B frame the story",
  "side_a": {"stance_label": "short label for A's stance", "stance_score": integer -10 to 10, "summary": "how A tells it"},
  "side_b": {"stance_label": "short label for B's stance", "stance_score": integer -10 to 10, "summary": "how B tells it"},
  "key_points": ["three to five points a reader should notice"]
}
stance_score: -10 is strongly progressive, 0 is neutral, 10 is strongly conservative.

%s
Use %s for all values. Do not put line breaks inside string values.`, lang.scriptRule(), lang.Name())
}
