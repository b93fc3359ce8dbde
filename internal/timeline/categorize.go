package timeline

import (
	"strings"
	"unicode"
)

// placeholderText stands in for the commit messages of a session with none.
const placeholderText = "general development"

// CategoryRule maps keywords to a category. A keyword matches at the start
// of a word; a keyword containing spaces matches as a phrase.
type CategoryRule struct {
	Category      Category `json:"category"`
	Keywords      []string `json:"keywords"`
	Justification string   `json:"justification"`
}

// DefaultRules is the built-in rule table in priority order.
var DefaultRules = []CategoryRule{
	{
		Category: CategoryAIFramework,
		Keywords: []string{"ai", "nlp", "llm", "rag", "embedding", "vector", "langchain", "openai",
			"prompt", "semantic", "retrieval", "machine learning", "neural", "chunking"},
		Justification: "Development of a novel AI framework for document retrieval and natural language processing, addressing technical uncertainty in retrieval quality and model integration.",
	},
	{
		Category: CategoryAccessControl,
		Keywords: []string{"auth", "jwt", "login", "rbac", "permission", "role", "security", "oauth",
			"token", "password", "access control", "session management"},
		Justification: "Development of access control and security mechanisms, addressing technical uncertainty in role-based authorization for AI-assisted data access.",
	},
	{
		Category: CategoryPrivacyCloud,
		Keywords: []string{"privacy", "gdpr", "avg", "anonymi", "pseudonymi", "encrypt", "data protection",
			"pii", "consent", "cloud"},
		Justification: "Development of privacy-preserving cloud data processing, addressing technical uncertainty in GDPR-compliant handling of sensitive documents.",
	},
	{
		Category: CategoryAuditLogging,
		Keywords: []string{"audit", "logging", "log", "trace", "monitor", "telemetry"},
		Justification: "Development of audit logging and traceability for automated decisions, addressing technical uncertainty in tamper-evident activity recording.",
	},
	{
		Category: CategoryDataIntegrity,
		Keywords: []string{"integrity", "backup", "checksum", "hash", "validation", "restore",
			"migration", "consistency"},
		Justification: "Development of data integrity and recovery mechanisms, addressing technical uncertainty in consistency guarantees across the processing pipeline.",
	},
}

// GeneralRDJustification is used when no rule matches.
const GeneralRDJustification = "General research and development work on the experimental software platform, addressing technical uncertainty in system architecture and integration."

// Categorizer assigns a category using an ordered rule table. It has no
// state beyond the table and is safe for concurrent use.
type Categorizer struct {
	rules    []CategoryRule
	fallback CategoryRule
}

// NewCategorizer creates a Categorizer. A nil or empty rule table selects
// DefaultRules.
func NewCategorizer(rules []CategoryRule) *Categorizer {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	normalized := make([]CategoryRule, len(rules))
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = normalizeText(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		normalized[i] = CategoryRule{Category: r.Category, Keywords: kws, Justification: r.Justification}
	}
	return &Categorizer{
		rules:    normalized,
		fallback: CategoryRule{Category: CategoryGeneralRD, Justification: GeneralRDJustification},
	}
}

// Categorize returns the category and justification for a session, judged
// from its assigned commit messages.
func (c *Categorizer) Categorize(s WorkSession) (Category, string) {
	msgs := make([]string, 0, len(s.AssignedCommits))
	for _, commit := range s.AssignedCommits {
		msgs = append(msgs, commit.Message)
	}
	return c.CategorizeText(strings.Join(msgs, " "))
}

// CategorizeText applies the rule table to free text. First match wins.
func (c *Categorizer) CategorizeText(text string) (Category, string) {
	if strings.TrimSpace(text) == "" {
		text = placeholderText
	}
	// Leading and trailing spaces let " "+keyword find matches at a word
	// start anywhere, including the first word.
	padded := " " + normalizeText(text) + " "
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(padded, " "+kw) {
				return r.Category, r.Justification
			}
		}
	}
	return c.fallback.Category, c.fallback.Justification
}

// CategorizeAll sets Category and Justification on every session and
// returns the updated copies.
func (c *Categorizer) CategorizeAll(sessions []WorkSession) []WorkSession {
	out := make([]WorkSession, len(sessions))
	for i, s := range sessions {
		s.Category, s.Justification = c.Categorize(s)
		out[i] = s
	}
	return out
}

// normalizeText lower-cases and replaces every run of non-alphanumerics with
// a single space.
func normalizeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			space = false
			continue
		}
		if !space && sb.Len() > 0 {
			sb.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(sb.String())
}
