package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MonitorKind distinguishes account watches from phrase watches.
type MonitorKind string

const (
	KindAccount MonitorKind = "account"
	KindPhrase  MonitorKind = "phrase"
)

// Display returns the user-facing name of the kind
func (k MonitorKind) Display() string {
	switch k {
	case KindAccount:
		return "Account"
	case KindPhrase:
		return "Phrase"
	default:
		return string(k)
	}
}

// AnalysisSettings holds the per-monitor AI summarization configuration.
// Endpoint and APIKey override the named provider's defaults when set.
type AnalysisSettings struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	Prompt   string `json:"prompt"`
}

// Monitor is a user-defined watch against the filtered stream.
//
// RuleTag is generated once when the monitor is created and never changes,
// even across edits; it is the only stable correlation between stream
// results and local state, since RuleID is replaced on every reconnect.
// RuleID is non-empty exactly when a rule is believed to exist remotely.
type Monitor struct {
	ID         uuid.UUID        `json:"id"`
	Label      string           `json:"label"`
	Kind       MonitorKind      `json:"kind"`
	Enabled    bool             `json:"enabled"`
	InputValue string           `json:"input_value"`
	Query      string           `json:"query"`
	RuleID     string           `json:"rule_id"`
	RuleTag    string           `json:"rule_tag"`
	Analysis   AnalysisSettings `json:"analysis"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewRuleTag generates a fresh correlation tag for a monitor ID.
func NewRuleTag(id uuid.UUID) string {
	return "xmon:" + strings.ReplaceAll(id.String(), "-", "")
}

// StreamPost is a post delivered by the filtered stream, together with the
// tags of the remote rules it matched.
type StreamPost struct {
	ID             string
	AuthorID       string
	AuthorUsername string
	Text           string
	MatchingTags   []string
}

// URL returns a deep link to the post on x.com
func (p StreamPost) URL() string {
	if p.AuthorUsername != "" {
		return "https://x.com/" + p.AuthorUsername + "/status/" + p.ID
	}
	return "https://x.com/i/web/status/" + p.ID
}

// Author returns the best available author display for the post
func (p StreamPost) Author() string {
	if p.AuthorUsername != "" {
		return p.AuthorUsername
	}
	if p.AuthorID != "" {
		return p.AuthorID
	}
	return "unknown"
}
