package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamPostURL(t *testing.T) {
	withUsername := StreamPost{ID: "123", AuthorUsername: "alice"}
	assert.Equal(t, "https://x.com/alice/status/123", withUsername.URL())

	anonymous := StreamPost{ID: "123"}
	assert.Equal(t, "https://x.com/i/web/status/123", anonymous.URL())
}

func TestStreamPostAuthor(t *testing.T) {
	assert.Equal(t, "alice", StreamPost{AuthorUsername: "alice", AuthorID: "9"}.Author())
	assert.Equal(t, "9", StreamPost{AuthorID: "9"}.Author())
	assert.Equal(t, "unknown", StreamPost{}.Author())
}

func TestFeedItemSummary(t *testing.T) {
	post := NewPostItem(StreamPost{ID: "1", AuthorUsername: "bob", Text: "line1\nline2"}, []string{"Rust", "Go"})
	summary := post.Summary()
	assert.Contains(t, summary, "POST @bob")
	assert.Contains(t, summary, "monitor: Rust, Go")
	assert.Contains(t, summary, "line1 line2")
	assert.NotContains(t, summary, "\n")

	unmatched := NewPostItem(StreamPost{ID: "1", AuthorUsername: "bob", Text: "hi"}, nil)
	assert.Contains(t, unmatched.Summary(), "monitor: unknown")

	analysis := NewAnalysisItem("Rust", "grok", "grok-4", "matters because", "https://x.com/1")
	assert.Contains(t, analysis.Summary(), "AI (grok:grok-4) [Rust]")

	info := NewInfoItem("stream connected")
	assert.Contains(t, info.Summary(), "INFO stream connected")

	errItem := NewErrorItem("boom")
	assert.Contains(t, errItem.Summary(), "ERROR boom")
}
