package watch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-x-monitor/internal/ai"
	"github.com/penwyp/go-x-monitor/internal/core/model"
)

// fakeAnalyzer records analysis requests. errByPrompt fails requests whose
// monitor prompt matches, so one monitor's outcome can differ from another's
// for the same post.
type fakeAnalyzer struct {
	mu          sync.Mutex
	calls       []ai.Request
	output      string
	errByPrompt map[string]error
}

func (f *fakeAnalyzer) AnalyzePost(_ context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err := f.errByPrompt[req.Prompt]; err != nil {
		return "", err
	}
	if f.output != "" {
		return f.output, nil
	}
	return "analysis output", nil
}

func (f *fakeAnalyzer) requests() []ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ai.Request, len(f.calls))
	copy(out, f.calls)
	return out
}

func withAnalysis(m model.Monitor, provider, prompt string) model.Monitor {
	m.Analysis = model.AnalysisSettings{
		Enabled:  true,
		Provider: provider,
		Prompt:   prompt,
	}
	return m
}

func streamPost(text string, tags ...string) model.StreamPost {
	return model.StreamPost{
		ID:             "1801",
		AuthorID:       "42",
		AuthorUsername: "poster",
		Text:           text,
		MatchingTags:   tags,
	}
}

func TestPostFansOutToMatchedMonitors(t *testing.T) {
	alice := withAnalysis(accountMonitor(t, "alice", "@alice"), "grok", "watch alice")
	bob := withAnalysis(accountMonitor(t, "bob", "@bob"), "grok", "watch bob")
	f := newFixture(t, alice, bob)

	analyzer := &fakeAnalyzer{errByPrompt: map[string]error{"watch bob": errors.New("rate limited")}}
	f.o.analyzer = analyzer

	f.o.handleStreamPost(streamPost("big news", alice.RuleTag, bob.RuleTag, "xmon:unknown"))

	feed := f.store.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, model.FeedPost, feed[0].Kind)
	assert.Equal(t, []string{"alice", "bob"}, feed[0].Monitors)

	first := waitMessage(t, f.bus)
	second := waitMessage(t, f.bus)
	f.o.applyMessage(first)
	f.o.applyMessage(second)

	requireFeedContains(t, f.store, "AI (grok:grok-test) [alice] analysis output")
	requireFeedContains(t, f.store, "analysis failed for 'bob' via grok:grok-test: rate limited")

	reqs := analyzer.requests()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.Equal(t, "https://api.x.ai/v1", req.Endpoint)
		assert.Equal(t, "grok-test", req.Model)
		assert.Equal(t, "big news", req.PostText)
	}
}

func TestPostWithoutMatchStillRecorded(t *testing.T) {
	alice := accountMonitor(t, "alice", "@alice")
	f := newFixture(t, alice)

	f.o.handleStreamPost(streamPost("stray post", "xmon:someoneelse"))

	feed := f.store.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, model.FeedPost, feed[0].Kind)
	assert.Empty(t, feed[0].Monitors)
	assert.Contains(t, feed[0].Summary(), "monitor: unknown")
}

func TestDisabledMonitorDoesNotMatch(t *testing.T) {
	alice := accountMonitor(t, "alice", "@alice")
	alice.Enabled = false
	f := newFixture(t, alice)

	f.o.handleStreamPost(streamPost("quiet", alice.RuleTag))

	feed := f.store.Feed()
	require.Len(t, feed, 1)
	assert.Empty(t, feed[0].Monitors)
}

func TestDuplicateTagsMatchOnce(t *testing.T) {
	alice := accountMonitor(t, "alice", "@alice")
	f := newFixture(t, alice)

	f.o.handleStreamPost(streamPost("echo", alice.RuleTag, alice.RuleTag))

	feed := f.store.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, []string{"alice"}, feed[0].Monitors)
}

func TestAnalysisSkippedWhenModelEmpty(t *testing.T) {
	alice := withAnalysis(accountMonitor(t, "alice", "@alice"), "nomodel", "watch alice")
	f := newFixture(t, alice)
	analyzer := &fakeAnalyzer{}
	f.o.analyzer = analyzer

	f.o.handleStreamPost(streamPost("news", alice.RuleTag))

	requireFeedContains(t, f.store, "analysis skipped for 'alice' because model ID is empty")
	assert.Empty(t, analyzer.requests())
}

func TestAnalysisUnknownProvider(t *testing.T) {
	alice := withAnalysis(accountMonitor(t, "alice", "@alice"), "nope", "watch alice")
	f := newFixture(t, alice)
	analyzer := &fakeAnalyzer{}
	f.o.analyzer = analyzer

	f.o.handleStreamPost(streamPost("news", alice.RuleTag))

	requireFeedContains(t, f.store, "AI provider 'nope' is not configured")
	assert.Empty(t, analyzer.requests())
}

func TestAnalysisDisabledMonitorNotDispatched(t *testing.T) {
	alice := accountMonitor(t, "alice", "@alice")
	f := newFixture(t, alice)
	analyzer := &fakeAnalyzer{}
	f.o.analyzer = analyzer

	f.o.handleStreamPost(streamPost("news", alice.RuleTag))

	feed := f.store.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, []string{"alice"}, feed[0].Monitors)
	assert.Empty(t, analyzer.requests())
}

func TestAnalysisResultCarriesPostURL(t *testing.T) {
	alice := withAnalysis(accountMonitor(t, "alice", "@alice"), "grok", "watch alice")
	f := newFixture(t, alice)
	f.o.analyzer = &fakeAnalyzer{output: "summary"}

	f.o.handleStreamPost(streamPost("news", alice.RuleTag))
	f.o.applyMessage(waitMessage(t, f.bus))

	feed := f.store.Feed()
	var analysis *model.FeedItem
	for i := range feed {
		if feed[i].Kind == model.FeedAnalysis {
			analysis = &feed[i]
			break
		}
	}
	require.NotNil(t, analysis)
	assert.Equal(t, "https://x.com/poster/status/1801", analysis.URL)
	assert.Equal(t, "summary", analysis.Output)
}
