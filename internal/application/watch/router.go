package watch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/penwyp/go-x-monitor/internal/ai"
	"github.com/penwyp/go-x-monitor/internal/config"
	"github.com/penwyp/go-x-monitor/internal/core/model"
)

// Analyzer is the slice of the AI client the router needs. Satisfied by
// *ai.Client.
type Analyzer interface {
	AnalyzePost(ctx context.Context, req ai.Request) (string, error)
}

// handleStreamPost routes one stream post: the post lands in the feed with
// the labels of every enabled monitor whose tag matched, and each matched
// monitor with analysis enabled gets its own isolated analysis task. One
// monitor's misconfiguration never blocks the others.
func (o *Orchestrator) handleStreamPost(post model.StreamPost) {
	var matched []model.Monitor
	seen := make(map[uuid.UUID]struct{})
	for _, tag := range post.MatchingTags {
		monitor, ok := o.store.MonitorByTag(tag)
		if !ok || !monitor.Enabled {
			continue
		}
		if _, dup := seen[monitor.ID]; dup {
			continue
		}
		seen[monitor.ID] = struct{}{}
		matched = append(matched, monitor)
	}

	labels := make([]string, 0, len(matched))
	for _, monitor := range matched {
		labels = append(labels, monitor.Label)
	}
	o.store.PushPost(post, labels)

	for _, monitor := range matched {
		if !monitor.Analysis.Enabled {
			continue
		}
		o.dispatchAnalysis(monitor, post)
	}
}

func (o *Orchestrator) dispatchAnalysis(monitor model.Monitor, post model.StreamPost) {
	provider, err := o.cfg.EffectiveProvider(monitor.Analysis)
	if err != nil {
		if errors.Is(err, config.ErrEmptyModel) {
			o.store.PushError(fmt.Sprintf("analysis skipped for '%s' because model ID is empty", monitor.Label))
		} else {
			o.store.PushError(err.Error())
		}
		return
	}

	req := ai.Request{
		Endpoint: provider.BaseURL,
		APIKey:   provider.APIKey,
		Model:    provider.Model,
		Prompt:   monitor.Analysis.Prompt,
		PostText: post.Text,
	}
	label := monitor.Label
	providerName := provider.Name
	modelID := provider.Model
	url := post.URL()

	go func() {
		output, err := o.analyzer.AnalyzePost(context.Background(), req)
		o.bus.Send(model.AnalysisCompletedMsg{
			MonitorLabel: label,
			Provider:     providerName,
			Model:        modelID,
			Output:       output,
			URL:          url,
			Err:          errText(err),
		})
	}()
}
