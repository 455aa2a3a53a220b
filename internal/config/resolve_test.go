package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-x-monitor/internal/core/model"
)

func TestResolveAPIKeyInput(t *testing.T) {
	t.Setenv("MONITOR_AI_KEY", "sk-env")

	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{name: "literal key", input: "sk-abc123", expected: "sk-abc123", ok: true},
		{name: "bare env var name", input: "MONITOR_AI_KEY", expected: "sk-env", ok: true},
		{name: "dollar env var", input: "$MONITOR_AI_KEY", expected: "sk-env", ok: true},
		{name: "dollar non var stays literal", input: "$not-a-var", expected: "$not-a-var", ok: true},
		{name: "unset env var", input: "MONITOR_AI_KEY_MISSING", ok: false},
		{name: "empty", input: "   ", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := ResolveAPIKeyInput(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, value)
			}
		})
	}
}

func testConfig() *AppConfig {
	return &AppConfig{
		DefaultAIProvider: "grok",
		AIProviders: []AIProvider{
			{Name: "grok", BaseURL: "https://api.x.ai/v1", Model: "grok-4", APIKey: "sk-grok"},
			{Name: "keyless", BaseURL: "https://keyless.example/v1", Model: "keyless-1"},
			{Name: "custom"},
		},
	}
}

func TestEffectiveProviderDefaults(t *testing.T) {
	provider, err := testConfig().EffectiveProvider(model.AnalysisSettings{Provider: "grok"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.x.ai/v1", provider.BaseURL)
	assert.Equal(t, "grok-4", provider.Model)
	assert.Equal(t, "sk-grok", provider.APIKey)
}

func TestEffectiveProviderMonitorOverrides(t *testing.T) {
	provider, err := testConfig().EffectiveProvider(model.AnalysisSettings{
		Provider: "grok",
		Model:    "grok-4-mini",
		Endpoint: "https://proxy.example/v1",
		APIKey:   "sk-override",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example/v1", provider.BaseURL)
	assert.Equal(t, "grok-4-mini", provider.Model)
	assert.Equal(t, "sk-override", provider.APIKey)
}

func TestEffectiveProviderKeyOverrideUnlocksKeylessProvider(t *testing.T) {
	provider, err := testConfig().EffectiveProvider(model.AnalysisSettings{
		Provider: "keyless",
		APIKey:   "sk-monitor",
	})
	require.NoError(t, err)
	assert.Equal(t, "keyless-1", provider.Model)
	assert.Equal(t, "sk-monitor", provider.APIKey)
}

func TestEffectiveProviderErrors(t *testing.T) {
	cfg := testConfig()

	_, err := cfg.EffectiveProvider(model.AnalysisSettings{Provider: "nope"})
	assert.EqualError(t, err, "AI provider 'nope' is not configured")

	_, err = cfg.EffectiveProvider(model.AnalysisSettings{Provider: "keyless"})
	assert.EqualError(t, err, "AI provider 'keyless' missing or no API key available")

	_, err = cfg.EffectiveProvider(model.AnalysisSettings{Provider: "custom", APIKey: "sk-x"})
	assert.EqualError(t, err, "model ID is empty")
}
