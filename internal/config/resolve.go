package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/penwyp/go-x-monitor/internal/core/model"
)

// ErrEmptyModel means neither the monitor nor the provider names a model.
var ErrEmptyModel = errors.New("model ID is empty")

// ResolveAPIKeyInput interprets a monitor-level API key field. The value may
// be a literal key, an environment variable name, or a $-prefixed variable
// reference. Returns false when the field is empty or the referenced
// variable is unset.
func ResolveAPIKeyInput(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}

	if name, ok := strings.CutPrefix(trimmed, "$"); ok {
		if isEnvVarName(name) {
			return lookupNonEmpty(name)
		}
		return trimmed, true
	}

	if isEnvVarName(trimmed) {
		return lookupNonEmpty(trimmed)
	}
	return trimmed, true
}

func lookupNonEmpty(name string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(name))
	return value, value != ""
}

func isEnvVarName(name string) bool {
	if name == "" {
		return false
	}
	for _, ch := range name {
		if ch != '_' && !(ch >= 'A' && ch <= 'Z') && !(ch >= '0' && ch <= '9') {
			return false
		}
	}
	return true
}

// EffectiveProvider resolves the provider, model, endpoint and API key for
// one monitor's analysis settings. Monitor-level endpoint and key overrides
// beat the named provider's values; the monitor model falls back to the
// provider model.
func (c *AppConfig) EffectiveProvider(settings model.AnalysisSettings) (*ResolvedProvider, error) {
	providerConfig := c.ProviderByName(settings.Provider)
	if providerConfig == nil {
		return nil, fmt.Errorf("AI provider '%s' is not configured", settings.Provider)
	}

	keyOverride, hasKeyOverride := ResolveAPIKeyInput(settings.APIKey)

	provider := c.ResolveProvider(settings.Provider)
	if provider == nil {
		if !hasKeyOverride {
			return nil, fmt.Errorf("AI provider '%s' missing or no API key available", settings.Provider)
		}
		provider = &ResolvedProvider{
			Name:    providerConfig.Name,
			BaseURL: providerConfig.BaseURL,
			Model:   providerConfig.Model,
			APIKey:  keyOverride,
		}
	}

	model := strings.TrimSpace(settings.Model)
	if model == "" {
		model = provider.Model
	}
	if model == "" {
		return nil, ErrEmptyModel
	}
	provider.Model = model

	if endpoint := strings.TrimSpace(settings.Endpoint); endpoint != "" {
		provider.BaseURL = endpoint
	}
	if hasKeyOverride {
		provider.APIKey = keyOverride
	}
	return provider, nil
}
