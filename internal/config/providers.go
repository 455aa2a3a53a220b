package config

import (
	"os"
	"strings"
)

const defaultProviderName = "grok"

// AIProvider is one entry in the provider table. The API key may be given
// inline or named via an environment variable.
type AIProvider struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// ResolvedProvider is a provider ready for dispatch: the key is a literal
// value, never an env-var reference.
type ResolvedProvider struct {
	Name    string
	BaseURL string
	Model   string
	APIKey  string
}

// ResolvedAPIKey returns the usable API key: the inline value when present,
// else the referenced environment variable. Blank values do not count.
func (p *AIProvider) ResolvedAPIKey() (string, bool) {
	if key := strings.TrimSpace(p.APIKey); key != "" {
		return key, true
	}
	if p.APIKeyEnv != "" {
		if key := strings.TrimSpace(os.Getenv(p.APIKeyEnv)); key != "" {
			return key, true
		}
	}
	return "", false
}

func defaultProviders() []AIProvider {
	return []AIProvider{
		{
			Name:      "grok",
			BaseURL:   "https://api.x.ai/v1",
			Model:     "grok-4-1-fast-non-reasoning",
			APIKeyEnv: "XAI_API_KEY",
		},
		{
			Name:      "openrouter",
			BaseURL:   "https://openrouter.ai/api/v1",
			Model:     "x-ai/grok-4.1-fast",
			APIKeyEnv: "OPENROUTER_API_KEY",
		},
		{
			Name:      "gemini",
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta/openai",
			Model:     "gemini-3-flash-preview",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		{
			Name:      "openai",
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-5-nano",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		{
			Name: "custom",
		},
	}
}

// mergeDefaultProviders keeps user-supplied entries but guarantees every
// built-in provider exists, in canonical order. Extra user providers follow
// at the end.
func mergeDefaultProviders(existing []AIProvider) []AIProvider {
	remaining := make([]AIProvider, len(existing))
	copy(remaining, existing)

	merged := make([]AIProvider, 0, len(existing)+5)
	for _, def := range defaultProviders() {
		found := -1
		for i, provider := range remaining {
			if strings.EqualFold(provider.Name, def.Name) {
				found = i
				break
			}
		}
		if found >= 0 {
			merged = append(merged, remaining[found])
			remaining = append(remaining[:found], remaining[found+1:]...)
		} else {
			merged = append(merged, def)
		}
	}
	return append(merged, remaining...)
}
