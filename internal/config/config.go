package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the on-disk application configuration.
type AppConfig struct {
	BearerToken       string       `yaml:"x_bearer_token"`
	StatePath         string       `yaml:"state_path"`
	TargetsDir        string       `yaml:"targets_dir"`
	DefaultAIProvider string       `yaml:"default_ai_provider"`
	AIProviders       []AIProvider `yaml:"ai_providers"`
}

// Default returns the configuration used when no file exists yet.
func Default() *AppConfig {
	return &AppConfig{
		StatePath:         filepath.Join(baseDir(), "state.json"),
		TargetsDir:        filepath.Join(baseDir(), "targets"),
		DefaultAIProvider: defaultProviderName,
		AIProviders:       defaultProviders(),
	}
}

// baseDir is the per-user data directory. Falls back to the working
// directory when the home directory cannot be determined.
func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".go-x-monitor"
	}
	return filepath.Join(home, ".go-x-monitor")
}

// DefaultPath returns the config file location when neither --config nor
// X_MONITOR_CONFIG is set.
func DefaultPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

// Load reads the configuration. Path precedence: the explicit path argument,
// then X_MONITOR_CONFIG, then DefaultPath. A missing file is written out
// with defaults; created reports that. Environment variables override the
// file contents afterwards.
func Load(path string) (cfg *AppConfig, configPath string, created bool, err error) {
	configPath = strings.TrimSpace(path)
	if configPath == "" {
		configPath = firstNonEmptyEnv("X_MONITOR_CONFIG", "x_monitor_config")
	}
	if configPath == "" {
		configPath = DefaultPath()
	}

	raw, readErr := os.ReadFile(configPath)
	switch {
	case readErr == nil:
		cfg = &AppConfig{}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, configPath, false, fmt.Errorf("invalid config at %s: %w", configPath, err)
		}
	case os.IsNotExist(readErr):
		cfg = Default()
		if err := writeDefault(configPath, cfg); err != nil {
			return nil, configPath, false, err
		}
		created = true
	default:
		return nil, configPath, false, fmt.Errorf("failed to read %s: %w", configPath, readErr)
	}

	applyEnvOverrides(cfg)
	normalize(cfg)
	return cfg, configPath, created, nil
}

func writeDefault(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	rendered, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render default config: %w", err)
	}
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if token := firstNonEmptyEnv("X_BEARER_TOKEN", "x_bearer_token"); token != "" {
		cfg.BearerToken = token
	}
	if dir := firstNonEmptyEnv("X_MONITOR_TARGETS_DIR", "x_monitor_targets_dir"); dir != "" {
		cfg.TargetsDir = dir
	}
	if provider := firstNonEmptyEnv("X_MONITOR_DEFAULT_AI_PROVIDER", "x_monitor_default_ai_provider"); provider != "" {
		cfg.DefaultAIProvider = provider
	}
}

// normalize fills unset paths, merges the built-in provider table with user
// entries, and repairs a default provider name that matches nothing.
func normalize(cfg *AppConfig) {
	if strings.TrimSpace(cfg.StatePath) == "" {
		cfg.StatePath = filepath.Join(baseDir(), "state.json")
	}
	if strings.TrimSpace(cfg.TargetsDir) == "" {
		cfg.TargetsDir = filepath.Join(baseDir(), "targets")
	}

	if len(cfg.AIProviders) == 0 {
		cfg.AIProviders = defaultProviders()
	} else {
		cfg.AIProviders = mergeDefaultProviders(cfg.AIProviders)
	}

	if cfg.ProviderByName(cfg.DefaultAIProvider) == nil {
		cfg.DefaultAIProvider = cfg.AIProviders[0].Name
	}
}

// ProviderByName finds a provider case-insensitively.
func (c *AppConfig) ProviderByName(name string) *AIProvider {
	for i := range c.AIProviders {
		if strings.EqualFold(c.AIProviders[i].Name, name) {
			return &c.AIProviders[i]
		}
	}
	return nil
}

// ProviderNames lists the configured provider names in order.
func (c *AppConfig) ProviderNames() []string {
	names := make([]string, 0, len(c.AIProviders))
	for _, provider := range c.AIProviders {
		names = append(names, provider.Name)
	}
	return names
}

// ResolveProvider returns a provider with its API key resolved, or nil when
// the provider is unknown or has no usable key.
func (c *AppConfig) ResolveProvider(name string) *ResolvedProvider {
	provider := c.ProviderByName(name)
	if provider == nil {
		return nil
	}
	key, ok := provider.ResolvedAPIKey()
	if !ok {
		return nil
	}
	return &ResolvedProvider{
		Name:    provider.Name,
		BaseURL: provider.BaseURL,
		Model:   provider.Model,
		APIKey:  key,
	}
}

func firstNonEmptyEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
