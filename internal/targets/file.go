package targets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/penwyp/go-x-monitor/internal/core/model"
)

// TargetMonitor is the parsed content of one target file: everything needed
// to create or re-apply a monitor.
type TargetMonitor struct {
	Label    string
	Kind     model.MonitorKind
	Target   string
	Analysis model.AnalysisSettings
}

// Entry is one file in the targets directory. Parse failures are carried
// per entry so one broken file never hides the rest. Sample marks the
// unedited sample file, which must not be applied as a monitor.
type Entry struct {
	FileName string
	Path     string
	Parsed   *TargetMonitor
	Sample   bool
	Err      string
}

type rawAISection struct {
	Enabled  *bool  `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Prompt   string `yaml:"prompt"`
}

type rawTargetFile struct {
	Label       string        `yaml:"label"`
	DisplayName string        `yaml:"display_name"`
	Kind        string        `yaml:"kind"`
	Target      string        `yaml:"target"`
	AI          *rawAISection `yaml:"ai"`

	// Flat aliases for the nested ai section.
	AIEnabled  *bool  `yaml:"ai_enabled"`
	AIProvider string `yaml:"ai_provider"`
	AIModel    string `yaml:"ai_model"`
	AIEndpoint string `yaml:"ai_endpoint"`
	AIAPIKey   string `yaml:"ai_api_key"`
	AIPrompt   string `yaml:"ai_prompt"`
}

// ParseFile decodes one target file. The flat ai_* keys take precedence over
// the nested ai section; ai.enabled defaults to true when any ai value is
// set.
func ParseFile(raw []byte) (*TargetMonitor, error) {
	var parsed rawTargetFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid YAML format for target config: %w", err)
	}

	kind, err := ParseKind(parsed.Kind)
	if err != nil {
		return nil, err
	}

	target := strings.TrimSpace(parsed.Target)
	if target == "" {
		return nil, fmt.Errorf("target cannot be empty")
	}

	ai := parsed.AI
	if ai == nil {
		ai = &rawAISection{}
	}

	provider := firstNonEmpty(parsed.AIProvider, ai.Provider)
	aiModel := firstNonEmpty(parsed.AIModel, ai.Model)
	endpoint := firstNonEmpty(parsed.AIEndpoint, ai.Endpoint)
	apiKey := firstNonEmpty(parsed.AIAPIKey, ai.APIKey)
	prompt := firstNonEmpty(parsed.AIPrompt, ai.Prompt)

	anyAIValue := provider != "" || aiModel != "" || endpoint != "" || apiKey != "" || prompt != ""
	enabled := anyAIValue
	if parsed.AIEnabled != nil {
		enabled = *parsed.AIEnabled
	} else if ai.Enabled != nil {
		enabled = *ai.Enabled
	}

	return &TargetMonitor{
		Label:  firstNonEmpty(parsed.Label, parsed.DisplayName),
		Kind:   kind,
		Target: target,
		Analysis: model.AnalysisSettings{
			Enabled:  enabled,
			Provider: provider,
			Model:    aiModel,
			Endpoint: endpoint,
			APIKey:   apiKey,
			Prompt:   prompt,
		},
	}, nil
}

// ParseKind accepts the account/phrase aliases used in target files.
func ParseKind(kind string) (model.MonitorKind, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "account", "accounts", "acct":
		return model.KindAccount, nil
	case "phrase", "phrases", "keyword", "keywords":
		return model.KindPhrase, nil
	default:
		return "", fmt.Errorf("kind must be 'account' or 'phrase'")
	}
}

// LoadEntries lists the target files in dir, sorted case-insensitively by
// file name. The directory is created when missing.
func LoadEntries(dir string) ([]Entry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var entries []Entry
	for _, item := range items {
		if item.IsDir() || !isTargetFile(item.Name()) {
			continue
		}

		path := filepath.Join(dir, item.Name())
		entry := Entry{FileName: item.Name(), Path: path}

		raw, err := os.ReadFile(path)
		if err != nil {
			entry.Err = fmt.Sprintf("failed to read file: %v", err)
			entries = append(entries, entry)
			continue
		}

		entry.Sample = IsSample(raw)
		parsed, err := ParseFile(raw)
		if err != nil {
			entry.Err = err.Error()
		} else {
			entry.Parsed = parsed
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].FileName) < strings.ToLower(entries[j].FileName)
	})
	return entries, nil
}

func isTargetFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
