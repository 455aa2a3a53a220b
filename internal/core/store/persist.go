package store

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-x-monitor/internal/core/model"
)

// stateDocument is the on-disk shape of the monitor list.
type stateDocument struct {
	Monitors []model.Monitor `json:"monitors"`
}

// LoadMonitors reads the persisted monitor list. A missing file is not an
// error: it yields an empty list.
func LoadMonitors(path string) ([]model.Monitor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read monitor state at %s: %w", path, err)
	}

	var doc stateDocument
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid monitor state at %s: %w", path, err)
	}
	return doc.Monitors, nil
}

// SaveMonitors writes the monitor list. Best effort: callers surface the
// error to the feed but keep the in-memory state authoritative.
func (s *MonitorStore) SaveMonitors(path string) error {
	doc := stateDocument{Monitors: s.Monitors()}
	if doc.Monitors == nil {
		doc.Monitors = []model.Monitor{}
	}

	body, err := sonic.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize monitor state: %w", err)
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
