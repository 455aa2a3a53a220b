package targets

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

const sampleFileName = "example-account.yaml"

const sampleTargetFile = `label: "Example account watch"
kind: account
target: "@handle_1, handle2, @handle_3"
ai:
  enabled: true
  provider: grok
  model: grok-4-1-fast-non-reasoning
  prompt: "Summarize why this post matters and what to watch next."
`

// PrepareDir resolves the targets directory to an absolute path, creates it,
// and drops a sample target file if none exists yet. Returns the resolved
// path.
func PrepareDir(dir string) (string, error) {
	resolved, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve targets directory: %w", err)
	}

	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return "", fmt.Errorf("failed to create targets directory %s: %w", resolved, err)
	}

	samplePath := filepath.Join(resolved, sampleFileName)
	if _, err := os.Stat(samplePath); os.IsNotExist(err) {
		if err := os.WriteFile(samplePath, []byte(sampleTargetFile), 0o644); err != nil {
			return "", fmt.Errorf("failed to write example target file at %s: %w", samplePath, err)
		}
	}
	return resolved, nil
}

// IsSample reports whether raw is the untouched sample target file. The
// sample is documentation with placeholder handles; it is never applied as a
// monitor until the user edits it.
func IsSample(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), bytes.TrimSpace([]byte(sampleTargetFile)))
}
