package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "logs", "app.log"), expandPath("~/logs/app.log"))
	assert.Equal(t, "/var/log/app.log", expandPath("/var/log/app.log"))
}

func TestEnsureDirCreatesNested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, ensureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRulesCommandRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["rules"])

	sub := make(map[string]bool)
	for _, cmd := range rulesCmd.Commands() {
		sub[cmd.Name()] = true
	}
	assert.True(t, sub["list"])
	assert.True(t, sub["purge"])
	assert.True(t, sub["terminate"])
}
