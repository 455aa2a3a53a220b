package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryAccount(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		expected string
	}{
		{
			name:     "single handle",
			target:   "elonmusk",
			expected: "from:elonmusk",
		},
		{
			name:     "handle with at prefix",
			target:   "@elonmusk",
			expected: "from:elonmusk",
		},
		{
			name:     "multiple handles",
			target:   "@a, b, @c",
			expected: "(from:a OR from:b OR from:c)",
		},
		{
			name:     "duplicate handles collapse case-insensitively",
			target:   "Alice, alice, @ALICE",
			expected: "from:Alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := BuildQuery(KindAccount, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, query)
		})
	}
}

func TestBuildQueryPhrase(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		expected string
	}{
		{
			name:     "single word passes through",
			target:   "golang",
			expected: "golang",
		},
		{
			name:     "phrase with space gets quoted",
			target:   "rust rewrite",
			expected: `"rust rewrite"`,
		},
		{
			name:     "already quoted phrase is kept",
			target:   `"rust rewrite"`,
			expected: `"rust rewrite"`,
		},
		{
			name:     "embedded quotes are escaped",
			target:   `so "fast" really`,
			expected: `"so \"fast\" really"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := BuildQuery(KindPhrase, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, query)
		})
	}
}

func TestBuildQueryRejectsEmptyTarget(t *testing.T) {
	_, err := BuildQuery(KindPhrase, "   ")
	assert.Error(t, err)

	_, err = BuildQuery(KindAccount, "")
	assert.Error(t, err)
}

func TestParseAccountHandles(t *testing.T) {
	handles, err := ParseAccountHandles("@handle_1, handle2, @handle_3")
	require.NoError(t, err)
	assert.Equal(t, []string{"handle_1", "handle2", "handle_3"}, handles)
}

func TestParseAccountHandlesInvalid(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "embedded space", target: "bad handle"},
		{name: "punctuation", target: "not-valid"},
		{name: "only separators", target: ", ,, @"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccountHandles(tt.target)
			assert.Error(t, err)
		})
	}
}

func TestNewRuleTag(t *testing.T) {
	monitor := Monitor{}
	tag1 := NewRuleTag(monitor.ID)
	assert.Contains(t, tag1, "xmon:")
	assert.NotContains(t, tag1, "-")
}
