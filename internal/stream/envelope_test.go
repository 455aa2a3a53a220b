package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinePost(t *testing.T) {
	line := `{
		"data": {"id": "111", "text": "shipping it", "author_id": "9"},
		"includes": {"users": [{"id": "9", "username": "alice"}]},
		"matching_rules": [{"tag": "xmon:aaa"}, {"tag": "xmon:bbb"}]
	}`

	post, remoteErrors, err := parseLine([]byte(line))
	require.NoError(t, err)
	assert.Empty(t, remoteErrors)
	require.NotNil(t, post)
	assert.Equal(t, "111", post.ID)
	assert.Equal(t, "alice", post.AuthorUsername)
	assert.Equal(t, "shipping it", post.Text)
	assert.Equal(t, []string{"xmon:aaa", "xmon:bbb"}, post.MatchingTags)
}

func TestParseLineAuthorWithoutExpansion(t *testing.T) {
	line := `{"data": {"id": "1", "text": "hi", "author_id": "9"}, "matching_rules": [{"tag": "t"}]}`

	post, _, err := parseLine([]byte(line))
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Empty(t, post.AuthorUsername)
	assert.Equal(t, "9", post.AuthorID)
}

func TestParseLineRemoteErrors(t *testing.T) {
	line := `{"errors": [{"title": "OperationalDisconnect", "detail": "forced off", "value": "x"}]}`

	post, remoteErrors, err := parseLine([]byte(line))
	require.NoError(t, err)
	assert.Nil(t, post)
	assert.Equal(t, "OperationalDisconnect | forced off | value=x", remoteErrors)
}

func TestParseLineEmptyEnvelope(t *testing.T) {
	post, remoteErrors, err := parseLine([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, post)
	assert.Empty(t, remoteErrors)
}

func TestParseLineMalformed(t *testing.T) {
	_, _, err := parseLine([]byte(`{not json`))
	assert.Error(t, err)
}

func TestFormatAPIErrorsFallback(t *testing.T) {
	rendered := formatAPIErrors([]apiError{{}, {Title: "A"}})
	assert.Equal(t, "unknown error; A", rendered)
}
