package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRule(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2/tweets/search/stream/rules", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"add":[{"value":"\"rust rewrite\"","tag":"xmon:abc"}]}`, string(body))

		w.Write([]byte(`{"data":[{"id":"rule-9","tag":"xmon:abc"}]}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("token-1", server.URL)
	ruleID, err := client.AddRule(context.Background(), `"rust rewrite"`, "xmon:abc")
	require.NoError(t, err)
	assert.Equal(t, "rule-9", ruleID)
}

func TestAddRuleRemoteErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"title":"DuplicateRule","value":"from:alice"}]}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("t", server.URL)
	_, err := client.AddRule(context.Background(), "from:alice", "xmon:a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DuplicateRule")
}

func TestAddRuleHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("t", server.URL)
	_, err := client.AddRule(context.Background(), "q", "tag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestDeleteRuleNotFoundIsClassifiable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rule not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClientWithBaseURL("t", server.URL)
	err := client.DeleteRule(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestDeleteRuleIDsEmptyBatch(t *testing.T) {
	client := NewClientWithBaseURL("t", "http://127.0.0.1:0")
	count, err := client.DeleteRuleIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListRules(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"data":[{"id":"1","tag":"xmon:a"},{"id":"2","tag":"other"}]}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("t", server.URL)
	rules, err := client.ListRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "xmon:a", rules[0].Tag)
}

func TestDeleteRulesByTagPrefix(t *testing.T) {
	var deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"data":[{"id":"1","tag":"xmon:a"},{"id":"2","tag":"other"},{"id":"3","tag":"xmon:b"}]}`))
			return
		}
		body, _ := io.ReadAll(r.Body)
		deleted = string(body)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("t", server.URL)
	count, err := client.DeleteRulesByTagPrefix(context.Background(), "xmon:")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.JSONEq(t, `{"delete":{"ids":["1","3"]}}`, deleted)
}

func TestTerminateAllConnections(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected string
	}{
		{
			name:     "kill counts",
			response: `{"data":{"successful_kills":2,"failed_kills":1}}`,
			expected: "terminate-all complete (successful: 2, failed: 1)",
		},
		{
			name:     "nothing to kill",
			response: `{"data":{"killed_connections":false}}`,
			expected: "terminate-all complete (no active stream connections)",
		},
		{
			name:     "empty body",
			response: "",
			expected: "terminated all active stream connections",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/2/connections/all", r.URL.Path)
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewClientWithBaseURL("t", server.URL)
			summary, err := client.TerminateAllConnections(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, summary)
		})
	}
}

func TestTerminateAllConnectionsErrorsOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"title":"Oops"}]}`))
	}))
	defer server.Close()

	client := NewClientWithBaseURL("t", server.URL)
	_, err := client.TerminateAllConnections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Oops")
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.True(t, IsNotFound(errors.New("delete rule failed (404): gone")))
	assert.True(t, IsNotFound(errors.New("rule Not Found")))
}
