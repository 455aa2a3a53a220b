package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	defaultBaseURL = "https://api.x.com"

	// Rule CRUD and connection management calls carry a fixed timeout.
	// The streaming request itself never times out on read; it relies on
	// cancellation or remote closure.
	apiRequestTimeout    = 30 * time.Second
	streamConnectTimeout = 15 * time.Second
	streamTCPKeepalive   = 30 * time.Second
)

// Client talks to the rule-management and filtered-stream endpoints with a
// bearer credential.
type Client struct {
	http    *http.Client
	baseURL string
	bearer  string
}

// Rule is one remote filter rule.
type Rule struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}

// NewClient creates a client for the production endpoint.
func NewClient(bearerToken string) *Client {
	return NewClientWithBaseURL(bearerToken, defaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom endpoint,
// primarily for tests.
func NewClientWithBaseURL(bearerToken, baseURL string) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   streamConnectTimeout,
			KeepAlive: streamTCPKeepalive,
		}).DialContext,
	}
	return &Client{
		// The client itself is timeout-free so streaming connections can
		// stay open; non-stream requests get per-request contexts.
		http:    &http.Client{Transport: transport},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		bearer:  bearerToken,
	}
}

type addRuleBody struct {
	Add []addRule `json:"add"`
}

type addRule struct {
	Value string `json:"value"`
	Tag   string `json:"tag"`
}

type deleteRuleBody struct {
	Delete deleteRule `json:"delete"`
}

type deleteRule struct {
	IDs []string `json:"ids"`
}

type ruleResponse struct {
	Data   []Rule     `json:"data"`
	Errors []apiError `json:"errors"`
}

type terminateResponse struct {
	Data   *terminateData `json:"data"`
	Errors []apiError     `json:"errors"`
}

type terminateData struct {
	KilledConnections *bool  `json:"killed_connections"`
	SuccessfulKills   *int64 `json:"successful_kills"`
	FailedKills       *int64 `json:"failed_kills"`
}

// AddRule creates one remote rule and returns its ID.
func (c *Client) AddRule(ctx context.Context, query, tag string) (string, error) {
	body := addRuleBody{Add: []addRule{{Value: query, Tag: tag}}}

	var parsed ruleResponse
	if err := c.doJSON(ctx, http.MethodPost, "/2/tweets/search/stream/rules", body, &parsed, "add rule"); err != nil {
		return "", err
	}
	if len(parsed.Errors) > 0 {
		return "", fmt.Errorf("add rule returned errors: %s", formatAPIErrors(parsed.Errors))
	}
	if len(parsed.Data) == 0 {
		return "", fmt.Errorf("add rule response missing rule id")
	}
	return parsed.Data[0].ID, nil
}

// ListRules fetches all remote rules.
func (c *Client) ListRules(ctx context.Context) ([]Rule, error) {
	var parsed ruleResponse
	if err := c.doJSON(ctx, http.MethodGet, "/2/tweets/search/stream/rules", nil, &parsed, "list rules"); err != nil {
		return nil, err
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("list rules returned errors: %s", formatAPIErrors(parsed.Errors))
	}
	return parsed.Data, nil
}

// DeleteRule removes a single remote rule.
func (c *Client) DeleteRule(ctx context.Context, id string) error {
	_, err := c.DeleteRuleIDs(ctx, []string{id})
	return err
}

// DeleteRuleIDs removes a batch of remote rules and returns how many
// deletions were requested. An empty batch is a no-op.
func (c *Client) DeleteRuleIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	body := deleteRuleBody{Delete: deleteRule{IDs: ids}}
	var parsed ruleResponse
	if err := c.doJSON(ctx, http.MethodPost, "/2/tweets/search/stream/rules", body, &parsed, "delete rule"); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// DeleteRulesByTagPrefix removes every remote rule whose tag starts with
// the given prefix and returns the deleted count.
func (c *Client) DeleteRulesByTagPrefix(ctx context.Context, prefix string) (int, error) {
	rules, err := c.ListRules(ctx)
	if err != nil {
		return 0, err
	}

	var ids []string
	for _, rule := range rules {
		if strings.HasPrefix(rule.Tag, prefix) {
			ids = append(ids, rule.ID)
		}
	}
	return c.DeleteRuleIDs(ctx, ids)
}

// TerminateAllConnections kills every active stream connection for this
// credential and returns a human-readable summary.
func (c *Client) TerminateAllConnections(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, apiRequestTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodDelete, "/2/connections/all", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call terminate connections endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("terminate connections failed (%d): %s", resp.StatusCode, string(raw))
	}

	if strings.TrimSpace(string(raw)) == "" {
		return "terminated all active stream connections", nil
	}

	var parsed terminateResponse
	if err := sonic.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse terminate connections response: %w", err)
	}

	var warnings string
	if len(parsed.Errors) > 0 {
		warnings = formatAPIErrors(parsed.Errors)
	}

	var summary string
	switch {
	case parsed.Data != nil && (parsed.Data.SuccessfulKills != nil || parsed.Data.FailedKills != nil):
		var successful, failed int64
		if parsed.Data.SuccessfulKills != nil {
			successful = *parsed.Data.SuccessfulKills
		}
		if parsed.Data.FailedKills != nil {
			failed = *parsed.Data.FailedKills
		}
		summary = fmt.Sprintf("terminate-all complete (successful: %d, failed: %d)", successful, failed)
	case parsed.Data != nil && parsed.Data.KilledConnections != nil && !*parsed.Data.KilledConnections:
		summary = "terminate-all complete (no active stream connections)"
	case parsed.Data != nil:
		summary = "terminated all active stream connections"
	case warnings != "":
		return "", fmt.Errorf("terminate-all returned errors: %s", warnings)
	default:
		summary = "terminated all active stream connections"
	}

	if warnings != "" {
		return summary + "; warnings: " + warnings, nil
	}
	return summary, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doJSON issues one rule-management call with the fixed request timeout and
// decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}, op string) error {
	ctx, cancel := context.WithTimeout(ctx, apiRequestTimeout)
	defer cancel()

	var encoded []byte
	if body != nil {
		var err error
		encoded, err = sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	req, err := c.newRequest(ctx, method, path, encoded)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s endpoint: %w", op, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s failed (%d): %s", op, resp.StatusCode, string(raw))
	}

	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", op, err)
	}
	return nil
}
