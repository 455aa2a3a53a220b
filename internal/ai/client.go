package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const requestTimeout = 60 * time.Second

// Client talks to any OpenAI-compatible chat-completions endpoint. One
// client is shared by every analysis dispatch.
type Client struct {
	http *http.Client
}

// Request describes one post analysis: where to send it, which model to
// use, and what to ask.
type Request struct {
	Endpoint string
	APIKey   string
	Model    string
	Prompt   string
	PostText string
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []chatChoice  `json:"choices"`
	Error   *chatAPIError `json:"error"`
}

type chatChoice struct {
	Message chatOutputMessage `json:"message"`
}

type chatOutputMessage struct {
	Content string `json:"content"`
}

type chatAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewClient creates an analysis client with the fixed request timeout.
func NewClient() *Client {
	return &Client{
		http: &http.Client{Timeout: requestTimeout},
	}
}

// AnalyzePost sends one post to the configured endpoint and returns the
// model's output text.
func (c *Client) AnalyzePost(ctx context.Context, req Request) (string, error) {
	baseURL := strings.TrimSpace(req.Endpoint)
	if baseURL == "" {
		return "", fmt.Errorf("AI endpoint is empty")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		return "", fmt.Errorf("AI model ID is empty")
	}

	endpoint := strings.TrimSuffix(baseURL, "/") + "/chat/completions"
	systemPrompt, userPrompt := preparePrompts(req.Prompt, req.PostText)

	body := chatCompletionRequest{
		Model:       model,
		Temperature: 0.2,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	encoded, err := sonic.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call ai endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read ai response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ai request failed (%d): %s", resp.StatusCode, string(raw))
	}

	var parsed chatCompletionResponse
	if err := sonic.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse ai response: %s", string(raw))
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("ai api error: %s", renderAPIError(parsed.Error))
	}

	for _, choice := range parsed.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		break
	}
	return "", fmt.Errorf("ai response did not contain a message")
}

func renderAPIError(apiErr *chatAPIError) string {
	var parts []string
	if apiErr.Type != "" {
		parts = append(parts, apiErr.Type)
	}
	if apiErr.Message != "" {
		parts = append(parts, apiErr.Message)
	}
	if len(parts) == 0 {
		return "unknown api error"
	}
	return strings.Join(parts, ": ")
}
