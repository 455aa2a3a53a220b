package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/penwyp/go-x-monitor/internal/core/model"
	"github.com/penwyp/go-x-monitor/internal/util"
)

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 60 * time.Second

	// Fixed waits for classified conditions.
	noRulesWait      = 5 * time.Second
	provisioningWait = 60 * time.Second
	tooManyWait      = 60 * time.Second
)

// SleepFunc waits for a duration or until the context is cancelled,
// returning the context error on early wakeup. Injectable for tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Loop owns the single logical stream connection. It reconnects on failure
// with exponential backoff, applies the dedicated policy for classified
// remote conditions, and reports everything as bus messages. It never
// touches shared state.
type Loop struct {
	client *Client
	send   func(model.Message)
	sleep  SleepFunc
}

// NewLoop creates a reconnecting stream loop that reports through send.
func NewLoop(client *Client, send func(model.Message)) *Loop {
	return &Loop{
		client: client,
		send:   send,
		sleep:  defaultSleep,
	}
}

// Run drives connect/read/reconnect until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	backoff := initialBackoff

	// One-time announcements per uninterrupted occurrence streak. A
	// different condition or a successful connection re-arms all three.
	var sentNoRules, sentProvisioning, sentTooMany bool

	for {
		if ctx.Err() != nil {
			return
		}

		l.send(model.InfoMsg{Text: "connecting to filtered stream"})

		connected, err := l.streamOnce(ctx)
		if connected {
			backoff = initialBackoff
			sentNoRules, sentProvisioning, sentTooMany = false, false, false
		}

		if err == nil {
			// Cooperative cancellation: clean shutdown, no reconnect.
			l.send(model.StreamStateMsg{Connected: false})
			l.send(model.InfoMsg{Text: "stream stopped"})
			return
		}

		l.send(model.StreamStateMsg{Connected: false})

		switch {
		case errors.Is(err, ErrNoRules):
			if !sentNoRules {
				l.send(model.InfoMsg{Text: "No stream rules are configured yet. Add a target to begin streaming."})
				sentNoRules = true
			}
			sentProvisioning, sentTooMany = false, false
			if l.sleep(ctx, noRulesWait) != nil {
				return
			}

		case errors.Is(err, ErrProvisioning):
			if !sentProvisioning {
				l.send(model.InfoMsg{Text: "The subscription is still being provisioned. Retrying stream in 60s."})
				sentProvisioning = true
			}
			sentNoRules, sentTooMany = false, false
			if l.sleep(ctx, provisioningWait) != nil {
				return
			}

		case errors.Is(err, ErrTooManyConnections):
			if !sentTooMany {
				l.send(model.InfoMsg{Text: "Max active stream connections reached. Close other clients or run 'rules terminate', then wait for reconnect."})
				sentTooMany = true
			}
			sentNoRules, sentProvisioning = false, false
			backoff = maxBackoff
			if l.sleep(ctx, tooManyWait) != nil {
				return
			}

		default:
			sentNoRules, sentProvisioning, sentTooMany = false, false, false
			l.send(model.ErrorMsg{Text: fmt.Sprintf("stream disconnected: %v", err)})
			l.send(model.InfoMsg{Text: fmt.Sprintf("retrying stream connection in %ds", int(backoff/time.Second))})
			if l.sleep(ctx, backoff) != nil {
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// streamOnce opens one streaming request and pumps lines until the remote
// closes, a fatal line arrives, or ctx is cancelled. The returned bool
// reports whether the connection was established. A nil error means clean
// cancellation.
func (l *Loop) streamOnce(ctx context.Context) (bool, error) {
	req, err := l.client.newRequest(ctx, http.MethodGet,
		"/2/tweets/search/stream?expansions=author_id&tweet.fields=author_id,created_at&user.fields=username", nil)
	if err != nil {
		return false, err
	}

	resp, err := l.client.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to connect to stream endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return false, classifyConnectFailure(resp.StatusCode, string(raw))
	}

	l.send(model.StreamStateMsg{Connected: true})
	l.send(model.InfoMsg{Text: "stream connected"})

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return true, nil
		}

		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			// keep-alive
			continue
		}

		post, remoteErrors, parseErr := parseLine(line)
		if parseErr != nil {
			return true, parseErr
		}
		if remoteErrors != "" {
			// Remote-reported errors inside a line do not terminate the
			// connection.
			l.send(model.ErrorMsg{Text: "stream response errors: " + remoteErrors})
			continue
		}
		if post != nil {
			util.LogDebugf("stream post %s matched %d tags", post.ID, len(post.MatchingTags))
			l.send(model.StreamPostMsg{Post: *post})
		}
	}

	if ctx.Err() != nil {
		return true, nil
	}
	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("stream read failure: %w", err)
	}
	return true, errors.New("stream ended by remote host")
}

// classifyConnectFailure maps a failed connect response to the classified
// sentinel errors, falling back to a generic error.
func classifyConnectFailure(status int, body string) error {
	lower := strings.ToLower(body)

	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusConflict:
		if strings.Contains(body, "RuleConfigurationIssue") ||
			strings.Contains(lower, "must define rules using the post /2/tweets/search/stream/rules") {
			return ErrNoRules
		}
	case http.StatusServiceUnavailable:
		if strings.Contains(body, "ProvisioningSubscription") ||
			strings.Contains(lower, "subscription change is currently being provisioned") {
			return ErrProvisioning
		}
	case http.StatusTooManyRequests:
		if strings.Contains(body, "TooManyConnections") ||
			strings.Contains(lower, "maximum allowed connection") {
			return ErrTooManyConnections
		}
	}
	return fmt.Errorf("stream request failed (%d): %s", status, body)
}
