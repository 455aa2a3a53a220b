package stream

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-x-monitor/internal/core/model"
)

// envelope is one newline-delimited JSON object from the filtered stream.
// Any combination of post payload, user expansions, matching rule tags and
// remote error reports may be present.
type envelope struct {
	Data          *streamData    `json:"data"`
	Includes      *streamInclude `json:"includes"`
	MatchingRules []matchingRule `json:"matching_rules"`
	Errors        []apiError     `json:"errors"`
}

type streamData struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	AuthorID string `json:"author_id"`
}

type streamInclude struct {
	Users []streamUser `json:"users"`
}

type streamUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type matchingRule struct {
	Tag string `json:"tag"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Value  string `json:"value"`
}

// parseLine decodes one non-blank stream line. It returns the contained
// post (nil when the line carries none) and any remote-reported errors
// rendered as text. A malformed line is a hard error: the connection
// attempt cannot trust the stream any further.
func parseLine(line []byte) (*model.StreamPost, string, error) {
	var env envelope
	if err := sonic.Unmarshal(line, &env); err != nil {
		return nil, "", fmt.Errorf("failed to parse stream message %q: %w", string(line), err)
	}

	if len(env.Errors) > 0 {
		return nil, formatAPIErrors(env.Errors), nil
	}

	if env.Data == nil {
		return nil, "", nil
	}

	usernames := make(map[string]string)
	if env.Includes != nil {
		for _, user := range env.Includes.Users {
			usernames[user.ID] = user.Username
		}
	}

	var tags []string
	for _, rule := range env.MatchingRules {
		if rule.Tag != "" {
			tags = append(tags, rule.Tag)
		}
	}

	post := &model.StreamPost{
		ID:             env.Data.ID,
		AuthorID:       env.Data.AuthorID,
		AuthorUsername: usernames[env.Data.AuthorID],
		Text:           env.Data.Text,
		MatchingTags:   tags,
	}
	return post, "", nil
}

func formatAPIErrors(errs []apiError) string {
	rendered := make([]string, 0, len(errs))
	for _, e := range errs {
		var parts []string
		if e.Title != "" {
			parts = append(parts, e.Title)
		}
		if e.Detail != "" {
			parts = append(parts, e.Detail)
		}
		if e.Value != "" {
			parts = append(parts, "value="+e.Value)
		}
		if len(parts) == 0 {
			rendered = append(rendered, "unknown error")
		} else {
			rendered = append(rendered, strings.Join(parts, " | "))
		}
	}
	return strings.Join(rendered, "; ")
}
