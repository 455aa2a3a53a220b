package model

import (
	"errors"
	"fmt"
	"strings"
)

// BuildQuery compiles a user target into the remote rule query string.
// Account targets become from: clauses, phrase targets are quoted when they
// contain whitespace so the remote side matches the exact phrase.
func BuildQuery(kind MonitorKind, target string) (string, error) {
	trimmed := strings.TrimSpace(target)
	if trimmed == "" {
		return "", errors.New("target cannot be empty")
	}

	switch kind {
	case KindAccount:
		handles, err := ParseAccountHandles(trimmed)
		if err != nil {
			return "", err
		}
		if len(handles) == 1 {
			return "from:" + handles[0], nil
		}
		clauses := make([]string, len(handles))
		for i, handle := range handles {
			clauses[i] = "from:" + handle
		}
		return "(" + strings.Join(clauses, " OR ") + ")", nil

	case KindPhrase:
		if strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) && len(trimmed) >= 2 {
			return trimmed, nil
		}
		if strings.ContainsRune(trimmed, ' ') {
			escaped := strings.ReplaceAll(trimmed, `"`, `\"`)
			return `"` + escaped + `"`, nil
		}
		return trimmed, nil

	default:
		return "", fmt.Errorf("unknown monitor kind %q", kind)
	}
}

// ParseAccountHandles splits a comma-separated account target into
// normalized handles. Leading @ is stripped, duplicates are removed
// case-insensitively, and handles are restricted to [A-Za-z0-9_].
func ParseAccountHandles(input string) ([]string, error) {
	seen := make(map[string]struct{})
	var handles []string

	for _, rawPart := range strings.Split(input, ",") {
		part := strings.TrimSpace(rawPart)
		if part == "" {
			continue
		}

		normalized := strings.TrimSpace(strings.TrimPrefix(part, "@"))
		if normalized == "" {
			continue
		}

		if strings.ContainsFunc(normalized, isSpaceRune) {
			return nil, errors.New("account handles cannot contain spaces")
		}
		for _, ch := range normalized {
			if !isHandleRune(ch) {
				return nil, errors.New("account handles may only use letters, numbers, and underscores")
			}
		}

		key := strings.ToLower(normalized)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			handles = append(handles, normalized)
		}
	}

	if len(handles) == 0 {
		return nil, errors.New("account target requires at least one handle")
	}
	return handles, nil
}

func isSpaceRune(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isHandleRune(ch rune) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}
