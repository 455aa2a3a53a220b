package stream

import (
	"errors"
	"strings"
)

// Classified stream conditions. Each one carries a dedicated reconnect
// policy in the loop instead of the generic exponential backoff.
var (
	// ErrUnauthorized is fatal to the current connection attempt but is
	// still retried with generic backoff.
	ErrUnauthorized = errors.New("stream unauthorized (check bearer token permissions)")

	// ErrNoRules means the remote side has no filter rules configured yet.
	ErrNoRules = errors.New("no stream rules configured")

	// ErrProvisioning means the subscription is still being provisioned.
	ErrProvisioning = errors.New("subscription provisioning in progress")

	// ErrTooManyConnections means the connection cap is exhausted.
	ErrTooManyConnections = errors.New("too many stream connections")
)

// IsNotFound reports whether a rule operation failed because the rule no
// longer exists remotely. Delete paths treat this as success: the desired
// end state already holds.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "404") || strings.Contains(text, "not found")
}
