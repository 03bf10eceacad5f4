package azuredevops

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when an assignee cannot be resolved through the
// user entitlements API.
var ErrUserNotFound = errors.New("user not found in organization")

// ErrUnavailable is returned when Azure DevOps cannot be reached at all.
var ErrUnavailable = errors.New("azure devops unreachable")

// UpstreamError is returned when Azure DevOps responds with a non-success
// status. Body holds the upstream response so callers can surface it.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("azure devops responded with status %d", e.StatusCode)
}
