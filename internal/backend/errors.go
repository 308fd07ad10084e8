package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Business and session errors surfaced by the job API.
var (
	// ErrLimitExceeded is the backend refusing a status change because the
	// account ran out of removals. It is expected and actionable.
	ErrLimitExceeded = errors.New("removal limit exceeded")
	// ErrSessionExpired means the token could not be refreshed; the session
	// must be dropped and the user sent back to login.
	ErrSessionExpired = errors.New("session expired")

	errAuthExpired = errors.New("auth token rejected")
)

// Messages the backend uses to signal outcomes. The spelling of
// MsgJobAdded matches the server.
const (
	MsgJobAdded      = "Job Added Succesfully"
	MsgJobsUpdated   = "Jobs updated successfully"
	MsgLimitExceeded = "Removal limit exceeded"
	msgInvalidToken  = "invalid token"
	msgTokenExpired  = "token expired"
	msgJWTExpired    = "jwt expired"
)

// APIError is a non-success response from the job API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

func isAuthMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, msgInvalidToken) ||
		strings.Contains(m, msgTokenExpired) ||
		strings.Contains(m, msgJWTExpired)
}

func isLimitMessage(msg string) bool {
	return strings.EqualFold(strings.TrimSpace(msg), MsgLimitExceeded)
}
