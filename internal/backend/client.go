// Package backend is the JSON-over-HTTP client for the remote job API. The
// API owns every job; this client only moves requests and canonical lists
// back and forth.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/support1122/flashfire-dashboard/internal/logger"
	"github.com/support1122/flashfire-dashboard/internal/models"
)

// Endpoint paths on the job API.
const (
	PathUserList       = "/getalljobs"
	PathUserUpdate     = "/updatechanges"
	PathOperationsList = "/operations/getalljobs"
	PathOperationsJobs = "/operations/jobs"
	PathAddJob         = "/addjob"
	PathRefreshToken   = "/refresh-token"
)

// Action values understood by the update endpoints.
const (
	ActionUpdateStatus = "UpdateStatus"
	ActionEdit         = "edit"
	ActionDelete       = "delete"
)

// Config holds the configuration for the job API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RPS and Burst size the outgoing token bucket. Zero RPS disables it.
	RPS   float64
	Burst int
	// HTTPClient overrides the default client, mostly for tests.
	HTTPClient *http.Client
}

// Client talks to the job API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a new client with the provided configuration.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		limiter: limiter,
		log:     logger.Get().Component("backend"),
	}
}

// StatusUpdate is a status transition request.
type StatusUpdate struct {
	JobID string
	// Status is the full composite value, e.g. "applied by user".
	Status string
	// Attachments, when set, are sent along so a gated move carries its
	// confirmation file.
	Attachments []string
}

// envelope covers every response shape the API returns.
type envelope struct {
	Message     string       `json:"message"`
	Error       string       `json:"error"`
	Token       string       `json:"token"`
	AllJobs     []models.Job `json:"allJobs"`
	NewJobList  []models.Job `json:"NewJobList"`
	UpdatedJobs []models.Job `json:"updatedJobs"`
}

func (e *envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func listPath(a models.Actor) string {
	if a.IsOperations() {
		return PathOperationsList
	}
	return PathUserList
}

func updatePath(a models.Actor) string {
	if a.IsOperations() {
		return PathOperationsJobs
	}
	return PathUserUpdate
}

// FetchJobs returns the canonical job list for the session's account.
func (c *Client) FetchJobs(ctx context.Context, sess *Session) ([]models.Job, error) {
	env, err := c.call(ctx, sess, http.MethodPost, listPath(sess.Actor), func() any {
		if sess.Actor.IsOperations() {
			return map[string]string{"email": sess.Email}
		}
		return map[string]string{"email": sess.Email, "token": sess.Token()}
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}
	if env.AllJobs == nil {
		return nil, fmt.Errorf("fetch jobs: %w", &APIError{StatusCode: http.StatusOK, Message: env.text()})
	}
	return env.AllJobs, nil
}

// AddJob creates a job and returns the new canonical list.
func (c *Client) AddJob(ctx context.Context, sess *Session, details models.JobDetails) ([]models.Job, error) {
	env, err := c.call(ctx, sess, http.MethodPost, PathAddJob, func() any {
		return map[string]any{
			"jobDetails":  details,
			"userDetails": sess.userDetails(),
			"token":       sess.Token(),
		}
	})
	if err != nil {
		return nil, fmt.Errorf("add job: %w", err)
	}
	return expectList(env, MsgJobAdded, env.NewJobList, "add job")
}

// EditJob updates the editable fields of a job.
func (c *Client) EditJob(ctx context.Context, sess *Session, jobID string, details models.JobDetails) ([]models.Job, error) {
	env, err := c.call(ctx, sess, http.MethodPut, updatePath(sess.Actor), func() any {
		return map[string]any{
			"token":       sess.Token(),
			"jobID":       jobID,
			"userDetails": sess.userDetails(),
			"jobDetails":  details,
			"action":      ActionEdit,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("edit job: %w", err)
	}
	return expectList(env, MsgJobsUpdated, env.UpdatedJobs, "edit job")
}

// UpdateStatus moves a job to a new composite status.
func (c *Client) UpdateStatus(ctx context.Context, sess *Session, upd StatusUpdate) ([]models.Job, error) {
	env, err := c.call(ctx, sess, http.MethodPut, updatePath(sess.Actor), func() any {
		body := map[string]any{
			"action":      ActionUpdateStatus,
			"status":      upd.Status,
			"userDetails": sess.userDetails(),
			"token":       sess.Token(),
			"jobID":       upd.JobID,
		}
		if len(upd.Attachments) > 0 {
			body["attachments"] = upd.Attachments
		}
		if sess.Actor.IsOperations() {
			body["role"] = string(models.RoleOperations)
			body["operationsName"] = sess.Actor.Name
		}
		return body
	})
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return expectList(env, MsgJobsUpdated, env.UpdatedJobs, "update status")
}

// DeleteJob soft-deletes a job; the backend flips its status to deleted.
func (c *Client) DeleteJob(ctx context.Context, sess *Session, jobID string) ([]models.Job, error) {
	env, err := c.call(ctx, sess, http.MethodPut, updatePath(sess.Actor), func() any {
		return map[string]any{
			"jobID":       jobID,
			"userDetails": sess.userDetails(),
			"action":      ActionDelete,
			"token":       sess.Token(),
		}
	})
	if err != nil {
		return nil, fmt.Errorf("delete job: %w", err)
	}
	return expectList(env, MsgJobsUpdated, env.UpdatedJobs, "delete job")
}

// RefreshToken exchanges the session's token for a fresh one and stores it
// on the session.
func (c *Client) RefreshToken(ctx context.Context, sess *Session) error {
	env, err := c.send(ctx, sess, http.MethodPost, PathRefreshToken, map[string]string{
		"email": sess.Email,
		"token": sess.Token(),
	})
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	if env.Token == "" {
		return fmt.Errorf("refresh token: empty token in response")
	}
	sess.SetToken(env.Token)
	return nil
}

func expectList(env *envelope, want string, list []models.Job, op string) ([]models.Job, error) {
	if !strings.EqualFold(strings.TrimSpace(env.Message), want) {
		return nil, fmt.Errorf("%s: %w", op, &APIError{StatusCode: http.StatusOK, Message: env.text()})
	}
	if list == nil {
		list = []models.Job{}
	}
	return list, nil
}

// call sends a request and, when the token is rejected, refreshes it once
// and retries once. body is rebuilt for the retry so it picks up the new
// token.
func (c *Client) call(ctx context.Context, sess *Session, method, path string, body func() any) (*envelope, error) {
	env, err := c.send(ctx, sess, method, path, body())
	if !errors.Is(err, errAuthExpired) {
		return env, err
	}

	c.log.Info().Str("email", sess.Email).Str("path", path).Msg("token rejected, refreshing")
	if rerr := c.RefreshToken(ctx, sess); rerr != nil {
		c.log.Warn().Err(rerr).Str("email", sess.Email).Msg("token refresh failed")
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, rerr)
	}

	env, err = c.send(ctx, sess, method, path, body())
	if errors.Is(err, errAuthExpired) {
		return nil, ErrSessionExpired
	}
	return env, err
}

func (c *Client) send(ctx context.Context, sess *Session, method, path string, body any) (*envelope, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if tok := sess.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("backend call")

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, isAuthMessage(env.text()):
		return nil, errAuthExpired
	case isLimitMessage(env.text()):
		return nil, ErrLimitExceeded
	case resp.StatusCode >= 300:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.text()}
	}
	return &env, nil
}
