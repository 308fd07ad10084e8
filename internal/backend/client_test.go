package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/support1122/flashfire-dashboard/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/"})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func userSession() *Session {
	return NewSession("maya@example.com", "Maya", "tok-1", models.Actor{Role: models.RoleUser})
}

func TestFetchJobs_UserEndpointSendsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathUserList, r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "maya@example.com", body["email"])
		assert.Equal(t, "tok-1", body["token"])

		writeJSON(w, http.StatusOK, map[string]any{
			"allJobs": []models.Job{{JobID: "1", CurrentStatus: "saved by user"}},
		})
	})

	jobs, err := c.FetchJobs(t.Context(), userSession())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "1", jobs[0].JobID)
}

func TestFetchJobs_OperationsEndpoint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathOperationsList, r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "client@example.com", body["email"])
		_, hasToken := body["token"]
		assert.False(t, hasToken)
		writeJSON(w, http.StatusOK, map[string]any{"allJobs": []models.Job{}})
	})

	sess := NewSession("client@example.com", "", "ops-tok", models.Actor{Role: models.RoleOperations, Name: "Ravi"})
	jobs, err := c.FetchJobs(t.Context(), sess)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestFetchJobs_MissingListIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "something else"})
	})

	_, err := c.FetchJobs(t.Context(), userSession())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "something else", apiErr.Message)
}

func TestUpdateStatus_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, PathUserUpdate, r.URL.Path)

		body := decodeBody(t, r)
		assert.Equal(t, ActionUpdateStatus, body["action"])
		assert.Equal(t, "applied by user", body["status"])
		assert.Equal(t, "7", body["jobID"])
		assert.Equal(t, []any{"https://cdn.example.com/cv.pdf"}, body["attachments"])

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     MsgJobsUpdated,
			"updatedJobs": []models.Job{{JobID: "7", CurrentStatus: "applied by user"}},
		})
	})

	jobs, err := c.UpdateStatus(t.Context(), userSession(), StatusUpdate{
		JobID:       "7",
		Status:      "applied by user",
		Attachments: []string{"https://cdn.example.com/cv.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "applied by user", jobs[0].CurrentStatus)
}

func TestUpdateStatus_OperationsCarriesOperator(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathOperationsJobs, r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "operations", body["role"])
		assert.Equal(t, "Ravi", body["operationsName"])
		writeJSON(w, http.StatusOK, map[string]any{"message": MsgJobsUpdated, "updatedJobs": []models.Job{}})
	})

	sess := NewSession("client@example.com", "", "t", models.Actor{Role: models.RoleOperations, Name: "Ravi"})
	_, err := c.UpdateStatus(t.Context(), sess, StatusUpdate{JobID: "1", Status: "offer by Ravi"})
	require.NoError(t, err)
}

func TestUpdateStatus_LimitExceeded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": MsgLimitExceeded})
	})

	_, err := c.UpdateStatus(t.Context(), userSession(), StatusUpdate{JobID: "1", Status: "deleted by user"})
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestUpdateStatus_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "boom"})
	})

	_, err := c.UpdateStatus(t.Context(), userSession(), StatusUpdate{JobID: "1", Status: "offer by user"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestCall_RefreshesOnceAndRetries(t *testing.T) {
	var updates atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathRefreshToken:
			body := decodeBody(t, r)
			assert.Equal(t, "tok-1", body["token"])
			writeJSON(w, http.StatusOK, map[string]any{"token": "tok-2"})
		case PathUserUpdate:
			n := updates.Add(1)
			body := decodeBody(t, r)
			if n == 1 {
				writeJSON(w, http.StatusOK, map[string]any{"message": "Invalid token"})
				return
			}
			assert.Equal(t, "tok-2", body["token"])
			writeJSON(w, http.StatusOK, map[string]any{"message": MsgJobsUpdated, "updatedJobs": []models.Job{}})
		}
	})

	sess := userSession()
	_, err := c.UpdateStatus(t.Context(), sess, StatusUpdate{JobID: "1", Status: "offer by user"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), updates.Load())
	assert.Equal(t, "tok-2", sess.Token())
}

func TestCall_RefreshFailureExpiresSession(t *testing.T) {
	var updates atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathRefreshToken:
			w.WriteHeader(http.StatusUnauthorized)
		default:
			updates.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	_, err := c.FetchJobs(t.Context(), userSession())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(1), updates.Load(), "no retry without a fresh token")
}

func TestCall_RetryStillRejectedExpiresSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == PathRefreshToken {
			writeJSON(w, http.StatusOK, map[string]any{"token": "tok-2"})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "jwt expired"})
	})

	_, err := c.FetchJobs(t.Context(), userSession())
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestAddJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathAddJob, r.URL.Path)
		body := decodeBody(t, r)
		details := body["jobDetails"].(map[string]any)
		assert.Equal(t, "Backend Engineer", details["jobTitle"])
		assert.Equal(t, "maya@example.com", body["userDetails"].(map[string]any)["email"])
		writeJSON(w, http.StatusOK, map[string]any{
			"message":    MsgJobAdded,
			"NewJobList": []models.Job{{JobID: "99"}},
		})
	})

	jobs, err := c.AddJob(t.Context(), userSession(), models.JobDetails{JobID: "99", JobTitle: "Backend Engineer"})
	require.NoError(t, err)
	assert.Equal(t, "99", jobs[0].JobID)
}

func TestEditAndDeleteJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		switch body["action"] {
		case ActionEdit:
			assert.Equal(t, "5", body["jobID"])
		case ActionDelete:
			assert.Equal(t, "6", body["jobID"])
		default:
			t.Errorf("unexpected action %v", body["action"])
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": MsgJobsUpdated, "updatedJobs": nil})
	})

	jobs, err := c.EditJob(t.Context(), userSession(), "5", models.JobDetails{JobTitle: "x"})
	require.NoError(t, err)
	assert.NotNil(t, jobs)

	_, err = c.DeleteJob(t.Context(), userSession(), "6")
	require.NoError(t, err)
}

func TestSend_RespectsCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"allJobs": []models.Job{}})
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := c.FetchJobs(ctx, userSession())
	assert.Error(t, err)
}
