package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/backend"
	"github.com/support1122/flashfire-dashboard/internal/board"
	"github.com/support1122/flashfire-dashboard/internal/models"
)

// Mock implementations for testing

type mockBackend struct {
	mu     sync.Mutex
	jobs   []models.Job
	tokens []string
}

func (m *mockBackend) snapshot() []models.Job {
	out := make([]models.Job, len(m.jobs))
	for i, j := range m.jobs {
		out[i] = j.Clone()
	}
	return out
}

func (m *mockBackend) FetchJobs(ctx context.Context, sess *backend.Session) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, sess.Token())
	return m.snapshot(), nil
}

func (m *mockBackend) AddJob(ctx context.Context, sess *backend.Session, d models.JobDetails) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, models.Job{
		JobID:         d.JobID,
		CurrentStatus: d.CurrentStatus,
		JobTitle:      d.JobTitle,
		CompanyName:   d.CompanyName,
		DateAdded:     d.DateAdded,
	})
	return m.snapshot(), nil
}

func (m *mockBackend) EditJob(ctx context.Context, sess *backend.Session, jobID string, d models.JobDetails) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].JobID == jobID {
			m.jobs[i].JobTitle = d.JobTitle
			m.jobs[i].CompanyName = d.CompanyName
		}
	}
	return m.snapshot(), nil
}

func (m *mockBackend) UpdateStatus(ctx context.Context, sess *backend.Session, upd backend.StatusUpdate) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].JobID == upd.JobID {
			m.jobs[i].CurrentStatus = upd.Status
			if upd.Attachments != nil {
				m.jobs[i].Attachments = upd.Attachments
			}
		}
	}
	return m.snapshot(), nil
}

func (m *mockBackend) DeleteJob(ctx context.Context, sess *backend.Session, jobID string) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.jobs[:0]
	for _, j := range m.jobs {
		if j.JobID != jobID {
			kept = append(kept, j)
		}
	}
	m.jobs = kept
	return m.snapshot(), nil
}

type mockAuth struct {
	mu       sync.Mutex
	sessions map[string]*backend.Session
	cleared  []string
}

func newMockAuth() *mockAuth {
	return &mockAuth{sessions: make(map[string]*backend.Session)}
}

func (m *mockAuth) SaveAuth(ctx context.Context, sess *backend.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.Email] = sess
	return nil
}

func (m *mockAuth) LoadAuth(ctx context.Context, email string) (*backend.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[email]
	return sess, ok, nil
}

func (m *mockAuth) Clear(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, email)
	m.cleared = append(m.cleared, email)
	return nil
}

func testJobs() []models.Job {
	return []models.Job{
		{JobID: "1", CurrentStatus: "saved by user", JobTitle: "Backend Engineer", CompanyName: "Acme", DateAdded: "2025-03-01T10:00:00Z"},
		{JobID: "2", CurrentStatus: "applied by user", JobTitle: "SRE", CompanyName: "Globex", DateAdded: "2025-03-02T10:00:00Z", Attachments: []string{"https://cdn.example.com/a.pdf"}},
		{JobID: "3", CurrentStatus: "applied by user", JobTitle: "Go Developer", CompanyName: "Initech", DateAdded: "2025-03-03T10:00:00Z"},
	}
}

type testEnv struct {
	srv     *Server
	backend *mockBackend
	auth    *mockAuth
	reg     *board.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	be := &mockBackend{jobs: testJobs()}
	reg := board.NewRegistry(board.Options{Backend: be, PageSize: 1})
	t.Cleanup(reg.CloseAll)
	auth := newMockAuth()

	cfg := &Config{
		Port:        8080,
		Title:       "Test API",
		Description: "Test",
		Version:     "1.0.0",
	}
	srv := NewServer(cfg, &Dependencies{Boards: reg, Auth: auth})
	return &testEnv{srv: srv, backend: be, auth: auth, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	w := httptest.NewRecorder()
	e.srv.fuego.Mux.ServeHTTP(w, req)
	return w
}

// open starts a session and returns its ID.
func (e *testEnv) open(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/session", "", SessionOpenRequest{
		Email: "maya@example.com",
		Name:  "Maya",
		Token: "tok-1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp SessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.ID.String()
}

func (e *testEnv) board(t *testing.T, session string) *board.Board {
	t.Helper()
	b, ok := e.reg.Get(uuid.MustParse(session))
	if !ok {
		t.Fatal("expected board to be open")
	}
	return b
}

// settled waits until no move is in flight for jobID.
func settled(t *testing.T, b *board.Board, jobID string) models.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := b.State()
		if _, busy := st.Items[jobID]; !busy {
			job, _ := st.Job(jobID)
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("move for job %s did not settle", jobID)
	return models.Job{}
}

func TestNewServer(t *testing.T) {
	env := newTestEnv(t)
	if env.srv == nil {
		t.Fatal("expected server to be created")
	}
	if env.srv.fuego == nil {
		t.Fatal("expected fuego server to be initialized")
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.open(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", resp.Status)
	}
	if resp.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got '%s'", resp.Version)
	}
	if resp.Boards != 1 {
		t.Errorf("expected 1 board, got %d", resp.Boards)
	}
}

func TestOpenSessionEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/session", "", SessionOpenRequest{
		Email:          "maya@example.com",
		Token:          "tok-1",
		Role:           "operations",
		OperationsName: "Ravi",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp SessionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID == uuid.Nil {
		t.Error("expected a session ID")
	}
	if resp.Role != "operations" {
		t.Errorf("expected role 'operations', got '%s'", resp.Role)
	}
	if len(resp.Board.Columns) != len(models.Statuses) {
		t.Errorf("expected %d columns, got %d", len(models.Statuses), len(resp.Board.Columns))
	}
	if resp.Board.Stats["applied"] != 2 {
		t.Errorf("expected 2 applied jobs, got %d", resp.Board.Stats["applied"])
	}
	if _, ok := env.auth.sessions["maya@example.com"]; !ok {
		t.Error("expected login to be cached")
	}
}

func TestOpenSessionReusesCachedLogin(t *testing.T) {
	env := newTestEnv(t)
	env.auth.sessions["maya@example.com"] = backend.NewSession("maya@example.com", "Maya", "cached-tok", models.Actor{Role: models.RoleUser})

	w := env.do(t, http.MethodPost, "/api/v1/session", "", SessionOpenRequest{Email: "maya@example.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.backend.tokens) != 1 || env.backend.tokens[0] != "cached-tok" {
		t.Errorf("expected the cached token to be used, got %v", env.backend.tokens)
	}
}

func TestOpenSessionRejects(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/session", "", SessionOpenRequest{Email: "new@example.com"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without a token, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/session", "", SessionOpenRequest{Email: "new@example.com", Token: "t", Role: "admin"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for an unknown role, got %d", w.Code)
	}
}

func TestBoardRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/v1/board", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without header, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/board", "not-a-uuid", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad ID, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/board", uuid.NewString(), nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 for unknown session, got %d", w.Code)
	}
}

func TestMoveJobEndpoint(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	w := env.do(t, http.MethodPost, "/api/v1/board/jobs/2/move", session, MoveRequest{Status: "interviewing"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp MoveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != "pending" || resp.OpID == uuid.Nil {
		t.Errorf("expected a pending move, got %+v", resp)
	}
	if resp.To != "interviewing by user" {
		t.Errorf("expected 'interviewing by user', got '%s'", resp.To)
	}

	job := settled(t, env.board(t, session), "2")
	if job.CurrentStatus != "interviewing by user" {
		t.Errorf("expected confirmed status, got '%s'", job.CurrentStatus)
	}
}

func TestMoveJobSameColumn(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	w := env.do(t, http.MethodPost, "/api/v1/board/jobs/2/move", session, MoveRequest{Status: "applied"})
	if w.Code == http.StatusAccepted || w.Code >= 300 {
		t.Fatalf("expected a plain success status, got %d", w.Code)
	}
	var resp MoveResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.State != "confirmed" {
		t.Errorf("expected state 'confirmed', got '%s'", resp.State)
	}
}

func TestMoveJobInvalid(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	if w := env.do(t, http.MethodPost, "/api/v1/board/jobs/2/move", session, MoveRequest{Status: "archived"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown status, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/v1/board/jobs/99/move", session, MoveRequest{Status: "offer"}); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown job, got %d", w.Code)
	}
}

func TestAttachmentGateFlow(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	w := env.do(t, http.MethodPost, "/api/v1/board/jobs/1/move", session, MoveRequest{Status: "applied"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/board", session, nil)
	var view BoardResponse
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(view.Gates) != 1 || view.Gates[0].JobID != "1" || view.Gates[0].Destination != "applied" {
		t.Fatalf("expected one gate for job 1, got %+v", view.Gates)
	}

	w = env.do(t, http.MethodPost, "/api/v1/board/jobs/1/attachment", session, AttachmentRequest{URL: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for a blank URL, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/board/jobs/1/attachment", session, AttachmentRequest{URL: "https://cdn.example.com/cv.pdf"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	job := settled(t, env.board(t, session), "1")
	if job.CurrentStatus != "applied by user" {
		t.Errorf("expected 'applied by user', got '%s'", job.CurrentStatus)
	}
	if len(job.Attachments) != 1 || job.Attachments[0] != "https://cdn.example.com/cv.pdf" {
		t.Errorf("expected the attachment to be stored, got %v", job.Attachments)
	}
	if len(env.board(t, session).State().Gates) != 0 {
		t.Error("expected the gate to be closed")
	}
}

func TestCancelGateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	env.do(t, http.MethodPost, "/api/v1/board/jobs/1/move", session, MoveRequest{Status: "offer"})

	w := env.do(t, http.MethodDelete, "/api/v1/board/jobs/1/gate", session, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/api/v1/board/jobs/1/gate", session, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 once closed, got %d", w.Code)
	}

	job, _ := env.board(t, session).State().Job("1")
	if job.CurrentStatus != "saved by user" {
		t.Errorf("expected job to stay saved, got '%s'", job.CurrentStatus)
	}
}

func TestColumnPagination(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	w := env.do(t, http.MethodPut, "/api/v1/board/columns/applied/page", session, PageRequest{Page: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var col ColumnResponse
	if err := json.NewDecoder(w.Body).Decode(&col); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if col.Page != 2 || col.TotalPages != 2 || col.Total != 2 {
		t.Errorf("unexpected column paging: %+v", col)
	}
	if len(col.Cards) != 1 || col.Cards[0].JobID != "2" {
		t.Errorf("expected the older applied job on page 2, got %+v", col.Cards)
	}

	w = env.do(t, http.MethodGet, "/api/v1/board/columns/applied", session, nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/board/columns/archived", session, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unknown column, got %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	w := env.do(t, http.MethodGet, "/api/v1/board/stats", session, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	if resp.Stats["saved"] != 1 || resp.Stats["applied"] != 2 {
		t.Errorf("unexpected stats: %v", resp.Stats)
	}
}

func TestJobEndpoints(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	w := env.do(t, http.MethodPost, "/api/v1/jobs", session, JobRequest{JobTitle: "Platform Engineer", CompanyName: "Hooli"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var view BoardResponse
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.Stats["saved"] != 2 {
		t.Errorf("expected 2 saved jobs after add, got %d", view.Stats["saved"])
	}

	w = env.do(t, http.MethodPut, "/api/v1/jobs/3", session, JobRequest{JobTitle: "Senior Go Developer", CompanyName: "Initech"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	job, _ := env.board(t, session).State().Job("3")
	if job.JobTitle != "Senior Go Developer" {
		t.Errorf("expected edited title, got '%s'", job.JobTitle)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/jobs/3", session, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if _, ok := env.board(t, session).State().Job("3"); ok {
		t.Error("expected job 3 to be gone")
	}

	if w := env.do(t, http.MethodDelete, "/api/v1/jobs/3", session, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for a deleted job, got %d", w.Code)
	}
}

func TestAddJobRequiresAttachmentForForwardStatus(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	w := env.do(t, http.MethodPost, "/api/v1/jobs", session, JobRequest{
		JobTitle:      "Data Engineer",
		CompanyName:   "Umbrella",
		CurrentStatus: "applied",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCloseSessionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	session := env.open(t)

	w := env.do(t, http.MethodDelete, "/api/v1/session", session, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp SessionClosedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Closed {
		t.Error("expected the session to be closed")
	}
	if len(env.auth.cleared) != 1 || env.auth.cleared[0] != "maya@example.com" {
		t.Errorf("expected cached login to be cleared, got %v", env.auth.cleared)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/board", session, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 after close, got %d", w.Code)
	}
}

func TestMountDocsOn(t *testing.T) {
	env := newTestEnv(t)
	r := chi.NewRouter()
	env.srv.MountDocsOn(r, "Test API", "Test")

	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/api/v1/board/jobs/{id}/move") {
		t.Error("expected the move route in the OpenAPI document")
	}

	req = httptest.NewRequest(http.MethodGet, "/docs", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for docs, got %d", w.Code)
	}
}

func TestScalarHandlerEscapesTitle(t *testing.T) {
	h := ScalarHandler("/openapi.json", "Board <beta>", "Jobs & gates")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))

	body := w.Body.String()
	if strings.Contains(body, "<beta>") {
		t.Error("expected the title to be escaped")
	}
	if !strings.Contains(body, `data-url="/openapi.json"`) {
		t.Error("expected the OpenAPI document URL on the reference element")
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html content type, got '%s'", ct)
	}
}
