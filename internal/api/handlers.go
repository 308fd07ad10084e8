// Package api provides HTTP handlers for the REST API.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-fuego/fuego"
	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/backend"
	"github.com/support1122/flashfire-dashboard/internal/board"
	"github.com/support1122/flashfire-dashboard/internal/logger"
	"github.com/support1122/flashfire-dashboard/internal/models"
)

// requester is satisfied by every fuego context.
type requester interface {
	Request() *http.Request
}

// lookup resolves the board named by the session header.
func (s *Server) lookup(c requester) (*board.Board, error) {
	raw := strings.TrimSpace(c.Request().Header.Get(SessionHeader))
	if raw == "" {
		return nil, fuego.UnauthorizedError{Detail: "missing " + SessionHeader + " header"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fuego.BadRequestError{Detail: "Invalid session ID"}
	}
	b, ok := s.deps.Boards.Get(id)
	if !ok {
		return nil, fuego.UnauthorizedError{Detail: "session not found or expired"}
	}
	return b, nil
}

// toHTTP maps board and job API errors onto HTTP errors.
func toHTTP(err error) error {
	switch {
	case errors.Is(err, board.ErrAttachmentRequired):
		return fuego.ConflictError{Detail: err.Error()}
	case errors.Is(err, board.ErrAttachmentMissing),
		errors.Is(err, board.ErrUnknownStatus),
		errors.Is(err, board.ErrInvalidJob):
		return fuego.BadRequestError{Detail: err.Error()}
	case errors.Is(err, board.ErrJobNotFound), errors.Is(err, board.ErrNoGate):
		return fuego.NotFoundError{Detail: err.Error()}
	case errors.Is(err, board.ErrClosed), errors.Is(err, backend.ErrSessionExpired):
		return fuego.UnauthorizedError{Detail: err.Error()}
	case errors.Is(err, backend.ErrLimitExceeded):
		return fuego.ForbiddenError{Detail: err.Error()}
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return fuego.HTTPError{
			Title:  "Job API error",
			Status: http.StatusBadGateway,
			Detail: apiErr.Error(),
		}
	}
	return fuego.InternalServerError{Detail: err.Error()}
}

func parseStatus(raw string) (models.Status, error) {
	st := models.Status(strings.ToLower(strings.TrimSpace(raw)))
	if !st.IsValid() {
		return "", fuego.BadRequestError{Detail: "Invalid status"}
	}
	return st, nil
}

// ============================================================================
// Health
// ============================================================================

func (s *Server) healthCheck(c fuego.ContextNoBody) (HealthResponse, error) {
	return HealthResponse{
		Status:  "ok",
		Version: s.version,
		Boards:  s.deps.Boards.Len(),
	}, nil
}

// ============================================================================
// Session Handlers
// ============================================================================

func (s *Server) openSession(c fuego.ContextWithBody[SessionOpenRequest]) (SessionResponse, error) {
	body, err := c.Body()
	if err != nil {
		return SessionResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	email := strings.TrimSpace(body.Email)
	if email == "" {
		return SessionResponse{}, fuego.BadRequestError{Detail: "email is required"}
	}

	actor := models.Actor{Role: models.Role(body.Role), Name: body.OperationsName}
	switch actor.Role {
	case "":
		actor.Role = models.RoleUser
	case models.RoleUser, models.RoleOperations:
	default:
		return SessionResponse{}, fuego.BadRequestError{Detail: "role must be user or operations"}
	}

	name, token := body.Name, body.Token
	if token == "" {
		cached, err := s.cachedLogin(c, email)
		if err != nil {
			return SessionResponse{}, err
		}
		token = cached.Token()
		if name == "" {
			name = cached.Name
		}
		if body.Role == "" {
			actor = cached.Actor
		}
	}

	b, err := s.deps.Boards.Open(c.Context(), backend.NewSession(email, name, token, actor))
	if err != nil {
		return SessionResponse{}, toHTTP(err)
	}

	if s.deps.Auth != nil {
		// Save the token in use now; it may have been refreshed during load
		if err := s.deps.Auth.SaveAuth(c.Context(), b.Session()); err != nil {
			logger.Get().Component("api").Warn().Err(err).Str("email", email).Msg("auth save failed")
		}
	}

	c.SetStatus(http.StatusCreated)
	return SessionResponse{
		ID:    b.ID(),
		Email: email,
		Role:  string(b.Session().Actor.Role),
		Board: BoardFromView(b.View()),
	}, nil
}

func (s *Server) cachedLogin(c fuego.ContextWithBody[SessionOpenRequest], email string) (*backend.Session, error) {
	if s.deps.Auth == nil {
		return nil, fuego.UnauthorizedError{Detail: "token is required"}
	}
	sess, ok, err := s.deps.Auth.LoadAuth(c.Context(), email)
	if err != nil {
		return nil, fuego.InternalServerError{Detail: err.Error()}
	}
	if !ok || sess.Token() == "" {
		return nil, fuego.UnauthorizedError{Detail: "no cached login for " + email}
	}
	return sess, nil
}

func (s *Server) closeSession(c fuego.ContextNoBody) (SessionClosedResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return SessionClosedResponse{}, err
	}

	closed := s.deps.Boards.Close(b.ID())
	if s.deps.Auth != nil {
		if err := s.deps.Auth.Clear(c.Context(), b.Session().Email); err != nil {
			return SessionClosedResponse{}, fuego.InternalServerError{Detail: err.Error()}
		}
	}

	return SessionClosedResponse{ID: b.ID(), Closed: closed}, nil
}

// ============================================================================
// Board Handlers
// ============================================================================

func (s *Server) getBoard(c fuego.ContextNoBody) (BoardResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return BoardResponse{}, err
	}
	return BoardFromView(b.View()), nil
}

func (s *Server) refreshBoard(c fuego.ContextNoBody) (BoardResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return BoardResponse{}, err
	}
	if err := b.Refresh(c.Context()); err != nil {
		return BoardResponse{}, toHTTP(err)
	}
	return BoardFromView(b.View()), nil
}

func (s *Server) getStats(c fuego.ContextNoBody) (StatsResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return StatsResponse{}, err
	}
	stats := b.State().Stats()
	total := 0
	for _, n := range stats {
		total += n
	}
	return StatsResponse{Stats: StatsFromBoard(stats), Total: total}, nil
}

func (s *Server) getColumn(c fuego.ContextNoBody) (ColumnResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return ColumnResponse{}, err
	}
	status, err := parseStatus(c.PathParam("status"))
	if err != nil {
		return ColumnResponse{}, err
	}
	col, err := b.Column(status)
	if err != nil {
		return ColumnResponse{}, toHTTP(err)
	}
	return ColumnFromBoard(col), nil
}

func (s *Server) setPage(c fuego.ContextWithBody[PageRequest]) (ColumnResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return ColumnResponse{}, err
	}
	status, err := parseStatus(c.PathParam("status"))
	if err != nil {
		return ColumnResponse{}, err
	}

	body, err := c.Body()
	if err != nil {
		return ColumnResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}
	if body.Page < 1 {
		return ColumnResponse{}, fuego.BadRequestError{Detail: "page must be at least 1"}
	}

	if err := b.SetPage(status, body.Page); err != nil {
		return ColumnResponse{}, toHTTP(err)
	}
	col, err := b.Column(status)
	if err != nil {
		return ColumnResponse{}, toHTTP(err)
	}
	return ColumnFromBoard(col), nil
}

func (s *Server) moveJob(c fuego.ContextWithBody[MoveRequest]) (MoveResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return MoveResponse{}, err
	}

	body, err := c.Body()
	if err != nil {
		return MoveResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}
	status, err := parseStatus(body.Status)
	if err != nil {
		return MoveResponse{}, err
	}

	m, err := b.MoveJob(c.PathParam("id"), status)
	if err != nil {
		return MoveResponse{}, toHTTP(err)
	}

	resp := MoveFromBoard(m)
	if resp.State == string(board.ItemPending) {
		c.SetStatus(http.StatusAccepted)
	}
	return resp, nil
}

func (s *Server) confirmAttachment(c fuego.ContextWithBody[AttachmentRequest]) (MoveResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return MoveResponse{}, err
	}

	body, err := c.Body()
	if err != nil {
		return MoveResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	m, err := b.ConfirmAttachment(c.PathParam("id"), body.URL)
	if err != nil {
		return MoveResponse{}, toHTTP(err)
	}

	c.SetStatus(http.StatusAccepted)
	return MoveFromBoard(m), nil
}

func (s *Server) cancelGate(c fuego.ContextNoBody) (GateClosedResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return GateClosedResponse{}, err
	}
	jobID := c.PathParam("id")
	if err := b.CancelGate(jobID); err != nil {
		return GateClosedResponse{}, toHTTP(err)
	}
	return GateClosedResponse{JobID: jobID, Closed: true}, nil
}

// ============================================================================
// Jobs Handlers
// ============================================================================

func (s *Server) addJob(c fuego.ContextWithBody[JobRequest]) (BoardResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return BoardResponse{}, err
	}

	body, err := c.Body()
	if err != nil {
		return BoardResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	if err := b.AddJob(c.Context(), body.Details()); err != nil {
		return BoardResponse{}, toHTTP(err)
	}

	c.SetStatus(http.StatusCreated)
	return BoardFromView(b.View()), nil
}

func (s *Server) editJob(c fuego.ContextWithBody[JobRequest]) (BoardResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return BoardResponse{}, err
	}

	body, err := c.Body()
	if err != nil {
		return BoardResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	if err := b.EditJob(c.Context(), c.PathParam("id"), body.Details()); err != nil {
		return BoardResponse{}, toHTTP(err)
	}
	return BoardFromView(b.View()), nil
}

func (s *Server) deleteJob(c fuego.ContextNoBody) (BoardResponse, error) {
	b, err := s.lookup(c)
	if err != nil {
		return BoardResponse{}, err
	}
	if err := b.DeleteJob(c.Context(), c.PathParam("id")); err != nil {
		return BoardResponse{}, toHTTP(err)
	}
	return BoardFromView(b.View()), nil
}
