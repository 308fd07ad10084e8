package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/board"
	"github.com/support1122/flashfire-dashboard/internal/models"
)

// ============================================================================
// Common Types
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status" example:"ok" description:"Health status"`
	Version string `json:"version" example:"dev" description:"Application version"`
	Boards  int    `json:"boards" description:"Number of open board sessions"`
}

// ============================================================================
// Session Types
// ============================================================================

// SessionOpenRequest opens a board for an account.
type SessionOpenRequest struct {
	Email          string `json:"email" validate:"required,email" description:"Account email; for operations, the client being worked on"`
	Name           string `json:"name,omitempty" description:"Account display name"`
	Token          string `json:"token,omitempty" description:"Bearer token issued at login; omitted to reuse the cached one"`
	Role           string `json:"role,omitempty" example:"user" description:"user or operations"`
	OperationsName string `json:"operations_name,omitempty" description:"Operator name recorded in status suffixes"`
}

// SessionResponse describes an open board session.
type SessionResponse struct {
	ID    uuid.UUID     `json:"id" description:"Board session ID; send it as X-Session-ID"`
	Email string        `json:"email"`
	Role  string        `json:"role"`
	Board BoardResponse `json:"board"`
}

// SessionClosedResponse confirms a closed session.
type SessionClosedResponse struct {
	ID     uuid.UUID `json:"id"`
	Closed bool      `json:"closed"`
}

// ============================================================================
// Board Types
// ============================================================================

// CardResponse is a job as placed on the board.
type CardResponse struct {
	JobID         string   `json:"jobID"`
	CurrentStatus string   `json:"currentStatus" example:"applied by user"`
	JobTitle      string   `json:"jobTitle"`
	CompanyName   string   `json:"companyName"`
	JobLink       string   `json:"joblink,omitempty"`
	DateAdded     string   `json:"dateAdded,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`
	Attachments   []string `json:"attachments"`
	State         string   `json:"state" example:"confirmed" description:"confirmed, pending or reverting"`
	Gated         bool     `json:"gated,omitempty" description:"An attachment gate is open for this job"`
}

// ColumnResponse is one status lane.
type ColumnResponse struct {
	Status     string         `json:"status" example:"saved"`
	Cards      []CardResponse `json:"cards"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
}

// GateResponse is an open attachment gate.
type GateResponse struct {
	JobID       string    `json:"job_id"`
	From        string    `json:"from"`
	Destination string    `json:"destination"`
	OpenedAt    time.Time `json:"opened_at"`
}

// BoardResponse is the rendered board.
type BoardResponse struct {
	ID       uuid.UUID        `json:"id"`
	Email    string           `json:"email"`
	Role     string           `json:"role"`
	Columns  []ColumnResponse `json:"columns"`
	Gates    []GateResponse   `json:"gates"`
	Stats    map[string]int   `json:"stats"`
	Version  uint64           `json:"version" description:"Increments on every state change"`
	PageSize int              `json:"page_size"`
}

// StatsResponse counts jobs per column.
type StatsResponse struct {
	Stats map[string]int `json:"stats"`
	Total int            `json:"total"`
}

// PageRequest switches a column's page.
type PageRequest struct {
	Page int `json:"page" validate:"min=1" example:"2"`
}

// MoveRequest drops a job on a column.
type MoveRequest struct {
	Status string `json:"status" validate:"required" example:"applied"`
}

// AttachmentRequest confirms the file uploaded for a gated move.
type AttachmentRequest struct {
	URL string `json:"url" validate:"required" example:"https://cdn.example.com/resume.pdf"`
}

// MoveResponse acknowledges a move that was applied optimistically.
type MoveResponse struct {
	OpID  uuid.UUID `json:"op_id" description:"Identifies the move in websocket events"`
	JobID string    `json:"job_id"`
	From  string    `json:"from"`
	To    string    `json:"to"`
	State string    `json:"state" example:"pending" description:"pending, or confirmed for a same-column drop"`
}

// GateClosedResponse confirms a dismissed gate.
type GateClosedResponse struct {
	JobID  string `json:"job_id"`
	Closed bool   `json:"closed"`
}

// JobRequest carries the editable fields of a job.
type JobRequest struct {
	JobTitle       string   `json:"jobTitle" validate:"required"`
	CompanyName    string   `json:"companyName" validate:"required"`
	JobDescription string   `json:"jobDescription,omitempty"`
	JobLink        string   `json:"joblink,omitempty"`
	CurrentStatus  string   `json:"currentStatus,omitempty" description:"Only honoured on create; defaults to saved"`
	DateAdded      string   `json:"dateAdded,omitempty"`
	Attachments    []string `json:"attachments,omitempty"`
}

// ============================================================================
// Converters
// ============================================================================

// Details converts the request to the job API's shape.
func (r JobRequest) Details() models.JobDetails {
	return models.JobDetails{
		JobTitle:       r.JobTitle,
		CompanyName:    r.CompanyName,
		JobDescription: r.JobDescription,
		JobLink:        r.JobLink,
		CurrentStatus:  r.CurrentStatus,
		DateAdded:      r.DateAdded,
		Attachments:    r.Attachments,
	}
}

// CardFromBoard converts a rendered card.
func CardFromBoard(c board.Card) CardResponse {
	attachments := c.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return CardResponse{
		JobID:         c.JobID,
		CurrentStatus: c.CurrentStatus,
		JobTitle:      c.JobTitle,
		CompanyName:   c.CompanyName,
		JobLink:       c.JobLink,
		DateAdded:     c.DateAdded,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		Attachments:   attachments,
		State:         string(c.State),
		Gated:         c.Gated,
	}
}

// ColumnFromBoard converts a rendered column.
func ColumnFromBoard(c board.Column) ColumnResponse {
	cards := make([]CardResponse, len(c.Cards))
	for i, card := range c.Cards {
		cards[i] = CardFromBoard(card)
	}
	return ColumnResponse{
		Status:     string(c.Status),
		Cards:      cards,
		Total:      c.Total,
		Page:       c.Page,
		TotalPages: c.TotalPages,
	}
}

// StatsFromBoard converts per-column counts.
func StatsFromBoard(s board.Stats) map[string]int {
	out := make(map[string]int, len(s))
	for k, v := range s {
		out[string(k)] = v
	}
	return out
}

// BoardFromView converts a rendered board.
func BoardFromView(v board.View) BoardResponse {
	cols := make([]ColumnResponse, len(v.Columns))
	for i, c := range v.Columns {
		cols[i] = ColumnFromBoard(c)
	}
	gates := make([]GateResponse, len(v.Gates))
	for i, g := range v.Gates {
		gates[i] = GateResponse{
			JobID:       g.JobID,
			From:        g.From,
			Destination: string(g.Destination),
			OpenedAt:    g.OpenedAt,
		}
	}
	return BoardResponse{
		ID:       v.ID,
		Email:    v.Email,
		Role:     string(v.Actor.Role),
		Columns:  cols,
		Gates:    gates,
		Stats:    StatsFromBoard(v.Stats),
		Version:  v.Version,
		PageSize: v.PageSize,
	}
}

// MoveFromBoard converts a move handle.
func MoveFromBoard(m *board.Move) MoveResponse {
	state := string(board.ItemPending)
	if m.OpID == uuid.Nil {
		state = string(board.ItemConfirmed)
	}
	return MoveResponse{
		OpID:  m.OpID,
		JobID: m.JobID,
		From:  m.From,
		To:    m.To,
		State: state,
	}
}
