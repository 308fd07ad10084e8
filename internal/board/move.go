package board

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/models"
)

// Move is the handle of a status change that has been shown optimistically
// and is waiting on the job API.
type Move struct {
	OpID  uuid.UUID
	JobID string
	From  string
	To    string

	done chan struct{}
	err  error
}

func newMove(opID uuid.UUID, jobID, from, to string) *Move {
	return &Move{
		OpID:  opID,
		JobID: jobID,
		From:  from,
		To:    to,
		done:  make(chan struct{}),
	}
}

func (m *Move) finish(err error) {
	m.err = err
	close(m.done)
}

// Done is closed once the move has been confirmed or reverted.
func (m *Move) Done() <-chan struct{} {
	return m.done
}

// Err reports how the move ended. It is only meaningful after Done.
func (m *Move) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

// Wait blocks until the move resolves or ctx ends.
func (m *Move) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcome values carried by MoveEvent.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeReverted  = "reverted"
)

// MoveEvent describes a resolved move for downstream consumers.
type MoveEvent struct {
	BoardID uuid.UUID    `json:"board_id"`
	OpID    uuid.UUID    `json:"op_id"`
	Email   string       `json:"email"`
	Actor   models.Actor `json:"actor"`
	JobID   string       `json:"job_id"`
	From    string       `json:"from"`
	To      string       `json:"to"`
	Outcome string       `json:"outcome"`
	Error   string       `json:"error,omitempty"`
	At      time.Time    `json:"at"`
}

// MovePublisher forwards resolved moves, e.g. onto a message bus.
type MovePublisher interface {
	PublishMove(ctx context.Context, e MoveEvent) error
}
