package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/backend"
	"github.com/support1122/flashfire-dashboard/internal/board"
)

// BoardRegistry opens and resolves board sessions.
type BoardRegistry interface {
	Open(ctx context.Context, sess *backend.Session) (*board.Board, error)
	Get(id uuid.UUID) (*board.Board, bool)
	Close(id uuid.UUID) bool
	Len() int
}

// AuthStore persists the login between restarts.
type AuthStore interface {
	SaveAuth(ctx context.Context, sess *backend.Session) error
	LoadAuth(ctx context.Context, email string) (*backend.Session, bool, error)
	Clear(ctx context.Context, email string) error
}
