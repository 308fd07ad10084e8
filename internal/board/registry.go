package board

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/backend"
)

// Registry keeps one board per open session.
type Registry struct {
	mu     sync.RWMutex
	boards map[uuid.UUID]*Board
	tmpl   Options
}

// NewRegistry creates a registry. tmpl supplies the shared dependencies for
// every board; ID, Session and OnExpired are set per board.
func NewRegistry(tmpl Options) *Registry {
	return &Registry{
		boards: make(map[uuid.UUID]*Board),
		tmpl:   tmpl,
	}
}

// Open creates and loads a board for sess.
func (r *Registry) Open(ctx context.Context, sess *backend.Session) (*Board, error) {
	opts := r.tmpl
	opts.ID = uuid.New()
	opts.Session = sess
	opts.OnExpired = func(id uuid.UUID) { r.Close(id) }

	b := New(opts)
	if err := b.Load(ctx); err != nil {
		b.Close()
		return nil, err
	}

	r.mu.Lock()
	r.boards[b.ID()] = b
	r.mu.Unlock()
	return b, nil
}

// Get returns the board for id.
func (r *Registry) Get(id uuid.UUID) (*Board, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boards[id]
	return b, ok
}

// Close closes and forgets the board for id. It reports whether a board
// was open.
func (r *Registry) Close(id uuid.UUID) bool {
	r.mu.Lock()
	b, ok := r.boards[id]
	delete(r.boards, id)
	r.mu.Unlock()

	if ok {
		b.Close()
	}
	return ok
}

// Len returns the number of open boards.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.boards)
}

// CloseAll closes every board.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	boards := r.boards
	r.boards = make(map[uuid.UUID]*Board)
	r.mu.Unlock()

	for _, b := range boards {
		b.Close()
	}
}
