package publisher

import (
	"context"
	"fmt"

	"github.com/support1122/flashfire-dashboard/internal/board"
	"github.com/support1122/flashfire-dashboard/internal/nats"
)

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(ctx context.Context, subject string, data any) error
}

// NATSPublisher implements board.MovePublisher
type NATSPublisher struct {
	js NATSClient
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(client NATSClient) *NATSPublisher {
	return &NATSPublisher{js: client}
}

// PublishMove publishes a resolved move on the subject for its outcome.
func (p *NATSPublisher) PublishMove(ctx context.Context, event board.MoveEvent) error {
	subject := nats.SubjectJobMoved
	if event.Outcome == board.OutcomeReverted {
		subject = nats.SubjectJobReverted
	}

	if err := p.js.Publish(ctx, subject, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}
