package board

import (
	"time"

	"github.com/google/uuid"
)

// Event types pushed to connected clients.
const (
	EventJobPending      = "board.job.pending"
	EventJobConfirmed    = "board.job.confirmed"
	EventJobReverting    = "board.job.reverting"
	EventJobReverted     = "board.job.reverted"
	EventReplaced        = "board.replaced"
	EventGateOpened      = "board.gate.opened"
	EventGateClosed      = "board.gate.closed"
	EventPageChanged     = "board.page.changed"
	EventToast           = "notify.toast"
	EventLimitExceeded   = "notify.limit_exceeded"
	EventSessionExpired  = "notify.session_expired"
	limitExceededMessage = "You have reached your removal limit. Contact support to raise it."
)

// Event is a single board change or user notification.
type Event struct {
	Type     string    `json:"type"`
	BoardID  uuid.UUID `json:"board_id"`
	JobID    string    `json:"job_id,omitempty"`
	Status   string    `json:"status,omitempty"`
	Previous string    `json:"previous,omitempty"`
	OpID     string    `json:"op_id,omitempty"`
	Page     int       `json:"page,omitempty"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

// Sink receives board events. Implementations must not block.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) { f(e) }

// eventsFor translates a committed transition into client events.
func eventsFor(prev, next State, a Action) []Event {
	switch a := a.(type) {
	case Optimistic:
		it := next.ItemOf(a.JobID)
		return []Event{{Type: EventJobPending, JobID: a.JobID, Status: a.Status, Previous: it.Previous, OpID: a.OpID.String()}}
	case Replace:
		if a.OpID == uuid.Nil {
			return []Event{{Type: EventReplaced}}
		}
		var jobID string
		for id, it := range prev.Items {
			if it.OpID == a.OpID {
				jobID = id
				break
			}
		}
		out := []Event{}
		if jobID != "" {
			var status string
			if j, ok := next.Job(jobID); ok {
				status = j.CurrentStatus
			}
			out = append(out, Event{Type: EventJobConfirmed, JobID: jobID, Status: status, OpID: a.OpID.String()})
		}
		return append(out, Event{Type: EventReplaced})
	case Revert:
		var status string
		if j, ok := next.Job(a.JobID); ok {
			status = j.CurrentStatus
		}
		return []Event{{Type: EventJobReverting, JobID: a.JobID, Status: status, OpID: a.OpID.String()}}
	case Settle:
		return []Event{{Type: EventJobReverted, JobID: a.JobID, OpID: a.OpID.String()}}
	case OpenGate:
		return []Event{{Type: EventGateOpened, JobID: a.Gate.JobID, Status: string(a.Gate.Destination), Previous: a.Gate.From}}
	case CloseGate:
		return []Event{{Type: EventGateClosed, JobID: a.JobID}}
	case SetPage:
		return []Event{{Type: EventPageChanged, Status: string(a.Status), Page: next.Page(a.Status)}}
	}
	return nil
}
