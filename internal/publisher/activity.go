package publisher

import (
	"encoding/json"

	"github.com/support1122/flashfire-dashboard/internal/board"
	"github.com/support1122/flashfire-dashboard/internal/logger"
)

// ActivityLog consumes resolved moves from the stream and writes one log
// line per move.
type ActivityLog struct {
	log *logger.Logger
}

// NewActivityLog creates an activity consumer writing to log.
func NewActivityLog(log *logger.Logger) *ActivityLog {
	return &ActivityLog{log: log}
}

// Handle processes one stream message. Malformed messages are acknowledged
// and skipped so they are not redelivered forever.
func (a *ActivityLog) Handle(data []byte) error {
	var e board.MoveEvent
	if err := json.Unmarshal(data, &e); err != nil {
		a.log.Warn().Err(err).Msg("skipping malformed move event")
		return nil
	}

	ev := a.log.Info()
	if e.Outcome == board.OutcomeReverted {
		ev = a.log.Warn().Str("error", e.Error)
	}
	ev.Str("board_id", e.BoardID.String()).
		Str("op_id", e.OpID.String()).
		Str("email", e.Email).
		Str("role", string(e.Actor.Role)).
		Str("job_id", e.JobID).
		Str("from", e.From).
		Str("to", e.To).
		Str("outcome", e.Outcome).
		Msg("job move")
	return nil
}
