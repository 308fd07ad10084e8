package web

import (
	"encoding/json"

	"github.com/support1122/flashfire-dashboard/internal/board"
)

// EventShutdown is sent to every client before the server stops. Board
// events use the board.Event* names.
const EventShutdown = "server.shutdown"

// WSEvent represents a structured WebSocket message
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// BoardEvent encodes a board event for the wire.
func BoardEvent(e board.Event) []byte {
	b, _ := json.Marshal(WSEvent{Type: e.Type, Payload: e})
	return b
}

// ShutdownEvent tells every client the server is going away.
func ShutdownEvent() []byte {
	b, _ := json.Marshal(WSEvent{Type: EventShutdown, Payload: struct{}{}})
	return b
}
