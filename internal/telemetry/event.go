// Package telemetry defines the lobby's telemetry event shape and the
// best-effort emission helpers used by request handlers.
package telemetry

import "time"

// Event types emitted by the lobby and the node handlers.
const (
	TypeTableCreated     = "table_created"
	TypeTableJoined      = "table_joined"
	TypeTableLeft        = "table_left"
	TypeDeckSelected     = "deck_selected"
	TypeGameStarted      = "game_started"
	TypeGameWon          = "game_won"
	TypeGameClosed       = "game_closed"
	TypeNodeAnnounced    = "node_announced"
	TypeNodeDisconnected = "node_disconnected"
	TypeChatMessage      = "chat_message"
)

// Event is a single telemetry event. TableID, UserID and NodeName are empty
// when the event has no such subject.
type Event struct {
	Type      string         `json:"eventType"`
	TableID   string         `json:"tableId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	NodeName  string         `json:"nodeName,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
