// Package bus carries the typed control-plane protocol between the lobby and
// the game-execution nodes over a single Kafka topic.
package bus

import "encoding/json"

// Kind identifies the payload type of an envelope. Every kind routes to
// exactly one handler; an unrecognized kind on the wire means the lobby and
// node deployments are out of step and is treated as fatal.
type Kind string

const (
	// KindHello announces a node to the lobby (also sent on reconnect).
	KindHello Kind = "HELLO"
	// KindLobbyHello announces a lobby restart so nodes re-announce themselves.
	KindLobbyHello Kind = "LOBBYHELLO"
	// KindPing is a lobby→node health check; KindPong is the reply.
	KindPing Kind = "PING"
	KindPong Kind = "PONG"
	// KindStartGame dispatches a table to one named node.
	KindStartGame Kind = "STARTGAME"
	// KindGameWon and KindGameClosed are node→lobby outcome notifications.
	KindGameWon    Kind = "GAMEWON"
	KindGameClosed Kind = "GAMECLOSED"
)

// Well-known targets. Besides these, envelopes may target a specific node or
// lobby by name.
const (
	// TargetLobby addresses any lobby instance.
	TargetLobby = "lobby"
	// TargetAllNodes addresses every node.
	TargetAllNodes = "allnodes"
)

// Envelope is the wire frame: who it is for, who sent it, and a typed payload.
type Envelope struct {
	Target  string          `json:"target"`
	Source  string          `json:"source,omitempty"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodePayload unmarshals the envelope payload into v.
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// HelloMessage is a node announcement. Re-announcement of a known name is a
// reconnect, not an error.
type HelloMessage struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Version  string `json:"version"`
	Capacity int    `json:"capacity"` // 0 = unbounded
}

// LobbyHelloMessage announces a lobby restart.
type LobbyHelloMessage struct {
	Name string `json:"name"`
}

// PingMessage is a health check addressed to one node.
type PingMessage struct{}

// PongMessage is a node's health-check reply.
type PongMessage struct {
	Name string `json:"name"`
}

// StartGameMessage is the dispatch payload handed to the selected node.
type StartGameMessage struct {
	TableID        string      `json:"tableId"`
	Name           string      `json:"name"`
	AllowSpectator bool        `json:"allowSpectator"`
	RestrictedList string      `json:"restrictedList,omitempty"`
	Seats          []StartSeat `json:"seats"`
}

// StartSeat is one seat in the dispatch payload.
type StartSeat struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	DeckID    string `json:"deckId,omitempty"`
	Spectator bool   `json:"spectator"`
}

// GameWonMessage reports the winner of a running game.
type GameWonMessage struct {
	TableID string `json:"tableId"`
	Winner  string `json:"winner"`
	Reason  string `json:"reason,omitempty"`
}

// GameClosedMessage reports that the node has torn the game down.
type GameClosedMessage struct {
	TableID string `json:"tableId"`
}
