// Package domain holds the lobby's view of the external game-record service.
package domain

import "time"

// GameRecord is the persisted record of one dispatched game. Created when the
// table starts, updated when the node reports a win or closure.
type GameRecord struct {
	ID         string
	TableID    string
	Name       string
	NodeName   string
	StartedAt  time.Time
	FinishedAt *time.Time // nil while the game is running
	Winner     string     // username; empty until a GAMEWON notification
	WinReason  string
	Players    []PlayerRecord
}

// PlayerRecord is one seated player at start time.
type PlayerRecord struct {
	UserID   string
	Username string
	DeckID   string
}
