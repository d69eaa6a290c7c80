package domain

import (
	"time"

	"thronehall/internal/rules"
)

// SeatView is the client-facing snapshot of one seat. Deck identity stays
// private to the seat holder; other members only see readiness and legality.
type SeatView struct {
	Username     string `json:"username"`
	Avatar       string `json:"avatar,omitempty"`
	Role         string `json:"role"`
	HasLeft      bool   `json:"hasLeft,omitempty"`
	DeckSelected bool   `json:"deckSelected"`
	DeckLegal    *bool  `json:"deckLegal,omitempty"` // nil until a deck is selected
}

// TableView is the client-facing snapshot of a table with a stable field set.
type TableView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Owner          string     `json:"owner"`
	NeedsPassword  bool       `json:"needsPassword"`
	AllowSpectator bool       `json:"allowSpectator"`
	ShowHand       bool       `json:"showHand"`
	GameType       string     `json:"gameType,omitempty"`
	RestrictedList string     `json:"restrictedList,omitempty"`
	Started        bool       `json:"started"`
	Node           string     `json:"node,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	Seats          []SeatView `json:"seats"`
}

// View builds the table snapshot. Callers must hold the table mutex.
func (t *Table) View() TableView {
	v := TableView{
		ID:             t.ID.String(),
		Name:           t.Name,
		Owner:          t.Owner,
		NeedsPassword:  t.PasswordHash != "",
		AllowSpectator: t.AllowSpectator,
		ShowHand:       t.ShowHand,
		GameType:       t.GameType,
		RestrictedList: t.RestrictedList,
		Started:        t.Started,
		Node:           t.NodeName,
		CreatedAt:      t.CreatedAt,
	}
	for _, s := range t.Seats {
		sv := SeatView{
			Username:     s.User.Username,
			Avatar:       s.User.Avatar,
			Role:         string(s.Role),
			HasLeft:      s.HasLeft,
			DeckSelected: s.DeckID != "",
		}
		if s.Legality != nil {
			legal := s.Legality.Valid()
			sv.DeckLegal = &legal
		}
		v.Seats = append(v.Seats, sv)
	}
	return v
}

// SeatState is the private per-seat detail pushed only to the seat holder,
// including the full legality report for their own deck.
type SeatState struct {
	Table    TableView                 `json:"table"`
	DeckID   string                    `json:"deckId,omitempty"`
	DeckName string                    `json:"deckName,omitempty"`
	Legality *rules.DeckLegalityReport `json:"legality,omitempty"`
}
