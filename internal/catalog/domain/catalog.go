// Package domain holds the lobby's view of the external deck/card catalog.
package domain

import "time"

// Deck is a persisted deck as the catalog stores it.
type Deck struct {
	ID          string
	UserID      string
	Name        string
	FactionCode string
	Cards       []DeckCard
}

// Deck sections.
const (
	SectionDraw   = "draw"
	SectionPlot   = "plot"
	SectionAgenda = "agenda"
)

// DeckCard is one card entry in a deck with its section and copy count.
type DeckCard struct {
	Card    Card
	Section string
	Count   int
}

// Card carries the catalog fields the rule engine and table views read.
type Card struct {
	Code        string
	Name        string
	TypeCode    string
	FactionCode string
	PackCode    string
	Loyal       bool
	Unique      bool
	Shadow      bool
	DeckLimit   int
	Traits      []string
}

// Pack is a card pack with its release date; nil ReleasedAt means unreleased.
type Pack struct {
	Code       string
	Name       string
	ReleasedAt *time.Time
}

// RestrictedList is a tournament legality list as the catalog stores it.
type RestrictedList struct {
	ID         string
	Name       string
	Version    string
	Restricted []string
	Banned     []string
	Pods       []RestrictedPod
}

// RestrictedPod mirrors the pod constraint shape: an optional anchor card plus
// the cards that may not accompany it (or each other, when unanchored).
type RestrictedPod struct {
	Restricted string   `json:"restricted,omitempty"`
	Cards      []string `json:"cards"`
}
