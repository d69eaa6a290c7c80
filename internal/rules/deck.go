// Package rules implements the deck-legality engine that gates table start.
// Validation is a pure function over the deck, the released-pack set, and the
// active restricted lists; it holds no shared state and is safe to call
// concurrently from any number of sessions.
package rules

import "time"

// Faction codes as used by card data. FactionNeutral cards may be included in any deck.
const (
	FactionBaratheon   = "baratheon"
	FactionGreyjoy     = "greyjoy"
	FactionLannister   = "lannister"
	FactionMartell     = "martell"
	FactionNightsWatch = "thenightswatch"
	FactionStark       = "stark"
	FactionTargaryen   = "targaryen"
	FactionTyrell      = "tyrell"
	FactionNeutral     = "neutral"
)

// Card type codes as used by card data.
const (
	TypeAgenda     = "agenda"
	TypeAttachment = "attachment"
	TypeCharacter  = "character"
	TypeEvent      = "event"
	TypeLocation   = "location"
	TypePlot       = "plot"
)

// Card is the engine's view of a single card. It carries only the fields the
// legality rules read; presentation data stays in the catalog.
type Card struct {
	Code        string
	Name        string
	TypeCode    string
	FactionCode string
	PackCode    string
	Loyal       bool
	Unique      bool
	// Shadow marks cards with the shadow keyword (relevant to one agenda override).
	Shadow bool
	// DeckLimit is the maximum number of copies a deck may contain (usually 3, plots 2).
	DeckLimit int
	Traits    []string
}

// HasTrait reports whether the card has the given trait (case-sensitive, as in card data).
func (c Card) HasTrait(trait string) bool {
	for _, t := range c.Traits {
		if t == trait {
			return true
		}
	}
	return false
}

// CardQuantity is a card together with how many copies the deck runs.
type CardQuantity struct {
	Card  Card
	Count int
}

// Deck is the engine's input shape. The lobby maps the catalog's persisted
// deck into this form before validating.
type Deck struct {
	Name        string
	FactionCode string
	// Agendas holds the deck's agenda plus any banner agendas (a multi-banner
	// deck lists each banner here).
	Agendas   []Card
	DrawCards []CardQuantity
	PlotCards []CardQuantity
}

// CountDrawCards returns the total number of cards in the draw deck.
func (d *Deck) CountDrawCards() int {
	return countCards(d.DrawCards)
}

// CountPlotCards returns the total number of cards in the plot deck.
func (d *Deck) CountPlotCards() int {
	return countCards(d.PlotCards)
}

// AllCards returns every draw and plot card with its quantity, followed by the
// deck's agendas with quantity 1 each.
func (d *Deck) AllCards() []CardQuantity {
	out := make([]CardQuantity, 0, len(d.DrawCards)+len(d.PlotCards)+len(d.Agendas))
	out = append(out, d.DrawCards...)
	out = append(out, d.PlotCards...)
	for _, a := range d.Agendas {
		out = append(out, CardQuantity{Card: a, Count: 1})
	}
	return out
}

func countCards(cards []CardQuantity) int {
	n := 0
	for _, cq := range cards {
		n += cq.Count
	}
	return n
}

// Pack identifies a released (or unreleased) card pack. A nil ReleasedAt means
// the pack has no release date yet.
type Pack struct {
	Code       string
	Name       string
	ReleasedAt *time.Time
}
