package rules

// DeckLegalityReport is the immutable result of one validation call.
type DeckLegalityReport struct {
	// BasicRules is true iff no deckbuilding violation was found (faction
	// eligibility, plot/draw counts, deck limits, agenda rules).
	BasicRules bool
	// NoBannedCards reflects the first restricted list applied: false when the
	// deck contains a banned card or breaks a pod constraint. True when no
	// restricted list was supplied.
	NoBannedCards bool
	// RestrictedRules reflects the first restricted list applied: false when
	// the deck contains more than one restricted card. True when no restricted
	// list was supplied.
	RestrictedRules bool
	// NoUnreleasedCards is false when any card comes from a pack that has no
	// release date or whose release date is in the future.
	NoUnreleasedCards bool

	PlotCount int
	DrawCount int

	// Violations holds every human-readable violation message, in the order
	// the checks ran: basic rules, unreleased cards, then one block per
	// restricted list.
	Violations []string

	// RestrictedLists holds one nested result per restricted list supplied.
	RestrictedLists []*RestrictedResult
}

// Valid reports overall legality: every flag must hold.
func (r *DeckLegalityReport) Valid() bool {
	return r.BasicRules && r.NoBannedCards && r.RestrictedRules && r.NoUnreleasedCards
}

// RestrictedResult is the outcome of checking one restricted list against a deck.
type RestrictedResult struct {
	Name    string
	Version string
	// NoBannedCards is false when a banned card is present or a pod constraint
	// is broken. A second restricted card does not clear it.
	NoBannedCards bool
	// RestrictedRules is false when more than one restricted card is present.
	RestrictedRules bool
	Violations      []string
}

// Valid reports whether the deck passes this list entirely.
func (r *RestrictedResult) Valid() bool {
	return r.NoBannedCards && r.RestrictedRules
}
