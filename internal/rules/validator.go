package rules

import (
	"fmt"
	"time"
)

// Validator gates table start: every player's selected deck must validate
// against the table's active restricted lists.
type Validator interface {
	// Validate checks the deck against deckbuilding rules, the released-pack
	// set, and zero or more restricted lists. It never mutates its inputs and
	// the returned report is never mutated after creation.
	Validate(deck *Deck, packs []Pack, lists []RestrictedList) *DeckLegalityReport
}

// StandardValidator is the stock Validator. The zero value is not usable;
// construct with NewStandardValidator.
type StandardValidator struct {
	nowF func() time.Time
}

var _ Validator = (*StandardValidator)(nil)

// NewStandardValidator returns a Validator using the wall clock for the
// unreleased-pack check.
func NewStandardValidator() *StandardValidator {
	return &StandardValidator{nowF: time.Now}
}

// Validate implements Validator.
func (v *StandardValidator) Validate(deck *Deck, packs []Pack, lists []RestrictedList) *DeckLegalityReport {
	report := &DeckLegalityReport{
		NoBannedCards:     true,
		RestrictedRules:   true,
		NoUnreleasedCards: true,
		PlotCount:         deck.CountPlotCards(),
		DrawCount:         deck.CountDrawCards(),
	}

	// Base faction rule set: in-faction and neutral cards are always eligible.
	base := RuleSet{
		MayInclude: func(c Card) bool {
			return c.FactionCode == deck.FactionCode || c.FactionCode == FactionNeutral
		},
	}
	sets := make([]RuleSet, 0, 1+len(deck.Agendas))
	sets = append(sets, base)
	for _, agenda := range deck.Agendas {
		sets = append(sets, agendaRules(agenda))
	}
	eff := mergeRuleSets(sets)

	var basic []string

	switch {
	case report.PlotCount < eff.requiredPlots:
		basic = append(basic, fmt.Sprintf("too few plot cards (%d of %d)", report.PlotCount, eff.requiredPlots))
	case report.PlotCount > eff.requiredPlots:
		basic = append(basic, fmt.Sprintf("too many plot cards (%d of %d)", report.PlotCount, eff.requiredPlots))
	}
	if report.DrawCount < eff.requiredDraw {
		basic = append(basic, fmt.Sprintf("too few draw cards (%d of %d)", report.DrawCount, eff.requiredDraw))
	}

	// A plot is doubled when it appears with quantity exactly 2 under one title.
	doubled := 0
	for _, cq := range deck.PlotCards {
		if cq.Count == 2 {
			doubled++
		}
	}
	if doubled > eff.maxDoubledPlots {
		basic = append(basic, fmt.Sprintf("too many doubled plots (%d of %d)", doubled, eff.maxDoubledPlots))
	}

	for _, cq := range deck.AllCards() {
		limit := cq.Card.DeckLimit
		if limit <= 0 {
			limit = 3
		}
		if cq.Count > limit {
			basic = append(basic, cardViolation(cq.Card, fmt.Sprintf("has more copies than its deck limit of %d", limit)))
		}
		if !eff.mayInclude(cq.Card) {
			basic = append(basic, cardViolation(cq.Card, "is not allowed by the deck's faction or agendas"))
		} else if eff.cannotInclude(cq.Card) {
			basic = append(basic, cardViolation(cq.Card, "is excluded by an agenda"))
		}
	}

	for _, rule := range eff.rules {
		if !rule.Condition(deck) {
			basic = append(basic, rule.Message)
		}
	}

	report.BasicRules = len(basic) == 0
	report.Violations = append(report.Violations, basic...)

	packsByCode := make(map[string]Pack, len(packs))
	for _, p := range packs {
		packsByCode[p.Code] = p
	}
	now := v.nowF()
	seen := map[string]bool{}
	for _, cq := range deck.AllCards() {
		if seen[cq.Card.Code] {
			continue
		}
		seen[cq.Card.Code] = true
		pack, ok := packsByCode[cq.Card.PackCode]
		if !ok || pack.ReleasedAt == nil || pack.ReleasedAt.After(now) {
			report.NoUnreleasedCards = false
			report.Violations = append(report.Violations, cardViolation(cq.Card, "is not yet released"))
		}
	}

	unique := make(map[string]Card)
	for _, cq := range deck.AllCards() {
		unique[cq.Card.Code] = cq.Card
	}
	for i, list := range lists {
		res := CheckRestrictedList(list, unique)
		report.RestrictedLists = append(report.RestrictedLists, res)
		report.Violations = append(report.Violations, res.Violations...)
		if i == 0 {
			report.NoBannedCards = res.NoBannedCards
			report.RestrictedRules = res.RestrictedRules
		}
	}

	return report
}
