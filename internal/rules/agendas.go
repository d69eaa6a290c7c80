package rules

import "fmt"

// bannerFactions maps banner agenda codes to the faction whose non-loyal
// cards the banner lets the deck include.
var bannerFactions = map[string]string{
	"01198": FactionBaratheon,
	"01199": FactionGreyjoy,
	"01200": FactionLannister,
	"01201": FactionMartell,
	"01202": FactionNightsWatch,
	"01203": FactionStark,
	"01204": FactionTargaryen,
	"01205": FactionTyrell,
}

// agendaRuleSets holds the per-agenda overrides keyed by card code. An agenda
// without an entry contributes the zero RuleSet (defaults, no opinion).
var agendaRuleSets = map[string]func() RuleSet{
	// Fealty: at most 15 neutral cards.
	"01027": func() RuleSet {
		return RuleSet{
			Rules: []Rule{{
				Message: "Fealty decks cannot include more than 15 neutral cards",
				Condition: func(d *Deck) bool {
					n := 0
					for _, cq := range d.DrawCards {
						if cq.Card.FactionCode == FactionNeutral {
							n += cq.Count
						}
					}
					return n <= 15
				},
			}},
		}
	},

	// Kings of Summer: no Winter plots.
	"04037": func() RuleSet {
		return RuleSet{
			CannotInclude: func(c Card) bool {
				return c.TypeCode == TypePlot && c.HasTrait("Winter")
			},
		}
	},

	// Kings of Winter: no Summer plots.
	"04038": func() RuleSet {
		return RuleSet{
			CannotInclude: func(c Card) bool {
				return c.TypeCode == TypePlot && c.HasTrait("Summer")
			},
		}
	},

	// The Rains of Castamere: 5 scheme plots on top of the usual 7, each a
	// distinct title with a single copy.
	"05045": func() RuleSet {
		return RuleSet{
			RequiredPlots: 12,
			Rules: []Rule{{
				Message: "The Rains of Castamere requires exactly 5 distinct scheme plots",
				Condition: func(d *Deck) bool {
					titles := 0
					copies := 0
					for _, cq := range d.PlotCards {
						if cq.Card.HasTrait("Scheme") {
							titles++
							copies += cq.Count
						}
					}
					return titles == 5 && copies == 5
				},
			}},
		}
	},

	// The Wars To Come: 10 plots, up to 2 of them doubled.
	"10048": func() RuleSet {
		return RuleSet{
			RequiredPlots:   10,
			MaxDoubledPlots: 2,
		}
	},

	// The Free Folk: any non-loyal card from any faction, no loyal cards at all.
	"11079": func() RuleSet {
		return RuleSet{
			MayInclude: func(c Card) bool {
				return !c.Loyal && c.TypeCode != TypeAgenda
			},
			CannotInclude: func(c Card) bool {
				return c.Loyal
			},
		}
	},

	// Kingdom of Shadows: out-of-faction non-loyal cards with the shadow keyword.
	"13079": func() RuleSet {
		return RuleSet{
			MayInclude: func(c Card) bool {
				return !c.Loyal && c.Shadow
			},
		}
	},

	// Valyrian Steel: no more than one copy of each attachment.
	"13108": uniquenessCap(TypeAttachment, "Valyrian Steel decks cannot include more than 1 copy of each attachment"),

	// The Many-Faced God: no more than one copy of each event.
	"20051": uniquenessCap(TypeEvent, "The Many-Faced God decks cannot include more than 1 copy of each event"),
}

// uniquenessCap builds an override capping every card of the given type at one
// copy across the whole deck (draw and plot sections combined).
func uniquenessCap(typeCode, message string) func() RuleSet {
	return func() RuleSet {
		return RuleSet{
			Rules: []Rule{{
				Message: message,
				Condition: func(d *Deck) bool {
					copies := map[string]int{}
					for _, cq := range d.AllCards() {
						if cq.Card.TypeCode == typeCode {
							copies[cq.Card.Code] += cq.Count
						}
					}
					for _, n := range copies {
						if n > 1 {
							return false
						}
					}
					return true
				},
			}},
		}
	}
}

// agendaRules returns the rule set contributed by the given agenda card:
// a banner's inclusion predicate, a specific override from the table, or the
// zero rule set for agendas with no deckbuilding text.
func agendaRules(agenda Card) RuleSet {
	if faction, ok := bannerFactions[agenda.Code]; ok {
		return RuleSet{
			MayInclude: func(c Card) bool {
				return c.FactionCode == faction && !c.Loyal && c.TypeCode != TypeAgenda
			},
		}
	}
	if build, ok := agendaRuleSets[agenda.Code]; ok {
		return build()
	}
	return RuleSet{}
}

// cardViolation formats a per-card violation message.
func cardViolation(card Card, reason string) string {
	return fmt.Sprintf("%s %s", card.Name, reason)
}
