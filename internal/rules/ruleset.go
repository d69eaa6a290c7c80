package rules

// Default deckbuilding requirements, overridable per agenda.
const (
	defaultRequiredPlots   = 7
	defaultRequiredDraw    = 60
	defaultMaxDoubledPlots = 1
)

// Rule is one named whole-deck check contributed by an agenda. Condition
// returns true when the deck satisfies the rule.
type Rule struct {
	Message   string
	Condition func(*Deck) bool
}

// RuleSet describes the deckbuilding constraints one agenda (or the base
// faction rule set) contributes. Zero values mean "no override": scalar
// fields fall back to the defaults, nil predicates have no opinion.
type RuleSet struct {
	RequiredPlots   int
	RequiredDraw    int
	MaxDoubledPlots int
	// MayInclude widens eligibility: a card is eligible when at least one
	// active rule set's MayInclude accepts it.
	MayInclude func(Card) bool
	// CannotInclude forbids: a card is illegal when any active rule set's
	// CannotInclude rejects it, regardless of eligibility.
	CannotInclude func(Card) bool
	Rules         []Rule
}

// effectiveRules is the merged view over the base faction rule set and every
// agenda override. Scalars: the last non-default value wins. Predicates: a
// card is eligible if any MayInclude allows it, illegal if any CannotInclude
// forbids it. Extra rules accumulate.
type effectiveRules struct {
	requiredPlots   int
	requiredDraw    int
	maxDoubledPlots int
	sets            []RuleSet
	rules           []Rule
}

func mergeRuleSets(sets []RuleSet) effectiveRules {
	eff := effectiveRules{
		requiredPlots:   defaultRequiredPlots,
		requiredDraw:    defaultRequiredDraw,
		maxDoubledPlots: defaultMaxDoubledPlots,
		sets:            sets,
	}
	for _, rs := range sets {
		if rs.RequiredPlots != 0 && rs.RequiredPlots != defaultRequiredPlots {
			eff.requiredPlots = rs.RequiredPlots
		}
		if rs.RequiredDraw != 0 && rs.RequiredDraw != defaultRequiredDraw {
			eff.requiredDraw = rs.RequiredDraw
		}
		if rs.MaxDoubledPlots != 0 && rs.MaxDoubledPlots != defaultMaxDoubledPlots {
			eff.maxDoubledPlots = rs.MaxDoubledPlots
		}
		eff.rules = append(eff.rules, rs.Rules...)
	}
	return eff
}

// mayInclude reports whether at least one active rule set accepts the card.
func (e effectiveRules) mayInclude(card Card) bool {
	for _, rs := range e.sets {
		if rs.MayInclude != nil && rs.MayInclude(card) {
			return true
		}
	}
	return false
}

// cannotInclude reports whether any active rule set forbids the card.
func (e effectiveRules) cannotInclude(card Card) bool {
	for _, rs := range e.sets {
		if rs.CannotInclude != nil && rs.CannotInclude(card) {
			return true
		}
	}
	return false
}
