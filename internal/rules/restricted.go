package rules

import (
	"fmt"
	"strings"
)

// RestrictedList is one tournament legality list: banned and restricted card
// codes plus pods expressing mutual-exclusion constraints. Several lists may
// be active at once (e.g. the official list plus an event-specific one).
type RestrictedList struct {
	Name       string
	Version    string
	Restricted []string
	Banned     []string
	Pods       []Pod
}

// Pod groups cards that may not appear together. When Restricted is set the
// pod is anchored: if that card is in the deck, none of Cards may join it.
// When Restricted is empty the pod is mutual: at most one of Cards may be in
// the deck.
type Pod struct {
	Restricted string
	Cards      []string
}

// CheckRestrictedList evaluates one restricted list against the deck's unique
// card set (keyed by card code).
func CheckRestrictedList(list RestrictedList, cards map[string]Card) *RestrictedResult {
	res := &RestrictedResult{
		Name:            list.Name,
		Version:         list.Version,
		NoBannedCards:   true,
		RestrictedRules: true,
	}

	var restrictedPresent []Card
	for _, code := range list.Restricted {
		if c, ok := cards[code]; ok {
			restrictedPresent = append(restrictedPresent, c)
		}
	}
	if len(restrictedPresent) > 1 {
		res.RestrictedRules = false
		names := make([]string, len(restrictedPresent))
		for i, c := range restrictedPresent {
			names[i] = c.Name
		}
		res.Violations = append(res.Violations,
			fmt.Sprintf("%s contains more than one restricted card: %s", list.Name, strings.Join(names, ", ")))
	}

	for _, code := range list.Banned {
		if c, ok := cards[code]; ok {
			res.NoBannedCards = false
			res.Violations = append(res.Violations,
				fmt.Sprintf("%s bans %s", list.Name, c.Name))
		}
	}

	for _, pod := range list.Pods {
		if pod.Restricted != "" {
			anchor, ok := cards[pod.Restricted]
			if !ok {
				continue
			}
			for _, code := range pod.Cards {
				if c, ok := cards[code]; ok {
					res.NoBannedCards = false
					res.Violations = append(res.Violations,
						fmt.Sprintf("%s cannot be played alongside %s (%s pod)", c.Name, anchor.Name, list.Name))
				}
			}
			continue
		}
		var present []Card
		for _, code := range pod.Cards {
			if c, ok := cards[code]; ok {
				present = append(present, c)
			}
		}
		if len(present) > 1 {
			res.NoBannedCards = false
			names := make([]string, len(present))
			for i, c := range present {
				names[i] = c.Name
			}
			res.Violations = append(res.Violations,
				fmt.Sprintf("only one of %s may be played (%s pod)", strings.Join(names, ", "), list.Name))
		}
	}

	return res
}
