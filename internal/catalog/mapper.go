// Package catalog maps the external deck/card catalog into the rule engine's
// input shapes.
package catalog

import (
	"thronehall/internal/catalog/domain"
	"thronehall/internal/rules"
)

// ToRulesDeck maps a persisted deck into the engine's input shape.
func ToRulesDeck(deck *domain.Deck) *rules.Deck {
	out := &rules.Deck{
		Name:        deck.Name,
		FactionCode: deck.FactionCode,
	}
	for _, dc := range deck.Cards {
		card := toRulesCard(dc.Card)
		switch dc.Section {
		case domain.SectionAgenda:
			out.Agendas = append(out.Agendas, card)
		case domain.SectionPlot:
			out.PlotCards = append(out.PlotCards, rules.CardQuantity{Card: card, Count: dc.Count})
		default:
			out.DrawCards = append(out.DrawCards, rules.CardQuantity{Card: card, Count: dc.Count})
		}
	}
	return out
}

// ToRulesPacks maps catalog packs into the engine's pack shape.
func ToRulesPacks(packs []*domain.Pack) []rules.Pack {
	out := make([]rules.Pack, 0, len(packs))
	for _, p := range packs {
		out = append(out, rules.Pack{Code: p.Code, Name: p.Name, ReleasedAt: p.ReleasedAt})
	}
	return out
}

// ToRulesRestrictedList maps one catalog restricted list into the engine's shape.
func ToRulesRestrictedList(list *domain.RestrictedList) rules.RestrictedList {
	out := rules.RestrictedList{
		Name:       list.Name,
		Version:    list.Version,
		Restricted: list.Restricted,
		Banned:     list.Banned,
	}
	for _, pod := range list.Pods {
		out.Pods = append(out.Pods, rules.Pod{Restricted: pod.Restricted, Cards: pod.Cards})
	}
	return out
}

func toRulesCard(c domain.Card) rules.Card {
	return rules.Card{
		Code:        c.Code,
		Name:        c.Name,
		TypeCode:    c.TypeCode,
		FactionCode: c.FactionCode,
		PackCode:    c.PackCode,
		Loyal:       c.Loyal,
		Unique:      c.Unique,
		Shadow:      c.Shadow,
		DeckLimit:   c.DeckLimit,
		Traits:      c.Traits,
	}
}
