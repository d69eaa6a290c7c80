package rules

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

var coreReleased = time.Date(2015, 10, 1, 0, 0, 0, 0, time.UTC)

func testValidator() *StandardValidator {
	v := NewStandardValidator()
	v.nowF = func() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) }
	return v
}

func testPacks() []Pack {
	return []Pack{{Code: "Core", Name: "Core Set", ReleasedAt: &coreReleased}}
}

func starkChar(code, name string) Card {
	return Card{
		Code: code, Name: name, TypeCode: TypeCharacter,
		FactionCode: FactionStark, PackCode: "Core", DeckLimit: 3,
	}
}

func starkPlot(code, name string) Card {
	return Card{
		Code: code, Name: name, TypeCode: TypePlot,
		FactionCode: FactionStark, PackCode: "Core", DeckLimit: 2,
	}
}

// legalStarkDeck builds a deck that passes every basic rule: 7 distinct plots
// and 60 draw cards, all Stark, nothing over its deck limit.
func legalStarkDeck() *Deck {
	d := &Deck{Name: "Winter is Coming", FactionCode: FactionStark}
	for i := 0; i < 7; i++ {
		d.PlotCards = append(d.PlotCards, CardQuantity{
			Card: starkPlot(fmt.Sprintf("plot%02d", i), fmt.Sprintf("Plot %d", i)), Count: 1,
		})
	}
	for i := 0; i < 20; i++ {
		d.DrawCards = append(d.DrawCards, CardQuantity{
			Card: starkChar(fmt.Sprintf("char%02d", i), fmt.Sprintf("Character %d", i)), Count: 3,
		})
	}
	return d
}

func TestValidate_LegalDeck(t *testing.T) {
	v := testValidator()
	report := v.Validate(legalStarkDeck(), testPacks(), nil)

	if !report.BasicRules {
		t.Errorf("BasicRules = false, violations: %v", report.Violations)
	}
	if !report.NoBannedCards || !report.RestrictedRules || !report.NoUnreleasedCards {
		t.Errorf("flags = %v/%v/%v, want all true",
			report.NoBannedCards, report.RestrictedRules, report.NoUnreleasedCards)
	}
	if !report.Valid() {
		t.Error("Valid() = false for a legal deck")
	}
	if report.PlotCount != 7 || report.DrawCount != 60 {
		t.Errorf("counts = %d plots / %d draw, want 7/60", report.PlotCount, report.DrawCount)
	}
}

func TestValidate_IsPure(t *testing.T) {
	v := testValidator()
	deck := legalStarkDeck()
	deck.DrawCards[0].Count = 4 // introduce a violation so both runs produce messages

	first := v.Validate(deck, testPacks(), nil)
	second := v.Validate(deck, testPacks(), nil)
	if !reflect.DeepEqual(first, second) {
		t.Error("two validations of identical inputs produced different reports")
	}
}

func TestValidate_PlotCount(t *testing.T) {
	v := testValidator()

	deck := legalStarkDeck()
	deck.PlotCards = deck.PlotCards[:6]
	report := v.Validate(deck, testPacks(), nil)
	if report.BasicRules {
		t.Error("BasicRules = true with 6 plots")
	}
	if !hasViolation(report.Violations, "too few plot cards") {
		t.Errorf("missing too-few-plots violation, got %v", report.Violations)
	}

	deck = legalStarkDeck()
	deck.PlotCards = append(deck.PlotCards, CardQuantity{Card: starkPlot("plot07", "Plot 7"), Count: 1})
	report = v.Validate(deck, testPacks(), nil)
	if report.BasicRules {
		t.Error("BasicRules = true with 8 plots")
	}
	if !hasViolation(report.Violations, "too many plot cards") {
		t.Errorf("missing too-many-plots violation, got %v", report.Violations)
	}
}

func TestValidate_TooFewDrawCards(t *testing.T) {
	v := testValidator()
	deck := legalStarkDeck()
	deck.DrawCards = deck.DrawCards[:19] // 57 cards

	report := v.Validate(deck, testPacks(), nil)
	if report.BasicRules {
		t.Error("BasicRules = true with 57 draw cards")
	}
	if !hasViolation(report.Violations, "too few draw cards") {
		t.Errorf("missing too-few-draw violation, got %v", report.Violations)
	}
}

func TestValidate_DeckLimit(t *testing.T) {
	v := testValidator()
	deck := legalStarkDeck()
	limited := starkChar("lim01", "Limited Card")
	limited.DeckLimit = 1
	deck.DrawCards[0] = CardQuantity{Card: limited, Count: 2}
	// keep the draw count at 60
	deck.DrawCards = append(deck.DrawCards, CardQuantity{Card: starkChar("fill1", "Filler"), Count: 1})

	report := v.Validate(deck, testPacks(), nil)
	if report.BasicRules {
		t.Error("BasicRules = true with a card over its deck limit")
	}
	matches := 0
	for _, msg := range report.Violations {
		if strings.Contains(msg, "Limited Card") {
			matches++
		}
	}
	if matches != 1 {
		t.Errorf("got %d violations naming the card, want exactly 1: %v", matches, report.Violations)
	}
}

func TestValidate_OutOfFactionCard(t *testing.T) {
	v := testValidator()
	lion := Card{
		Code: "lion01", Name: "Lannister Guard", TypeCode: TypeCharacter,
		FactionCode: FactionLannister, PackCode: "Core", DeckLimit: 3,
	}

	deck := legalStarkDeck()
	deck.DrawCards[0] = CardQuantity{Card: lion, Count: 3}
	report := v.Validate(deck, testPacks(), nil)
	if report.BasicRules {
		t.Error("BasicRules = true with an out-of-faction card and no banner")
	}
	if !hasViolation(report.Violations, "is not allowed by the deck's faction or agendas") {
		t.Errorf("missing eligibility violation, got %v", report.Violations)
	}

	// Banner of the Lion admits non-loyal Lannister cards.
	deck = legalStarkDeck()
	deck.DrawCards[0] = CardQuantity{Card: lion, Count: 3}
	deck.Agendas = []Card{{Code: "01200", Name: "Banner of the Lion", TypeCode: TypeAgenda, FactionCode: FactionNeutral, PackCode: "Core"}}
	report = v.Validate(deck, testPacks(), nil)
	if !report.BasicRules {
		t.Errorf("BasicRules = false with Banner of the Lion, violations: %v", report.Violations)
	}

	// A loyal card stays out even with the banner.
	loyal := lion
	loyal.Code = "lion02"
	loyal.Name = "Loyal Lion"
	loyal.Loyal = true
	deck.DrawCards[1] = CardQuantity{Card: loyal, Count: 3}
	report = v.Validate(deck, testPacks(), nil)
	if report.BasicRules {
		t.Error("BasicRules = true with a loyal out-of-faction card under a banner")
	}
}

func TestValidate_MultiBannerMerge(t *testing.T) {
	v := testValidator()
	deck := legalStarkDeck()
	deck.Agendas = []Card{
		{Code: "01200", Name: "Banner of the Lion", TypeCode: TypeAgenda, FactionCode: FactionNeutral, PackCode: "Core"},
		{Code: "01199", Name: "Banner of the Kraken", TypeCode: TypeAgenda, FactionCode: FactionNeutral, PackCode: "Core"},
	}
	kraken := Card{
		Code: "krak01", Name: "Iron Fleet Scout", TypeCode: TypeCharacter,
		FactionCode: FactionGreyjoy, PackCode: "Core", DeckLimit: 3,
	}
	deck.DrawCards[0] = CardQuantity{Card: kraken, Count: 3}

	report := v.Validate(deck, testPacks(), nil)
	if !report.BasicRules {
		t.Errorf("card allowed by one of two banners should be legal, violations: %v", report.Violations)
	}
}

func TestValidate_KingsOfWinterExcludesSummerPlots(t *testing.T) {
	v := testValidator()
	deck := legalStarkDeck()
	deck.Agendas = []Card{{Code: "04038", Name: "Kings of Winter", TypeCode: TypeAgenda, FactionCode: FactionNeutral, PackCode: "Core"}}
	summer := starkPlot("plot99", "A Summer Feast")
	summer.Traits = []string{"Summer"}
	deck.PlotCards[0] = CardQuantity{Card: summer, Count: 1}

	report := v.Validate(deck, testPacks(), nil)
	if report.BasicRules {
		t.Error("BasicRules = true for a Summer plot under Kings of Winter")
	}
	if !hasViolation(report.Violations, "is excluded by an agenda") {
		t.Errorf("missing exclusion violation, got %v", report.Violations)
	}
}

func TestValidate_DoubledPlots(t *testing.T) {
	v := testValidator()

	// Two doubled plots under the default limit of one.
	deck := legalStarkDeck()
	deck.PlotCards = deck.PlotCards[:3]
	deck.PlotCards = append(deck.PlotCards,
		CardQuantity{Card: starkPlot("dbl01", "Doubled One"), Count: 2},
		CardQuantity{Card: starkPlot("dbl02", "Doubled Two"), Count: 2},
	)
	report := v.Validate(deck, testPacks(), nil)
	if !hasViolation(report.Violations, "too many doubled plots") {
		t.Errorf("missing doubled-plots violation, got %v", report.Violations)
	}

	// The Wars To Come raises both the plot requirement and the doubled cap.
	deck = legalStarkDeck()
	deck.Agendas = []Card{{Code: "10048", Name: "The Wars To Come", TypeCode: TypeAgenda, FactionCode: FactionNeutral, PackCode: "Core"}}
	deck.PlotCards = deck.PlotCards[:6]
	deck.PlotCards = append(deck.PlotCards,
		CardQuantity{Card: starkPlot("dbl01", "Doubled One"), Count: 2},
		CardQuantity{Card: starkPlot("dbl02", "Doubled Two"), Count: 2},
	)
	report = v.Validate(deck, testPacks(), nil)
	if !report.BasicRules {
		t.Errorf("BasicRules = false for 10 plots with 2 doubled under The Wars To Come: %v", report.Violations)
	}
}

func TestValidate_RainsOfCastamereSchemes(t *testing.T) {
	v := testValidator()

	schemes := func(n int) []CardQuantity {
		out := make([]CardQuantity, 0, n)
		for i := 0; i < n; i++ {
			p := starkPlot(fmt.Sprintf("sch%02d", i), fmt.Sprintf("Scheme %d", i))
			p.Traits = []string{"Scheme"}
			out = append(out, CardQuantity{Card: p, Count: 1})
		}
		return out
	}

	deck := legalStarkDeck()
	deck.Agendas = []Card{{Code: "05045", Name: "The Rains of Castamere", TypeCode: TypeAgenda, FactionCode: FactionNeutral, PackCode: "Core"}}
	deck.PlotCards = append(deck.PlotCards, schemes(5)...)
	report := v.Validate(deck, testPacks(), nil)
	if !report.BasicRules {
		t.Errorf("BasicRules = false for 7+5 scheme plots: %v", report.Violations)
	}

	deck = legalStarkDeck()
	deck.Agendas = []Card{{Code: "05045", Name: "The Rains of Castamere", TypeCode: TypeAgenda, FactionCode: FactionNeutral, PackCode: "Core"}}
	deck.PlotCards = append(deck.PlotCards, schemes(4)...)
	deck.PlotCards = append(deck.PlotCards, CardQuantity{Card: starkPlot("plotx", "Extra"), Count: 1})
	report = v.Validate(deck, testPacks(), nil)
	if report.BasicRules {
		t.Error("BasicRules = true with only 4 scheme plots under Rains")
	}
	if !hasViolation(report.Violations, "5 distinct scheme plots") {
		t.Errorf("missing scheme violation, got %v", report.Violations)
	}
}

func TestValidate_ManyFacedGodCapsEvents(t *testing.T) {
	v := testValidator()
	deck := legalStarkDeck()
	deck.Agendas = []Card{{Code: "20051", Name: "The Many-Faced God", TypeCode: TypeAgenda, FactionCode: FactionNeutral, PackCode: "Core"}}
	event := Card{
		Code: "ev01", Name: "Winter Reserves", TypeCode: TypeEvent,
		FactionCode: FactionStark, PackCode: "Core", DeckLimit: 3,
	}
	deck.DrawCards[0] = CardQuantity{Card: event, Count: 2}
	deck.DrawCards = append(deck.DrawCards, CardQuantity{Card: starkChar("fill1", "Filler"), Count: 1})

	report := v.Validate(deck, testPacks(), nil)
	if report.BasicRules {
		t.Error("BasicRules = true with 2 copies of an event under The Many-Faced God")
	}
	if !hasViolation(report.Violations, "more than 1 copy of each event") {
		t.Errorf("missing event-cap violation, got %v", report.Violations)
	}
}

func TestValidate_UnreleasedCards(t *testing.T) {
	v := testValidator()
	future := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	packs := append(testPacks(),
		Pack{Code: "Future", Name: "Future Pack", ReleasedAt: &future},
		Pack{Code: "Undated", Name: "Undated Pack"},
	)

	deck := legalStarkDeck()
	unreleased := starkChar("fut01", "Future Card")
	unreleased.PackCode = "Future"
	undated := starkChar("und01", "Undated Card")
	undated.PackCode = "Undated"
	deck.DrawCards[0] = CardQuantity{Card: unreleased, Count: 3}
	deck.DrawCards[1] = CardQuantity{Card: undated, Count: 3}

	report := v.Validate(deck, packs, nil)
	if report.NoUnreleasedCards {
		t.Error("NoUnreleasedCards = true with unreleased cards")
	}
	if !report.BasicRules {
		t.Errorf("unreleased cards must not fail basic rules, violations: %v", report.Violations)
	}
	named := 0
	for _, msg := range report.Violations {
		if strings.Contains(msg, "is not yet released") {
			named++
		}
	}
	if named != 2 {
		t.Errorf("got %d unreleased violations, want 2: %v", named, report.Violations)
	}
}

func hasViolation(violations []string, substr string) bool {
	for _, v := range violations {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}
