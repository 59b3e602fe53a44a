package decks

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// factions maps numeric faction ids to their card code abbreviation.
var factions = map[uint32]string{
	0: "DE",
	1: "FR",
	2: "IO",
	3: "NX",
	4: "PZ",
	5: "SI",
	6: "BW",
	9: "MT",
}

// CardEntry is one decoded (card, count) pair of a deck code.
type CardEntry struct {
	Set     uint32
	Faction uint32
	Number  uint32
	Count   int32
}

// CardDecoder expands a deck code into its card entries.
type CardDecoder interface {
	Decode(deckCode string) ([]CardEntry, error)
}

// CardDecoderFunc adapts a function to CardDecoder.
type CardDecoderFunc func(deckCode string) ([]CardEntry, error)

// Decode implements CardDecoder.
func (f CardDecoderFunc) Decode(deckCode string) ([]CardEntry, error) {
	return f(deckCode)
}

// Card is one card of one deck.
type Card struct {
	DeckCode string `json:"deckCode"`
	Code     string `json:"code"`
	Set      uint32 `json:"set"`
	Faction  uint32 `json:"faction"`
	Number   uint32 `json:"number"`
	Count    int32  `json:"count"`
}

// CardCode formats a card code, e.g. set 1, faction 2, number 12 is "01IO012".
func CardCode(set, faction, number uint32) (string, error) {
	abbrev, ok := factions[faction]
	if !ok {
		return "", fmt.Errorf("unknown faction %d", faction)
	}
	return fmt.Sprintf("%02d%s%03d", set, abbrev, number), nil
}

// CardsFromDeck expands one deck into its cards.
func CardsFromDeck(deck Deck, decoder CardDecoder) ([]Card, error) {
	entries, err := decoder.Decode(deck.DeckCode)
	if err != nil {
		return nil, fmt.Errorf("decode deck %s: %w", deck.UID, err)
	}

	cards := make([]Card, 0, len(entries))
	for _, e := range entries {
		code, err := CardCode(e.Set, e.Faction, e.Number)
		if err != nil {
			return nil, fmt.Errorf("deck %s: %w", deck.UID, err)
		}
		cards = append(cards, Card{
			DeckCode: deck.DeckCode,
			Code:     code,
			Set:      e.Set,
			Faction:  e.Faction,
			Number:   e.Number,
			Count:    e.Count,
		})
	}
	return cards, nil
}

// CardsFromDecks expands every deck, skipping decks whose code does not decode.
func CardsFromDecks(decks []Deck, decoder CardDecoder) []Card {
	cards := make([]Card, 0, len(decks))
	skipped := 0
	for _, d := range decks {
		deckCards, err := CardsFromDeck(d, decoder)
		if err != nil {
			skipped++
			log.Warn().Err(err).Str("uid", d.UID).Msg("Skipping deck with undecodable code")
			continue
		}
		cards = append(cards, deckCards...)
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Int("decks", len(decks)).Msg("Some decks were not expanded into cards")
	}
	return cards
}
