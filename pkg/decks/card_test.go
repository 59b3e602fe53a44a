package decks

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeDecoder maps deck codes to fixed entries; unknown codes fail.
func fakeDecoder(codes map[string][]CardEntry) CardDecoder {
	return CardDecoderFunc(func(code string) ([]CardEntry, error) {
		entries, ok := codes[code]
		if !ok {
			return nil, errors.New("invalid deck code")
		}
		return entries, nil
	})
}

func TestCardCode(t *testing.T) {
	tests := []struct {
		set, faction, number uint32
		want                 string
		wantErr              bool
	}{
		{1, 2, 12, "01IO012", false},
		{4, 9, 1, "04MT001", false},
		{2, 6, 120, "02BW120", false},
		{1, 7, 1, "", true},
	}

	for _, tt := range tests {
		got, err := CardCode(tt.set, tt.faction, tt.number)
		if (err != nil) != tt.wantErr {
			t.Errorf("CardCode(%d, %d, %d) error = %v, wantErr %v", tt.set, tt.faction, tt.number, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("CardCode(%d, %d, %d) = %q, want %q", tt.set, tt.faction, tt.number, got, tt.want)
		}
	}
}

func TestCardsFromDeck(t *testing.T) {
	decoder := fakeDecoder(map[string][]CardEntry{
		"CODE": {{Set: 1, Faction: 0, Number: 5, Count: 3}, {Set: 3, Faction: 5, Number: 42, Count: 1}},
	})

	cards, err := CardsFromDeck(Deck{UID: "u", DeckCode: "CODE"}, decoder)
	if err != nil {
		t.Fatalf("CardsFromDeck() error = %v", err)
	}

	want := []Card{
		{DeckCode: "CODE", Code: "01DE005", Set: 1, Faction: 0, Number: 5, Count: 3},
		{DeckCode: "CODE", Code: "03SI042", Set: 3, Faction: 5, Number: 42, Count: 1},
	}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Errorf("cards mismatch (-want +got):\n%s", diff)
	}
}

func TestCardsFromDeck_Errors(t *testing.T) {
	decoder := fakeDecoder(map[string][]CardEntry{
		"BADFACTION": {{Set: 1, Faction: 8, Number: 1, Count: 1}},
	})

	if _, err := CardsFromDeck(Deck{UID: "u", DeckCode: "NOPE"}, decoder); err == nil {
		t.Error("undecodable code: error = nil")
	}
	if _, err := CardsFromDeck(Deck{UID: "u", DeckCode: "BADFACTION"}, decoder); err == nil {
		t.Error("unknown faction: error = nil")
	}
}

func TestCardsFromDecks_SkipsBadDecks(t *testing.T) {
	decoder := fakeDecoder(map[string][]CardEntry{
		"A": {{Set: 1, Faction: 1, Number: 1, Count: 2}},
		"C": {{Set: 2, Faction: 4, Number: 7, Count: 1}},
	})
	decks := []Deck{{UID: "1", DeckCode: "A"}, {UID: "2", DeckCode: "B"}, {UID: "3", DeckCode: "C"}}

	cards := CardsFromDecks(decks, decoder)
	want := []Card{
		{DeckCode: "A", Code: "01FR001", Set: 1, Faction: 1, Number: 1, Count: 2},
		{DeckCode: "C", Code: "02PZ007", Set: 2, Faction: 4, Number: 7, Count: 1},
	}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Errorf("cards mismatch (-want +got):\n%s", diff)
	}

	if got := CardsFromDecks(nil, decoder); got == nil || len(got) != 0 {
		t.Errorf("CardsFromDecks(nil) = %#v, want empty non-nil", got)
	}
}
