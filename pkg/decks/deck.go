// Package decks fetches the public deck library, merges it into a sorted,
// duplicate-free collection and derives the card list of every deck.
package decks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Deck is one library entry. Identity is (UID, DeckCode).
// Its JSON form is the saved collection format; pages from the library
// endpoint use different names and are read through LibraryDeck.
type Deck struct {
	UID         string    `json:"uid"`
	DeckCode    string    `json:"deckCode"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Rating      int32     `json:"rating"`
	Mode        string    `json:"mode"`
	PlayStyle   string    `json:"playstyle"`
	CreatedAt   Timestamp `json:"createdAt"`
	ChangedAt   Timestamp `json:"changedAt"`
	IsPrivate   bool      `json:"isPrivate"`
	IsDraft     bool      `json:"isDraft"`
	IsRiot      bool      `json:"isRiot"`
}

// CompositeKey returns (uid, deck code).
func (d Deck) CompositeKey() (string, string) {
	return d.UID, d.DeckCode
}

// LibraryDeck is a deck as the library endpoint sends it.
type LibraryDeck struct {
	UID         string    `json:"uid"`
	DeckCode    string    `json:"exportUID"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Rating      int32     `json:"rating"`
	Mode        string    `json:"mode"`
	PlayStyle   string    `json:"playStyle"`
	CreatedAt   Timestamp `json:"createdAt"`
	ChangedAt   Timestamp `json:"changedAt"`
	IsPrivate   bool      `json:"isPrivate"`
	IsDraft     bool      `json:"isDraft"`
	IsRiot      bool      `json:"isRiot"`
}

// Deck converts to the saved form.
func (d LibraryDeck) Deck() Deck {
	return Deck(d)
}

// ToLibrary converts a deck to the endpoint form.
func ToLibrary(d Deck) LibraryDeck {
	return LibraryDeck(d)
}

// DeckData is the payload of one library page.
type DeckData struct {
	HasNext bool
	Decks   []Deck
}

// UnmarshalJSON decodes a page in the library endpoint's format.
func (p *DeckData) UnmarshalJSON(data []byte) error {
	var page struct {
		HasNext bool          `json:"hasNext"`
		Decks   []LibraryDeck `json:"decks"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return err
	}

	p.HasNext = page.HasNext
	p.Decks = make([]Deck, len(page.Decks))
	for i, d := range page.Decks {
		p.Decks[i] = d.Deck()
	}
	return nil
}

// Timestamp is a time carried as milliseconds since the Unix epoch.
type Timestamp struct {
	time.Time
}

// MarshalJSON encodes the time as epoch milliseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("0"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

// UnmarshalJSON decodes epoch milliseconds; null leaves the zero time.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if ms == 0 {
		t.Time = time.Time{}
		return nil
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}
