package frame

import "strings"

// Card is a single header record.
type Card struct {
	Key     string
	Value   any
	Comment string
}

// Header is an ordered list of cards. Keys are stored upper-case, as FITS
// requires. COMMENT and HISTORY may repeat; every other key is unique.
type Header struct {
	cards []Card
}

func normKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func repeatable(key string) bool {
	return key == "COMMENT" || key == "HISTORY" || key == ""
}

// Len returns the number of cards.
func (h *Header) Len() int { return len(h.cards) }

// Cards returns a copy of the cards in order.
func (h *Header) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Get returns the first card with the given key.
func (h *Header) Get(key string) (Card, bool) {
	key = normKey(key)
	for _, c := range h.cards {
		if c.Key == key {
			return c, true
		}
	}
	return Card{}, false
}

// Set replaces the value and comment of key, appending a new card when the
// key is absent. Repeatable keys always append.
func (h *Header) Set(key string, value any, comment string) {
	key = normKey(key)
	if !repeatable(key) {
		for i := range h.cards {
			if h.cards[i].Key == key {
				h.cards[i].Value = value
				h.cards[i].Comment = comment
				return
			}
		}
	}
	h.cards = append(h.cards, Card{Key: key, Value: value, Comment: comment})
}

// Delete removes every card with the given key.
func (h *Header) Delete(key string) {
	key = normKey(key)
	kept := h.cards[:0]
	for _, c := range h.cards {
		if c.Key != key {
			kept = append(kept, c)
		}
	}
	h.cards = kept
}

// Clone returns an independent copy of h.
func (h *Header) Clone() Header {
	return Header{cards: h.Cards()}
}
