package cards

import (
	"errors"
	rand "math/rand/v2"
)

// ErrDeckExhausted is returned when a draw is attempted on an empty deck.
var ErrDeckExhausted = errors.New("cards: deck exhausted")

// Deck is an ordered dealing source. Cards are consumed head-first and the
// remaining order is never observable outside this package.
type Deck struct {
	cards []Card
	next  int
}

// NewShoe builds an unshuffled shoe of decks × 52 cards. Blackjack channels
// use a multi-deck shoe reused across hands; poker hands use a single deck.
func NewShoe(decks int) *Deck {
	if decks < 1 {
		decks = 1
	}
	d := &Deck{cards: make([]Card, 0, decks*52)}
	for i := 0; i < decks; i++ {
		for suit := Spades; suit <= Clubs; suit++ {
			for rank := Two; rank <= Ace; rank++ {
				d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
			}
		}
	}
	return d
}

// NewStacked builds a deck that deals exactly the given cards in order.
// Test scenarios use it to script deals.
func NewStacked(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// Shuffle permutes the undealt remainder with Fisher-Yates. The rng comes
// from randutil so that a seeded channel replays identically.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > d.next; i-- {
		j := d.next + rng.IntN(i-d.next+1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, error) {
	if d.next >= len(d.cards) {
		return Card{}, ErrDeckExhausted
	}
	c := d.cards[d.next]
	d.next++
	return c, nil
}

// DrawN draws n cards, failing if the deck runs out partway.
func (d *Deck) DrawN(n int) ([]Card, error) {
	if d.Remaining() < n {
		return nil, ErrDeckExhausted
	}
	out := make([]Card, n)
	for i := range out {
		c, err := d.Draw()
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

// Size returns the total number of cards the deck was built with.
func (d *Deck) Size() int {
	return len(d.cards)
}

// snapshot exposes the full card multiset for the shuffle permutation law
// tests; deliberately unexported.
func (d *Deck) snapshot() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
