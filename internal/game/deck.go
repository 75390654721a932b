package game

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/koko-mojo-astro/poker-pool/internal/models"
)

// DeckSize is the number of cards in a freshly reset deck.
const DeckSize = 52

// Deck is an ordered pile of cards. Draw removes from the top (the end of
// the slice). The zero value is unusable; construct with NewDeck.
type Deck struct {
	cards []models.Card
	rng   *rand.Rand
}

// NewDeck returns a reset, shuffled deck with a randomly seeded source.
func NewDeck() *Deck {
	return NewSeededDeck(rand.Uint64())
}

// NewSeededDeck returns a deck whose shuffles are driven by the given seed.
// Used by tests and anywhere a reproducible deal is needed.
func NewSeededDeck(seed uint64) *Deck {
	d := &Deck{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	d.Reset()
	return d
}

// Reset repopulates all 52 suit and rank combinations and shuffles.
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for _, suit := range models.Suits {
		for _, rank := range models.Ranks {
			d.cards = append(d.cards, models.Card{
				ID:   uuid.New(),
				Suit: suit,
				Rank: rank,
			})
		}
	}
	d.Shuffle()
}

// Shuffle performs an in-place Fisher–Yates permutation.
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card. ok is false when the deck is empty.
func (d *Deck) Draw() (models.Card, bool) {
	if len(d.cards) == 0 {
		return models.Card{}, false
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, true
}

// Len returns the number of cards remaining.
func (d *Deck) Len() int {
	return len(d.cards)
}
