package models

import "github.com/google/uuid"

// Suit is one of the four French suits.
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

// Rank is the potting equivalence class of a card. Potting any card of a
// rank clears that rank from every hand in the room.
type Rank string

const (
	RankAce   Rank = "A"
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
)

// Suits and Ranks enumerate all legal values in deck-population order.
var (
	Suits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}
	Ranks = []Rank{RankAce, RankTwo, RankThree, RankFour, RankFive, RankSix,
		RankSeven, RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing}
)

// Card is immutable once created. The ID is the only way to target a
// specific card; equality of Rank decides potting behavior.
type Card struct {
	ID   uuid.UUID `json:"id"`
	Suit Suit      `json:"suit"`
	Rank Rank      `json:"rank"`
}
