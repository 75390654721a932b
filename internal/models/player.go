package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// JokerKind selects which joker balance an update targets.
type JokerKind string

const (
	JokerDirect JokerKind = "direct"
	JokerAll    JokerKind = "all"
)

// JokerBalls tracks a player's self-declared joker penalty tokens.
// Direct balls charge the player immediately before the holder in turn
// order; All balls charge every other player, with the winner/non-winner
// asymmetry applied at settlement time.
type JokerBalls struct {
	Direct int `json:"direct"`
	All    int `json:"all"`
}

// Player belongs to exactly one room for its lifetime.
type Player struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Hand       []Card     `json:"hand"`
	HasLicense bool       `json:"hasLicense"`
	JokerBalls JokerBalls `json:"jokerBalls"`
	IsCreator  bool       `json:"isCreator"`
	Connected  bool       `json:"isConnected"`

	Conn *websocket.Conn `json:"-"`
}

// HoldsCard reports whether the player's hand contains the card with the
// given id, and at which index.
func (p *Player) HoldsCard(cardID uuid.UUID) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}
