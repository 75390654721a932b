package models

import "github.com/google/uuid"

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "WAITING"
	StatusPlaying  RoomStatus = "PLAYING"
	StatusFinished RoomStatus = "FINISHED"
)

// RoomConfig holds the money parameters agreed on at room creation.
// GameAmount is the base stake each loser owes the winner; JokerAmount is
// the per-ball unit for joker settlements.
type RoomConfig struct {
	GameAmount  float64 `json:"gameAmount"`
	JokerAmount float64 `json:"jokerAmount"`
}

// PairwiseSettlement is one pre-netted payment obligation between two
// players. At most one exists per unordered pair, and Amount is always
// strictly positive and rounded to two decimals.
type PairwiseSettlement struct {
	FromPlayerID uuid.UUID `json:"fromPlayerId"`
	ToPlayerID   uuid.UUID `json:"toPlayerId"`
	Amount       float64   `json:"amount"`
	Breakdown    string    `json:"breakdown"`
}

// PlayerSnapshot freezes the fields of a player that matter for reading a
// finished match later: joker declarations and remaining hand size.
type PlayerSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	DirectJ   int       `json:"directJ"`
	AllJ      int       `json:"allJ"`
	CardCount int       `json:"cardCount"`
}

// MatchResult is appended to room history exactly once per terminal
// transition. NetChanges sums to zero across all players.
type MatchResult struct {
	WinnerID        uuid.UUID             `json:"winnerId"`
	WinnerName      string                `json:"winnerName"`
	Timestamp       int64                 `json:"timestamp"`
	NetChanges      map[uuid.UUID]float64 `json:"netChanges"`
	PlayerSnapshots []PlayerSnapshot      `json:"playerSnapshots"`
	Settlements     []PairwiseSettlement  `json:"settlements"`
}
