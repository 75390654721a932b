package game

import "errors"

// Rejection kinds reported back to the issuing connection. A rejected
// command leaves room state unchanged; none of these is fatal to the room.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrCardNotInHand      = errors.New("card not in hand")
	ErrNoEligibleCards    = errors.New("no eligible cards remaining in deck")
	ErrLicenseRequired    = errors.New("license required")
	ErrInvalidJokerDelta  = errors.New("joker balance cannot go below zero")
	ErrNotCreator         = errors.New("only the room creator can do that")
	ErrNotEnoughPlayers   = errors.New("at least 2 players required to start")
	ErrWrongStatus        = errors.New("action not allowed in current room status")
)
