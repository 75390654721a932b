package server

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/koko-mojo-astro/poker-pool/internal/game"
)

// ClientMessage is the inbound command envelope. Payload decoding is
// deferred until the type is known; unparseable messages are logged and
// dropped, never surfaced as game state.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound command types.
const (
	MsgCreateRoom  = "CREATE_ROOM"
	MsgJoinRoom    = "JOIN_ROOM"
	MsgStartGame   = "START_GAME"
	MsgDrawCard    = "DRAW_CARD"
	MsgPotCard     = "POT_CARD"
	MsgMarkFoul    = "MARK_FOUL"
	MsgUpdateJoker = "UPDATE_JOKER"
	MsgRestartGame = "RESTART_GAME"
	MsgReconnect   = "RECONNECT"
	MsgExitRoom    = "EXIT_ROOM"
)

// Outbound message types.
const (
	MsgRoomCreated = "ROOM_CREATED"
	MsgJoinedRoom  = "JOINED_ROOM"
	MsgGameUpdate  = "GAME_UPDATE"
	MsgError       = "ERROR"
	MsgRoomClosed  = "ROOM_CLOSED"
)

type createRoomPayload struct {
	GameAmount  float64 `json:"gameAmount"`
	JokerAmount float64 `json:"jokerAmount"`
	CreatorName string  `json:"creatorName"`
}

type joinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

type potCardPayload struct {
	CardID uuid.UUID `json:"cardId"`
}

type updateJokerPayload struct {
	Kind  string `json:"type"`
	Delta int    `json:"delta"`
}

type reconnectPayload struct {
	// Token is the signed seat handle issued at join time. RoomID and
	// PlayerID are the legacy fallback for clients that kept raw ids.
	Token    string    `json:"token,omitempty"`
	RoomID   uuid.UUID `json:"roomId,omitempty"`
	PlayerID uuid.UUID `json:"playerId,omitempty"`
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type roomCreatedPayload struct {
	RoomID   uuid.UUID `json:"roomId"`
	RoomCode string    `json:"roomCode"`
	PlayerID uuid.UUID `json:"playerId"`
	Token    string    `json:"token"`
}

type joinedRoomPayload struct {
	RoomID   uuid.UUID         `json:"roomId"`
	RoomCode string            `json:"roomCode"`
	PlayerID uuid.UUID         `json:"playerId"`
	Token    string            `json:"token"`
	State    game.RoomSnapshot `json:"state"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type roomClosedPayload struct {
	Reason string `json:"reason"`
}
