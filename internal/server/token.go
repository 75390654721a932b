package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionTokenTTL bounds how long a dropped player can still reconnect
// with the same seat.
const sessionTokenTTL = 24 * time.Hour

// sessionClaims binds a seat (room, player) to a signed token so a fresh
// socket can reclaim it without the server trusting raw ids off the wire.
type sessionClaims struct {
	RoomID   uuid.UUID `json:"roomId"`
	PlayerID uuid.UUID `json:"playerId"`
	jwt.RegisteredClaims
}

// issueToken signs a reconnect token for the given seat.
func (s *Server) issueToken(roomID, playerID uuid.UUID) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RoomID:   roomID,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// parseToken validates a reconnect token and returns the seat it names.
func (s *Server) parseToken(token string) (roomID, playerID uuid.UUID, err error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if !parsed.Valid {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid session token")
	}
	return claims.RoomID, claims.PlayerID, nil
}
