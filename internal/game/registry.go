package game

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/koko-mojo-astro/poker-pool/internal/models"
)

// roomCodeAlphabet omits easily-confused characters (I, O, 0, 1).
const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
)

// Registry owns every live room, keyed by id and by the human-shareable
// room code. The registry lock covers only the maps; each room carries its
// own mutex, so actions in different rooms never contend.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]*Room
	byCode map[string]*Room
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[uuid.UUID]*Room),
		byCode: make(map[string]*Room),
	}
}

// CreateRoom allocates a WAITING room with the creator as its only player
// and a room code unique among live rooms.
func (reg *Registry) CreateRoom(cfg models.RoomConfig, creatorName string) (*Room, *models.Player) {
	reg.mu.Lock()
	code := reg.generateCodeLocked()
	room := newRoom(code, cfg)
	reg.rooms[room.ID] = room
	reg.byCode[code] = room
	reg.mu.Unlock()

	// addPlayer cannot fail on a fresh room.
	creator, _ := room.addPlayer(creatorName, true)
	logrus.WithFields(logrus.Fields{"room": room.ID, "code": code}).Info("room created")
	return room, creator
}

// JoinRoom appends a new player to the room with the given code.
func (reg *Registry) JoinRoom(code, name string) (*Room, *models.Player, error) {
	room, ok := reg.RoomByCode(code)
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	player, err := room.addPlayer(name, false)
	if err != nil {
		return nil, nil, err
	}
	return room, player, nil
}

// Room looks a room up by id.
func (reg *Registry) Room(id uuid.UUID) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[id]
	return room, ok
}

// RoomByCode looks a room up by its shareable code, case-insensitively.
func (reg *Registry) RoomByCode(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.byCode[strings.ToUpper(code)]
	return room, ok
}

// DeleteRoom tears a room down. Player notification is the transport's
// responsibility; the registry only forgets the aggregate.
func (reg *Registry) DeleteRoom(id uuid.UUID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok {
		return
	}
	delete(reg.rooms, id)
	delete(reg.byCode, room.Code)
	logrus.WithFields(logrus.Fields{"room": id, "code": room.Code}).Info("room deleted")
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// generateCodeLocked draws codes until one misses every live room.
// Assumes the registry lock is held.
func (reg *Registry) generateCodeLocked() string {
	for {
		buf := make([]byte, roomCodeLength)
		for i := range buf {
			buf[i] = roomCodeAlphabet[rand.IntN(len(roomCodeAlphabet))]
		}
		code := string(buf)
		if _, taken := reg.byCode[code]; !taken {
			return code
		}
	}
}
