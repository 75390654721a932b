// Package cache publishes append-only room action records to Redis so an
// external historian can replay or audit a session. All writes are
// best-effort: a nil client disables publishing entirely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the shared Redis client. Nil until Connect succeeds; callers must
// nil-check before publishing.
var Rdb *redis.Client

// roomActionTTL caps how long an inactive room's action list lingers.
const roomActionTTL = 24 * time.Hour

// RoomActionRecord is one entry in a room's ordered action history.
type RoomActionRecord struct {
	RoomID      uuid.UUID              `json:"roomId"`
	ActionIndex int                    `json:"actionIndex"`
	ActorID     uuid.UUID              `json:"actorId"`
	ActionType  string                 `json:"actionType"`
	Payload     map[string]interface{} `json:"payload"`
	Timestamp   int64                  `json:"timestamp"`
}

// Connect initializes the shared client and verifies the server is
// reachable.
func Connect(ctx context.Context, addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	Rdb = client
	return nil
}

// PublishRoomAction appends a record to the room's action list and
// refreshes its TTL.
func PublishRoomAction(ctx context.Context, rec RoomActionRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	key := roomActionsKey(rec.RoomID)
	pipe := Rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, roomActionTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// RoomActions returns a room's recorded actions in publish order.
func RoomActions(ctx context.Context, roomID uuid.UUID) ([]RoomActionRecord, error) {
	if Rdb == nil {
		return nil, nil
	}
	raw, err := Rdb.LRange(ctx, roomActionsKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	records := make([]RoomActionRecord, 0, len(raw))
	for _, item := range raw {
		var rec RoomActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal action record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func roomActionsKey(roomID uuid.UUID) string {
	return "room:" + roomID.String() + ":actions"
}
