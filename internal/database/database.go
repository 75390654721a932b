// Package database persists match results to Postgres. Persistence is a
// best-effort side channel: the engine checks DB for nil and never blocks
// a game action on a write.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/koko-mojo-astro/poker-pool/internal/models"
)

// DB is the shared connection pool. Nil until Connect succeeds.
var DB *pgxpool.Pool

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	id          UUID PRIMARY KEY,
	room_id     UUID NOT NULL,
	winner_id   UUID NOT NULL,
	winner_name TEXT NOT NULL,
	played_at   TIMESTAMPTZ NOT NULL,
	net_changes JSONB NOT NULL,
	snapshots   JSONB NOT NULL,
	settlements JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS matches_room_idx ON matches (room_id, played_at);
`

// Connect opens the pool and ensures the schema exists.
func Connect(ctx context.Context, url string) error {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("ensure schema: %w", err)
	}
	DB = pool
	return nil
}

// StoreMatchResult inserts one finished match. Called from a goroutine by
// the engine; errors are logged, never surfaced to players.
func StoreMatchResult(ctx context.Context, roomID uuid.UUID, result models.MatchResult) {
	if DB == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	netChanges, err := json.Marshal(result.NetChanges)
	if err != nil {
		logrus.WithError(err).Error("marshal net changes")
		return
	}
	snapshots, err := json.Marshal(result.PlayerSnapshots)
	if err != nil {
		logrus.WithError(err).Error("marshal player snapshots")
		return
	}
	settlements, err := json.Marshal(result.Settlements)
	if err != nil {
		logrus.WithError(err).Error("marshal settlements")
		return
	}

	_, err = DB.Exec(ctx,
		`INSERT INTO matches (id, room_id, winner_id, winner_name, played_at, net_changes, snapshots, settlements)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), roomID, result.WinnerID, result.WinnerName,
		time.UnixMilli(result.Timestamp), netChanges, snapshots, settlements,
	)
	if err != nil {
		logrus.WithError(err).WithField("room", roomID).Error("store match result")
	}
}

// RoomMatchCount returns how many matches a room has persisted. Used by
// operational tooling, not by the engine.
func RoomMatchCount(ctx context.Context, roomID uuid.UUID) (int, error) {
	if DB == nil {
		return 0, nil
	}
	var count int
	err := DB.QueryRow(ctx, `SELECT COUNT(*) FROM matches WHERE room_id = $1`, roomID).Scan(&count)
	return count, err
}
