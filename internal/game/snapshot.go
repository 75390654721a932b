package game

import (
	"github.com/google/uuid"

	"github.com/koko-mojo-astro/poker-pool/internal/models"
)

// PlayerView is one player's entry in a room snapshot, obfuscated for a
// specific observer: the hand is populated only for the observer
// themselves, everyone else collapses to a card count.
type PlayerView struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Hand       []models.Card     `json:"hand"`
	CardCount  int               `json:"cardCount"`
	HasLicense bool              `json:"hasLicense"`
	JokerBalls models.JokerBalls `json:"jokerBalls"`
	IsCreator  bool              `json:"isCreator"`
	Connected  bool              `json:"isConnected"`
}

// RoomSnapshot is the full per-player state delta sent after every
// accepted command.
type RoomSnapshot struct {
	RoomID      uuid.UUID             `json:"roomId"`
	RoomCode    string                `json:"roomCode"`
	Config      models.RoomConfig     `json:"config"`
	Status      models.RoomStatus     `json:"status"`
	Players     []PlayerView          `json:"players"`
	PottedRanks []models.Rank         `json:"pottedCards"`
	DeckCount   int                   `json:"deckCount"`
	WinnerID    *uuid.UUID            `json:"winnerId"`
	// Settlements carries the current match's payments once FINISHED.
	Settlements []models.PairwiseSettlement `json:"settlements,omitempty"`
	History     []models.MatchResult        `json:"history"`
	Cumulative  map[uuid.UUID]float64       `json:"totalSettlements"`
}

// SnapshotFor renders the room from one player's perspective.
func (r *Room) SnapshotFor(viewer uuid.UUID) RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(viewer)
}

// BroadcastSnapshots renders a per-player snapshot for every connected
// player and hands each to send. The room lock is held for the whole
// fan-out, so writes for one room never interleave with its mutations.
func (r *Room) BroadcastSnapshots(send func(p *models.Player, snap RoomSnapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Players {
		if !p.Connected {
			continue
		}
		send(p, r.snapshotLocked(p.ID))
	}
}

// snapshotLocked assumes the room lock is held.
func (r *Room) snapshotLocked(viewer uuid.UUID) RoomSnapshot {
	snap := RoomSnapshot{
		RoomID:      r.ID,
		RoomCode:    r.Code,
		Config:      r.Config,
		Status:      r.Status,
		PottedRanks: append([]models.Rank{}, r.PottedRanks...),
		History:     append([]models.MatchResult{}, r.History...),
		Cumulative:  make(map[uuid.UUID]float64, len(r.CumulativeSettlements)),
	}
	for id, amount := range r.CumulativeSettlements {
		snap.Cumulative[id] = amount
	}
	if r.Deck != nil {
		snap.DeckCount = r.Deck.Len()
	}
	if r.WinnerID != uuid.Nil {
		winnerID := r.WinnerID
		snap.WinnerID = &winnerID
	}
	if r.Status == models.StatusFinished && len(r.History) > 0 {
		latest := r.History[len(r.History)-1]
		snap.Settlements = append([]models.PairwiseSettlement{}, latest.Settlements...)
	}

	snap.Players = make([]PlayerView, len(r.Players))
	for i, p := range r.Players {
		view := PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			Hand:       []models.Card{},
			CardCount:  len(p.Hand),
			HasLicense: p.HasLicense,
			JokerBalls: p.JokerBalls,
			IsCreator:  p.IsCreator,
			Connected:  p.Connected,
		}
		if p.ID == viewer {
			view.Hand = append(view.Hand, p.Hand...)
		}
		snap.Players[i] = view
	}
	return snap
}
