package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/koko-mojo-astro/poker-pool/internal/cache"
	"github.com/koko-mojo-astro/poker-pool/internal/database"
	"github.com/koko-mojo-astro/poker-pool/internal/models"
)

const (
	// MaxPlayers caps room membership.
	MaxPlayers = 4
	// CardsPerPlayer is dealt to each player at game start.
	CardsPerPlayer = 7
	// drawMaxAttempts bounds the skip-potted-ranks retry loop.
	drawMaxAttempts = 100
)

// Room is the aggregate for one game session. All mutating methods
// serialize on the internal mutex; rooms never share state, so actions on
// different rooms proceed fully in parallel.
type Room struct {
	ID     uuid.UUID
	Code   string
	Config models.RoomConfig

	Status      models.RoomStatus
	Players     []*models.Player // order = turn order once PLAYING
	Deck        *Deck            // nil outside PLAYING
	PottedRanks []models.Rank    // insertion order preserved for display
	WinnerID    uuid.UUID        // uuid.Nil when no winner

	History               []models.MatchResult
	CumulativeSettlements map[uuid.UUID]float64

	mu          sync.Mutex
	rng         *rand.Rand
	log         *logrus.Entry
	actionIndex int
}

func newRoom(code string, cfg models.RoomConfig) *Room {
	id := uuid.New()
	return &Room{
		ID:                    id,
		Code:                  code,
		Config:                cfg,
		Status:                models.StatusWaiting,
		CumulativeSettlements: make(map[uuid.UUID]float64),
		rng:                   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		log:                   logrus.WithFields(logrus.Fields{"room": id, "code": code}),
	}
}

// addPlayer appends a new player in WAITING. Creator rooms are seeded via
// the registry, which passes isCreator=true exactly once.
func (r *Room) addPlayer(name string, isCreator bool) (*models.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	if r.Status != models.StatusWaiting {
		return nil, ErrGameAlreadyStarted
	}

	p := &models.Player{
		ID:        uuid.New(),
		Name:      name,
		Hand:      []models.Card{},
		IsCreator: isCreator,
		Connected: true,
	}
	r.Players = append(r.Players, p)
	r.log.WithFields(logrus.Fields{"player": p.ID, "name": name}).Info("player joined")
	r.logAction(p.ID, "player_join", map[string]interface{}{"name": name, "creator": isCreator})
	return p, nil
}

// Start transitions WAITING → PLAYING: shuffles turn order, deals seven
// cards to each player from a fresh deck, and leaves the remainder as the
// room's draw pile. Membership is frozen until restart.
func (r *Room) Start(initiatorID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != models.StatusWaiting {
		return ErrGameAlreadyStarted
	}
	initiator := r.playerByID(initiatorID)
	if initiator == nil {
		return ErrPlayerNotFound
	}
	if !initiator.IsCreator {
		return ErrNotCreator
	}
	if len(r.Players) < 2 {
		return ErrNotEnoughPlayers
	}

	// Fisher–Yates on the player slice fixes turn order; "previous player"
	// for direct jokers is computed against this order.
	for i := len(r.Players) - 1; i > 0; i-- {
		j := r.rng.IntN(i + 1)
		r.Players[i], r.Players[j] = r.Players[j], r.Players[i]
	}

	r.Deck = NewDeck()
	for _, p := range r.Players {
		p.Hand = make([]models.Card, 0, CardsPerPlayer)
		for i := 0; i < CardsPerPlayer; i++ {
			card, ok := r.Deck.Draw()
			if !ok {
				break
			}
			p.Hand = append(p.Hand, card)
		}
	}

	r.Status = models.StatusPlaying
	r.log.WithField("players", len(r.Players)).Info("game started")
	r.logAction(initiatorID, "game_start", map[string]interface{}{"players": len(r.Players)})
	return nil
}

// Draw pops cards off the draw pile, discarding any whose rank was already
// potted, and appends the first eligible card to the drawer's hand.
func (r *Room) Draw(playerID uuid.UUID) (models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != models.StatusPlaying {
		return models.Card{}, ErrWrongStatus
	}
	p := r.playerByID(playerID)
	if p == nil {
		return models.Card{}, ErrPlayerNotFound
	}

	card, ok := r.drawEligible()
	if !ok {
		return models.Card{}, ErrNoEligibleCards
	}
	p.Hand = append(p.Hand, card)
	r.logAction(playerID, "card_draw", map[string]interface{}{"rank": card.Rank, "suit": card.Suit})
	return card, nil
}

// drawEligible pops from the deck until a not-yet-potted rank surfaces.
// Already-potted cards are discarded, not returned to the deck. The retry
// bound guards against pathological loops. Assumes lock is held.
func (r *Room) drawEligible() (models.Card, bool) {
	for attempts := 0; attempts < drawMaxAttempts; attempts++ {
		card, ok := r.Deck.Draw()
		if !ok {
			return models.Card{}, false
		}
		if !r.isRankPotted(card.Rank) {
			return card, true
		}
	}
	return models.Card{}, false
}

// Pot discards the named card face-up, grants the potter a license, clears
// the card's rank from every hand in the room, and runs the win check.
func (r *Room) Pot(playerID, cardID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != models.StatusPlaying {
		return ErrWrongStatus
	}
	potter := r.playerByID(playerID)
	if potter == nil {
		return ErrPlayerNotFound
	}
	idx := potter.HoldsCard(cardID)
	if idx == -1 {
		return ErrCardNotInHand
	}

	rank := potter.Hand[idx].Rank
	potter.Hand = append(potter.Hand[:idx], potter.Hand[idx+1:]...)

	// License is granted by potting and only ever lost to a foul.
	potter.HasLicense = true

	if !r.isRankPotted(rank) {
		r.PottedRanks = append(r.PottedRanks, rank)
	}

	// Potting one card clears the whole rank from play.
	for _, p := range r.Players {
		filtered := p.Hand[:0]
		for _, c := range p.Hand {
			if c.Rank != rank {
				filtered = append(filtered, c)
			}
		}
		p.Hand = filtered
	}

	r.logAction(playerID, "card_pot", map[string]interface{}{"rank": rank})

	// Win check: the potter wins if their own hand emptied; otherwise the
	// first empty-handed player in turn order does.
	winnerID := uuid.Nil
	if len(potter.Hand) == 0 {
		winnerID = potter.ID
	} else {
		for _, p := range r.Players {
			if len(p.Hand) == 0 {
				winnerID = p.ID
				break
			}
		}
	}
	if winnerID != uuid.Nil {
		r.finishGame(winnerID)
	}
	return nil
}

// finishGame runs the terminal transition: settlement, history append, and
// cumulative ledger fold. Assumes lock is held.
func (r *Room) finishGame(winnerID uuid.UUID) {
	r.Status = models.StatusFinished
	r.WinnerID = winnerID

	winner := r.playerByID(winnerID)
	settlements := ComputeSettlements(r.Players, winnerID, r.Config)
	netChanges := NetChanges(r.Players, settlements)

	snapshots := make([]models.PlayerSnapshot, len(r.Players))
	for i, p := range r.Players {
		snapshots[i] = models.PlayerSnapshot{
			ID:        p.ID,
			Name:      p.Name,
			DirectJ:   p.JokerBalls.Direct,
			AllJ:      p.JokerBalls.All,
			CardCount: len(p.Hand),
		}
	}

	result := models.MatchResult{
		WinnerID:        winnerID,
		WinnerName:      winner.Name,
		Timestamp:       time.Now().UnixMilli(),
		NetChanges:      netChanges,
		PlayerSnapshots: snapshots,
		Settlements:     settlements,
	}
	r.History = append(r.History, result)
	for id, amount := range netChanges {
		r.CumulativeSettlements[id] += amount
	}

	r.log.WithFields(logrus.Fields{
		"winner":      winnerID,
		"settlements": len(settlements),
	}).Info("game finished")
	r.logAction(winnerID, "game_finish", map[string]interface{}{"match": len(r.History)})

	if database.DB != nil {
		go database.StoreMatchResult(context.Background(), r.ID, result)
	}
}

// MarkFoul revokes the player's license and attempts a single penalty
// draw. License loss is unconditional; the draw is best-effort.
func (r *Room) MarkFoul(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != models.StatusPlaying {
		return ErrWrongStatus
	}
	p := r.playerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.HasLicense {
		return ErrLicenseRequired
	}

	p.HasLicense = false
	if card, ok := r.drawEligible(); ok {
		p.Hand = append(p.Hand, card)
	}
	r.logAction(playerID, "foul", nil)
	return nil
}

// UpdateJoker applies a self-declared ±1 change to one of the player's
// joker balances. Increments require a license; balances never go
// negative. The engine does not derive joker counts from gameplay.
func (r *Room) UpdateJoker(playerID uuid.UUID, kind models.JokerKind, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if delta > 0 && !p.HasLicense {
		return ErrLicenseRequired
	}

	var target *int
	switch kind {
	case models.JokerDirect:
		target = &p.JokerBalls.Direct
	case models.JokerAll:
		target = &p.JokerBalls.All
	default:
		return ErrInvalidJokerDelta
	}
	if *target+delta < 0 {
		return ErrInvalidJokerDelta
	}
	*target += delta
	r.logAction(playerID, "joker_update", map[string]interface{}{"kind": string(kind), "delta": delta})
	return nil
}

// Restart transitions FINISHED → WAITING. Hands, licenses, joker balls,
// deck, potted ranks and winner all reset; the cumulative settlement
// ledger and match history survive as session-long records.
func (r *Room) Restart(initiatorID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != models.StatusFinished {
		return ErrWrongStatus
	}
	initiator := r.playerByID(initiatorID)
	if initiator == nil {
		return ErrPlayerNotFound
	}
	if !initiator.IsCreator {
		return ErrNotCreator
	}

	r.Status = models.StatusWaiting
	r.Deck = nil
	r.PottedRanks = nil
	r.WinnerID = uuid.Nil
	for _, p := range r.Players {
		p.Hand = []models.Card{}
		p.HasLicense = false
		p.JokerBalls = models.JokerBalls{}
	}
	r.log.Info("game restarted")
	r.logAction(initiatorID, "game_restart", nil)
	return nil
}

// AttachConn re-binds a transport handle to an existing player and marks
// them connected. It is a pure connectivity flip and never resets game
// state, so calling it twice is harmless. The attach callback receives the
// player under the room lock; the engine itself stays transport-agnostic.
func (r *Room) AttachConn(playerID uuid.UUID, attach func(p *models.Player)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.Connected = true
	if attach != nil {
		attach(p)
	}
	r.log.WithField("player", playerID).Info("player reconnected")
	r.logAction(playerID, "player_reconnect", nil)
	return nil
}

// MarkDisconnected flips the connectivity flag without touching game
// state, leaving the seat open for a reconnect.
func (r *Room) MarkDisconnected(playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByID(playerID)
	if p == nil {
		return
	}
	if !p.Connected {
		return
	}
	p.Connected = false
	p.Conn = nil
	r.log.WithField("player", playerID).Info("player disconnected")
	r.logAction(playerID, "player_disconnect", nil)
}

// RemovePlayer takes a non-creator out of the room. Departure while
// PLAYING would break turn order and win counting, so mid-game exits only
// mark the player disconnected; removed reports whether the seat was
// actually freed. Creator exits are handled by the registry (room
// teardown), not here.
func (r *Room) RemovePlayer(playerID uuid.UUID) (removed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, ErrPlayerNotFound
	}

	if r.Status == models.StatusPlaying {
		r.Players[idx].Connected = false
		r.Players[idx].Conn = nil
		r.logAction(playerID, "player_exit_deferred", nil)
		return false, nil
	}

	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	r.log.WithField("player", playerID).Info("player left")
	r.logAction(playerID, "player_exit", nil)
	return true, nil
}

// ForEachPlayer runs fn for every player under the room lock. Used by the
// transport for fan-out so writes to one room's connections never
// interleave with state mutation.
func (r *Room) ForEachPlayer(fn func(p *models.Player)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Players {
		fn(p)
	}
}

// CreatorID returns the creator's player id, or uuid.Nil when the room is
// empty.
func (r *Room) CreatorID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Players {
		if p.IsCreator {
			return p.ID
		}
	}
	return uuid.Nil
}

func (r *Room) isRankPotted(rank models.Rank) bool {
	for _, potted := range r.PottedRanks {
		if potted == rank {
			return true
		}
	}
	return false
}

func (r *Room) playerByID(id uuid.UUID) *models.Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// logAction publishes an append-only action record for the room's history
// stream. Best-effort: a missing Redis client disables it, and failures
// never affect game state. Assumes lock is held.
func (r *Room) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.RoomActionRecord{
		RoomID:      r.ID,
		ActionIndex: r.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}

	go func(rec cache.RoomActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cache.Rdb == nil {
			return
		}
		if err := cache.PublishRoomAction(ctx, rec); err != nil {
			r.log.WithError(err).WithField("action", rec.ActionType).Error("failed publishing room action")
		}
	}(record)
}
