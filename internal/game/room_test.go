package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koko-mojo-astro/poker-pool/internal/models"
)

// setupRoom creates a WAITING room with numPlayers seated. The first
// player is the creator.
func setupRoom(t *testing.T, numPlayers int) (*Registry, *Room, []*models.Player) {
	t.Helper()
	reg := NewRegistry()
	cfg := models.RoomConfig{GameAmount: 2.00, JokerAmount: 0.50}
	room, creator := reg.CreateRoom(cfg, "PlayerA")
	players := []*models.Player{creator}
	for i := 1; i < numPlayers; i++ {
		_, p, err := reg.JoinRoom(room.Code, "Player"+string(rune('A'+i)))
		require.NoError(t, err)
		players = append(players, p)
	}
	return reg, room, players
}

// startedRoom additionally starts the game.
func startedRoom(t *testing.T, numPlayers int) (*Room, []*models.Player) {
	t.Helper()
	_, room, players := setupRoom(t, numPlayers)
	require.NoError(t, room.Start(players[0].ID))
	return room, players
}

func card(suit models.Suit, rank models.Rank) models.Card {
	return models.Card{ID: uuid.New(), Suit: suit, Rank: rank}
}

// deckOf builds a deck whose draw order is last-to-first of the given
// cards (Draw pops from the end).
func deckOf(cards ...models.Card) *Deck {
	d := NewSeededDeck(1)
	d.cards = append(d.cards[:0], cards...)
	return d
}

func totalCards(room *Room) int {
	total := room.Deck.Len()
	for _, p := range room.Players {
		total += len(p.Hand)
	}
	return total
}

// --- lifecycle ---

func TestJoinRoomLimits(t *testing.T) {
	reg, room, _ := setupRoom(t, 4)

	_, _, err := reg.JoinRoom(room.Code, "FifthWheel")
	assert.ErrorIs(t, err, ErrRoomFull)

	_, _, err = reg.JoinRoom("ZZZZZZ", "Lost")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoomAfterStart(t *testing.T) {
	reg, room, players := setupRoom(t, 2)
	require.NoError(t, room.Start(players[0].ID))

	_, _, err := reg.JoinRoom(room.Code, "Latecomer")
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)

	// Still rejected once FINISHED.
	room.mu.Lock()
	room.Status = models.StatusFinished
	room.mu.Unlock()
	_, _, err = reg.JoinRoom(room.Code, "Latecomer")
	assert.ErrorIs(t, err, ErrGameAlreadyStarted)
}

func TestStartGameGuards(t *testing.T) {
	_, room, players := setupRoom(t, 1)
	creator := players[0]

	assert.ErrorIs(t, room.Start(creator.ID), ErrNotEnoughPlayers)
	assert.Equal(t, models.StatusWaiting, room.Status, "failed start must not transition")

	_, room2, players2 := setupRoom(t, 3)
	nonCreator := players2[1]
	assert.ErrorIs(t, room2.Start(nonCreator.ID), ErrNotCreator)
	assert.ErrorIs(t, room2.Start(uuid.New()), ErrPlayerNotFound)

	require.NoError(t, room2.Start(players2[0].ID))
	assert.ErrorIs(t, room2.Start(players2[0].ID), ErrGameAlreadyStarted)
}

func TestStartGameDealsSevenEach(t *testing.T) {
	for _, n := range []int{2, 3, 4} {
		room, players := startedRoom(t, n)

		assert.Equal(t, models.StatusPlaying, room.Status)
		for _, p := range room.Players {
			assert.Len(t, p.Hand, CardsPerPlayer)
		}
		assert.Equal(t, DeckSize, totalCards(room), "hands + deck must account for all 52 cards")

		// Turn order is a permutation of join order.
		joined := make(map[uuid.UUID]bool, n)
		for _, p := range players {
			joined[p.ID] = true
		}
		require.Len(t, room.Players, n)
		for _, p := range room.Players {
			assert.True(t, joined[p.ID], "unexpected player %s in turn order", p.ID)
		}
	}
}

// --- draw ---

func TestDrawSkipsPottedRanks(t *testing.T) {
	room, players := startedRoom(t, 2)
	p := players[0]

	room.PottedRanks = []models.Rank{models.RankSeven}
	// Draw pops from the end: the potted seven surfaces first and is
	// discarded, then the five lands in hand.
	room.Deck = deckOf(card(models.SuitClubs, models.RankFive), card(models.SuitHearts, models.RankSeven))
	handBefore := len(p.Hand)

	drawn, err := room.Draw(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RankFive, drawn.Rank)
	assert.Len(t, p.Hand, handBefore+1)
	assert.Equal(t, 0, room.Deck.Len(), "skipped card is discarded, not returned")
}

func TestDrawNoEligibleCards(t *testing.T) {
	room, players := startedRoom(t, 2)
	p := players[0]

	room.PottedRanks = []models.Rank{models.RankSeven}
	room.Deck = deckOf(card(models.SuitHearts, models.RankSeven), card(models.SuitSpades, models.RankSeven))
	handBefore := len(p.Hand)

	_, err := room.Draw(p.ID)
	assert.ErrorIs(t, err, ErrNoEligibleCards)
	assert.Len(t, p.Hand, handBefore, "rejected draw must not change the hand")

	room.Deck = deckOf()
	_, err = room.Draw(p.ID)
	assert.ErrorIs(t, err, ErrNoEligibleCards)
}

func TestDrawRequiresPlaying(t *testing.T) {
	_, room, players := setupRoom(t, 2)
	_, err := room.Draw(players[0].ID)
	assert.ErrorIs(t, err, ErrWrongStatus)
}

// --- pot ---

func TestPotClearsRankFromEveryHand(t *testing.T) {
	room, _ := startedRoom(t, 3)
	potter, other1, other2 := room.Players[0], room.Players[1], room.Players[2]

	target := card(models.SuitHearts, models.RankSeven)
	potter.Hand = []models.Card{target, card(models.SuitClubs, models.RankTwo)}
	other1.Hand = []models.Card{card(models.SuitSpades, models.RankSeven), card(models.SuitDiamonds, models.RankThree)}
	other2.Hand = []models.Card{card(models.SuitDiamonds, models.RankSeven), card(models.SuitClubs, models.RankSeven)}

	require.NoError(t, room.Pot(potter.ID, target.ID))

	for _, p := range room.Players {
		for _, c := range p.Hand {
			assert.NotEqual(t, models.RankSeven, c.Rank, "rank must be cleared from every hand")
		}
	}
	assert.Len(t, other1.Hand, 1)
	assert.Empty(t, other2.Hand)
	assert.Equal(t, []models.Rank{models.RankSeven}, room.PottedRanks)
}

func TestPottedRanksNeverDuplicated(t *testing.T) {
	room, _ := startedRoom(t, 2)
	potter := room.Players[0]
	other := room.Players[1]

	first := card(models.SuitHearts, models.RankSeven)
	potter.Hand = []models.Card{first, card(models.SuitClubs, models.RankTwo)}
	other.Hand = []models.Card{card(models.SuitSpades, models.RankNine)}
	require.NoError(t, room.Pot(potter.ID, first.ID))
	require.Equal(t, []models.Rank{models.RankSeven}, room.PottedRanks)

	// A seven smuggled back into a hand and potted again must not add a
	// second entry.
	second := card(models.SuitDiamonds, models.RankSeven)
	potter.Hand = append(potter.Hand, second)
	require.NoError(t, room.Pot(potter.ID, second.ID))
	assert.Equal(t, []models.Rank{models.RankSeven}, room.PottedRanks)
}

func TestPotGrantsLicense(t *testing.T) {
	room, _ := startedRoom(t, 2)
	potter := room.Players[0]
	room.Players[1].Hand = []models.Card{card(models.SuitSpades, models.RankNine)}

	target := card(models.SuitHearts, models.RankFour)
	potter.Hand = []models.Card{target, card(models.SuitClubs, models.RankTwo)}
	require.False(t, potter.HasLicense)

	require.NoError(t, room.Pot(potter.ID, target.ID))
	assert.True(t, potter.HasLicense)

	// Potting again must not revoke it.
	next := card(models.SuitDiamonds, models.RankTwo)
	potter.Hand = append(potter.Hand, next)
	require.NoError(t, room.Pot(potter.ID, next.ID))
	assert.True(t, potter.HasLicense)
}

func TestPotCardNotInHand(t *testing.T) {
	room, _ := startedRoom(t, 2)
	potter := room.Players[0]

	err := room.Pot(potter.ID, uuid.New())
	assert.ErrorIs(t, err, ErrCardNotInHand)
	assert.Equal(t, models.StatusPlaying, room.Status)
}

// --- win check and terminal transition ---

func TestPotterWinsOnOwnEmptyHand(t *testing.T) {
	room, _ := startedRoom(t, 2)
	potter, other := room.Players[0], room.Players[1]

	last := card(models.SuitHearts, models.RankKing)
	potter.Hand = []models.Card{last}
	other.Hand = []models.Card{card(models.SuitSpades, models.RankTwo)}

	require.NoError(t, room.Pot(potter.ID, last.ID))
	assert.Equal(t, models.StatusFinished, room.Status)
	assert.Equal(t, potter.ID, room.WinnerID)
	require.Len(t, room.History, 1)
	assert.Equal(t, potter.ID, room.History[0].WinnerID)
}

func TestRankClearEmptiesOtherHand(t *testing.T) {
	room, _ := startedRoom(t, 3)
	potter, emptied, bystander := room.Players[0], room.Players[1], room.Players[2]

	target := card(models.SuitHearts, models.RankSeven)
	potter.Hand = []models.Card{target, card(models.SuitClubs, models.RankTwo)}
	emptied.Hand = []models.Card{card(models.SuitSpades, models.RankSeven)}
	bystander.Hand = []models.Card{card(models.SuitDiamonds, models.RankNine)}

	require.NoError(t, room.Pot(potter.ID, target.ID))
	assert.Equal(t, models.StatusFinished, room.Status)
	assert.Equal(t, emptied.ID, room.WinnerID, "first empty hand in turn order wins when potter still holds cards")
}

// TestTieBreakPrefersPotter pins the tie-break policy: when the pot
// empties both the potter's hand and another player's, the potter wins
// even if the other player sits earlier in turn order.
func TestTieBreakPrefersPotter(t *testing.T) {
	room, _ := startedRoom(t, 3)
	earlier, potter, bystander := room.Players[0], room.Players[1], room.Players[2]

	target := card(models.SuitHearts, models.RankSeven)
	earlier.Hand = []models.Card{card(models.SuitSpades, models.RankSeven)}
	potter.Hand = []models.Card{target}
	bystander.Hand = []models.Card{card(models.SuitDiamonds, models.RankNine)}

	require.NoError(t, room.Pot(potter.ID, target.ID))
	assert.Equal(t, potter.ID, room.WinnerID)
}

func TestFinishRecordsMatchResult(t *testing.T) {
	room, _ := startedRoom(t, 2)
	potter, other := room.Players[0], room.Players[1]
	other.JokerBalls = models.JokerBalls{All: 1}
	other.HasLicense = true

	last := card(models.SuitHearts, models.RankKing)
	potter.Hand = []models.Card{last}
	other.Hand = []models.Card{card(models.SuitSpades, models.RankTwo), card(models.SuitClubs, models.RankThree)}

	require.NoError(t, room.Pot(potter.ID, last.ID))
	require.Len(t, room.History, 1)

	result := room.History[0]
	assert.Equal(t, potter.Name, result.WinnerName)
	assert.NotZero(t, result.Timestamp)
	require.Len(t, result.PlayerSnapshots, 2)
	for _, snap := range result.PlayerSnapshots {
		if snap.ID == other.ID {
			assert.Equal(t, 1, snap.AllJ)
			assert.Equal(t, 2, snap.CardCount)
		}
	}

	sum := 0.0
	for _, amount := range result.NetChanges {
		sum += amount
	}
	assert.InDelta(t, 0, sum, settlementEpsilon)

	// Cumulative ledger folded in.
	assert.InDelta(t, result.NetChanges[potter.ID], room.CumulativeSettlements[potter.ID], settlementEpsilon)
	assert.InDelta(t, result.NetChanges[other.ID], room.CumulativeSettlements[other.ID], settlementEpsilon)
}

// --- foul ---

func TestMarkFoulRevokesLicenseAndDraws(t *testing.T) {
	room, _ := startedRoom(t, 2)
	p := room.Players[0]
	p.HasLicense = true
	room.Deck = deckOf(card(models.SuitClubs, models.RankFive))
	handBefore := len(p.Hand)

	require.NoError(t, room.MarkFoul(p.ID))
	assert.False(t, p.HasLicense)
	assert.Len(t, p.Hand, handBefore+1, "penalty card drawn")
}

func TestMarkFoulSucceedsWithEmptyDeck(t *testing.T) {
	room, _ := startedRoom(t, 2)
	p := room.Players[0]
	p.HasLicense = true
	room.Deck = deckOf()
	handBefore := len(p.Hand)

	require.NoError(t, room.MarkFoul(p.ID), "license loss is unconditional, the draw is best-effort")
	assert.False(t, p.HasLicense)
	assert.Len(t, p.Hand, handBefore)
}

func TestMarkFoulRequiresLicense(t *testing.T) {
	room, _ := startedRoom(t, 2)
	p := room.Players[0]
	require.False(t, p.HasLicense)

	assert.ErrorIs(t, room.MarkFoul(p.ID), ErrLicenseRequired)
}

// --- joker balances ---

func TestUpdateJokerValidation(t *testing.T) {
	room, _ := startedRoom(t, 2)
	p := room.Players[0]

	// Increment without a license is rejected.
	assert.ErrorIs(t, room.UpdateJoker(p.ID, models.JokerDirect, 1), ErrLicenseRequired)
	assert.Zero(t, p.JokerBalls.Direct)

	p.HasLicense = true
	require.NoError(t, room.UpdateJoker(p.ID, models.JokerDirect, 1))
	require.NoError(t, room.UpdateJoker(p.ID, models.JokerAll, 1))
	assert.Equal(t, 1, p.JokerBalls.Direct)
	assert.Equal(t, 1, p.JokerBalls.All)

	// Decrement needs no license.
	p.HasLicense = false
	require.NoError(t, room.UpdateJoker(p.ID, models.JokerAll, -1))
	assert.Zero(t, p.JokerBalls.All)

	// Going below zero is rejected.
	assert.ErrorIs(t, room.UpdateJoker(p.ID, models.JokerAll, -1), ErrInvalidJokerDelta)
	assert.Zero(t, p.JokerBalls.All)

	assert.ErrorIs(t, room.UpdateJoker(p.ID, models.JokerKind("banana"), -1), ErrInvalidJokerDelta)
	assert.ErrorIs(t, room.UpdateJoker(uuid.New(), models.JokerAll, 1), ErrPlayerNotFound)
}

// --- restart ---

func TestRestartPreservesSessionLedger(t *testing.T) {
	room, _ := startedRoom(t, 2)
	potter, other := room.Players[0], room.Players[1]
	other.HasLicense = true
	other.JokerBalls = models.JokerBalls{Direct: 1, All: 2}

	last := card(models.SuitHearts, models.RankKing)
	potter.Hand = []models.Card{last}
	other.Hand = []models.Card{card(models.SuitSpades, models.RankTwo)}
	require.NoError(t, room.Pot(potter.ID, last.ID))
	require.Equal(t, models.StatusFinished, room.Status)

	cumulativeBefore := make(map[uuid.UUID]float64)
	for id, amount := range room.CumulativeSettlements {
		cumulativeBefore[id] = amount
	}
	historyLen := len(room.History)

	creatorID := room.CreatorID()
	require.NoError(t, room.Restart(creatorID))

	assert.Equal(t, models.StatusWaiting, room.Status)
	assert.Nil(t, room.Deck)
	assert.Empty(t, room.PottedRanks)
	assert.Equal(t, uuid.Nil, room.WinnerID)
	for _, p := range room.Players {
		assert.Empty(t, p.Hand)
		assert.False(t, p.HasLicense)
		assert.Zero(t, p.JokerBalls.Direct)
		assert.Zero(t, p.JokerBalls.All)
	}

	assert.Equal(t, cumulativeBefore, room.CumulativeSettlements, "cumulative settlements survive restart")
	assert.Len(t, room.History, historyLen, "history survives restart")
}

func TestRestartGuards(t *testing.T) {
	room, _ := startedRoom(t, 2)
	creatorID := room.CreatorID()

	assert.ErrorIs(t, room.Restart(creatorID), ErrWrongStatus, "restart only from FINISHED")

	room.mu.Lock()
	room.Status = models.StatusFinished
	room.mu.Unlock()

	var nonCreator *models.Player
	for _, p := range room.Players {
		if !p.IsCreator {
			nonCreator = p
		}
	}
	assert.ErrorIs(t, room.Restart(nonCreator.ID), ErrNotCreator)
	require.NoError(t, room.Restart(creatorID))
}

// --- connectivity and departure ---

func TestReconnectIsIdempotent(t *testing.T) {
	room, players := startedRoom(t, 2)
	p := players[0]
	handBefore := append([]models.Card{}, p.Hand...)

	room.MarkDisconnected(p.ID)
	assert.False(t, p.Connected)

	require.NoError(t, room.AttachConn(p.ID, nil))
	assert.True(t, p.Connected)
	assert.Equal(t, handBefore, p.Hand, "reconnect must not reset game state")

	// A second attach is harmless.
	require.NoError(t, room.AttachConn(p.ID, nil))
	assert.True(t, p.Connected)

	assert.ErrorIs(t, room.AttachConn(uuid.New(), nil), ErrPlayerNotFound)
}

func TestRemovePlayerWaiting(t *testing.T) {
	_, room, players := setupRoom(t, 3)
	leaver := players[1]

	removed, err := room.RemovePlayer(leaver.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, room.Players, 2)
}

// TestRemovePlayerMidGameOnlyDisconnects pins the in-round departure
// policy: the seat is kept so turn order and settlement math stay intact.
func TestRemovePlayerMidGameOnlyDisconnects(t *testing.T) {
	room, _ := startedRoom(t, 3)
	var leaver *models.Player
	for _, p := range room.Players {
		if !p.IsCreator {
			leaver = p
			break
		}
	}

	removed, err := room.RemovePlayer(leaver.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, room.Players, 3, "mid-game departure keeps the seat")
	assert.False(t, leaver.Connected)
}
