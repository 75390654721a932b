package game

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/koko-mojo-astro/poker-pool/internal/models"
)

// settlementEpsilon is the magnitude below which a netted pair produces no
// settlement. Keeps float noise from emitting zero-value payments.
const settlementEpsilon = 0.001

// flowKey identifies one direction of debt between two players.
type flowKey struct {
	from uuid.UUID
	to   uuid.UUID
}

// ComputeSettlements converts a terminal game state into the minimal set
// of pairwise payments. Players must be in frozen turn order; the circular
// "previous player" for direct jokers is derived from that order.
//
// Flows are accumulated by four rules and then netted per unordered pair:
//  1. each loser owes the winner the base stake
//  2. each loser owes the winner jokerAmount per winner "all" ball
//  3. the predecessor of any direct-ball holder owes them
//     jokerAmount × (n−1) per ball, winner or not
//  4. each other loser owes a loser jokerAmount per that loser's "all"
//     ball; the winner is exempt from this flow
func ComputeSettlements(players []*models.Player, winnerID uuid.UUID, cfg models.RoomConfig) []models.PairwiseSettlement {
	n := len(players)
	flows := make(map[flowKey]float64)
	addFlow := func(from, to uuid.UUID, amount float64) {
		if from == to || amount <= 0 {
			return
		}
		flows[flowKey{from, to}] += amount
	}

	var winner *models.Player
	for _, p := range players {
		if p.ID == winnerID {
			winner = p
			break
		}
	}
	if winner == nil {
		return nil
	}

	// Rule 1: base stake.
	for _, p := range players {
		if p.ID != winnerID {
			addFlow(p.ID, winnerID, cfg.GameAmount)
		}
	}

	// Rule 2: winner's "all" balls charge every loser.
	if winner.JokerBalls.All > 0 {
		for _, p := range players {
			if p.ID != winnerID {
				addFlow(p.ID, winnerID, cfg.JokerAmount*float64(winner.JokerBalls.All))
			}
		}
	}

	// Rule 3: direct balls charge the circular predecessor, winner or not.
	for idx, p := range players {
		if p.JokerBalls.Direct > 0 {
			prev := players[(idx-1+n)%n]
			amount := cfg.JokerAmount * float64(n-1) * float64(p.JokerBalls.Direct)
			addFlow(prev.ID, p.ID, amount)
		}
	}

	// Rule 4: a loser's "all" balls charge every other loser.
	for _, loser := range players {
		if loser.ID == winnerID || loser.JokerBalls.All == 0 {
			continue
		}
		for _, other := range players {
			if other.ID == winnerID || other.ID == loser.ID {
				continue
			}
			addFlow(other.ID, loser.ID, cfg.JokerAmount*float64(loser.JokerBalls.All))
		}
	}

	// Net each unordered pair down to at most one settlement. Pairs iterate
	// in turn order so output is deterministic.
	var settlements []models.PairwiseSettlement
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := players[i].ID, players[j].ID
			net := flows[flowKey{a, b}] - flows[flowKey{b, a}]
			if math.Abs(net) <= settlementEpsilon {
				continue
			}
			from, to := a, b
			if net < 0 {
				from, to = b, a
			}
			settlements = append(settlements, models.PairwiseSettlement{
				FromPlayerID: from,
				ToPlayerID:   to,
				Amount:       math.Round(math.Abs(net)*100) / 100,
				Breakdown:    breakdownString(flows[flowKey{from, to}], flows[flowKey{to, from}]),
			})
		}
	}
	return settlements
}

// breakdownString renders the forward flow and any offsetting reverse flow
// that produced a netted settlement.
func breakdownString(forward, reverse float64) string {
	var parts []string
	if forward > 0 {
		parts = append(parts, fmt.Sprintf("$%.2f", forward))
	}
	if reverse > 0 {
		parts = append(parts, fmt.Sprintf("-$%.2f offset", reverse))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("$%.2f", forward-reverse)
	}
	return strings.Join(parts, " ")
}

// NetChanges folds settlements into a per-player received-minus-paid map
// covering every player. The values sum to zero by construction.
func NetChanges(players []*models.Player, settlements []models.PairwiseSettlement) map[uuid.UUID]float64 {
	net := make(map[uuid.UUID]float64, len(players))
	for _, p := range players {
		net[p.ID] = 0
	}
	for _, s := range settlements {
		net[s.FromPlayerID] -= s.Amount
		net[s.ToPlayerID] += s.Amount
	}
	return net
}
