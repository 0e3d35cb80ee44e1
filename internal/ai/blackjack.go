package ai

import (
	"github.com/lox/cardroom/internal/cards"
	"github.com/lox/cardroom/internal/game"
)

// Blackjack plays the house-edge-minimizing table on (total, soft, dealer
// up-card), with the pair rows checked first. Random picks any legal move.
func (a *Player) Blackjack(view game.BlackjackTurnView) game.BlackjackMove {
	if a.persona == PersonaRandom {
		moves := []game.BlackjackMove{game.MoveHit, game.MoveStand}
		if view.CanDouble {
			moves = append(moves, game.MoveDouble)
		}
		if view.CanSplit {
			moves = append(moves, game.MoveSplit)
		}
		return moves[a.rng.IntN(len(moves))]
	}

	up := upValue(view.DealerUp)

	if view.CanSplit {
		if move, ok := splitMove(view.Hand[0].Rank, up); ok {
			return move
		}
	}
	if view.CanSurrender && !view.Soft {
		if view.Total == 16 && up >= 9 {
			return game.MoveSurrender
		}
		if view.Total == 15 && up == 10 {
			return game.MoveSurrender
		}
	}
	if view.Soft {
		return softMove(view, up)
	}
	return hardMove(view, up)
}

// upValue scores the dealer up-card 2 through 11, ace high.
func upValue(c cards.Card) int {
	switch {
	case c.Rank == cards.Ace:
		return 11
	case c.Rank >= cards.Ten:
		return 10
	default:
		return int(c.Rank)
	}
}

// splitMove is the pair table. ok false means play the hand as its total:
// fives are a hard ten, tens stay a made twenty, fours are a weak eight.
func splitMove(pair cards.Rank, up int) (game.BlackjackMove, bool) {
	switch {
	case pair == cards.Ace || pair == cards.Eight:
		return game.MoveSplit, true
	case pair == cards.Nine && up <= 9 && up != 7:
		return game.MoveSplit, true
	case pair == cards.Seven && up <= 7:
		return game.MoveSplit, true
	case pair == cards.Six && up <= 6:
		return game.MoveSplit, true
	case (pair == cards.Two || pair == cards.Three) && up <= 7:
		return game.MoveSplit, true
	default:
		return "", false
	}
}

func hardMove(view game.BlackjackTurnView, up int) game.BlackjackMove {
	switch {
	case view.Total >= 17:
		return game.MoveStand
	case view.Total >= 13:
		if up <= 6 {
			return game.MoveStand
		}
		return game.MoveHit
	case view.Total == 12:
		if up >= 4 && up <= 6 {
			return game.MoveStand
		}
		return game.MoveHit
	case view.Total == 11 && view.CanDouble:
		return game.MoveDouble
	case view.Total == 10 && view.CanDouble && up <= 9:
		return game.MoveDouble
	case view.Total == 9 && view.CanDouble && up >= 3 && up <= 6:
		return game.MoveDouble
	default:
		return game.MoveHit
	}
}

// softMove plays totals that count an ace as eleven.
func softMove(view game.BlackjackTurnView, up int) game.BlackjackMove {
	switch {
	case view.Total >= 19:
		return game.MoveStand
	case view.Total == 18:
		if view.CanDouble && up >= 3 && up <= 6 {
			return game.MoveDouble
		}
		if up <= 8 {
			return game.MoveStand
		}
		return game.MoveHit
	case view.Total >= 15:
		if view.CanDouble && up >= 4 && up <= 6 {
			return game.MoveDouble
		}
		return game.MoveHit
	default:
		if view.CanDouble && up >= 5 && up <= 6 {
			return game.MoveDouble
		}
		return game.MoveHit
	}
}
