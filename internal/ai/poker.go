package ai

import (
	"github.com/lox/cardroom/internal/cards"
	"github.com/lox/cardroom/internal/game"
)

// Poker decides preflop from a static hole score and postflop from sampled
// equity against the price being laid. Amounts are raise-to totals.
func (a *Player) Poker(view game.PokerTurnView) game.PokerMove {
	if len(view.Hole) != 2 {
		return game.PokerMove{Kind: game.CmdCheck}
	}
	if a.persona == PersonaRandom {
		return a.randomMove(view)
	}

	needed := view.CurrentBet - view.StreetBet
	if needed < 0 {
		needed = 0
	}
	if len(view.Community) == 0 {
		return a.preflop(view, needed)
	}

	equity := Equity(a.rng, view.Hole, view.Community, view.Opponents, a.p.samples)
	price := 0.0
	if needed > 0 {
		price = float64(needed) / float64(view.Pot+needed)
	}

	// A short stack with a live hand gets it in rather than calling off in
	// pieces.
	if view.Stack > 0 && view.Pot > 0 {
		spr := float64(view.Stack) / float64(view.Pot)
		if spr < 1.5 && equity > 0.55 {
			return a.raiseTo(view, view.StreetBet+view.Stack)
		}
	}

	switch {
	case equity >= a.p.raiseEquity:
		return a.raiseTo(view, view.CurrentBet+(view.Pot*2)/3)
	case needed == 0:
		if equity < 0.4 && a.rng.Float64() < a.p.bluffRate {
			return a.raiseTo(view, (view.Pot*2)/3)
		}
		return game.PokerMove{Kind: game.CmdCheck}
	case equity+a.p.callMargin >= price:
		return game.PokerMove{Kind: game.CmdCall}
	case price < 0.3 && a.rng.Float64() < a.p.bluffRate:
		return a.raiseTo(view, view.CurrentBet*2)
	default:
		return game.PokerMove{Kind: game.CmdFold}
	}
}

// preflop gates on the hole score alone; the persona thresholds carry the
// loose/tight spread.
func (a *Player) preflop(view game.PokerTurnView, needed int64) game.PokerMove {
	score := holeScore(view.Hole)
	switch {
	case score >= a.p.preflopRaise:
		return a.raiseTo(view, view.CurrentBet*2+view.MinBet)
	case needed == 0:
		return game.PokerMove{Kind: game.CmdCheck}
	case score >= a.p.preflopCall:
		// Marginal hands do not call off a third of the stack.
		if needed*3 > view.Stack {
			return game.PokerMove{Kind: game.CmdFold}
		}
		return game.PokerMove{Kind: game.CmdCall}
	default:
		return game.PokerMove{Kind: game.CmdFold}
	}
}

// holeScore rates a starting hand. Pairs dominate, then high cards, with
// small bumps for suitedness and connectivity. AA scores 12, 72o scores 0.
func holeScore(hole []cards.Card) int {
	hi, lo := hole[0].Rank, hole[1].Rank
	if lo > hi {
		hi, lo = lo, hi
	}
	score := 0
	if hi == lo {
		score += 5
		switch {
		case hi >= cards.Ten:
			score += 3
		case hi >= cards.Seven:
			score++
		}
	}
	switch {
	case hi == cards.Ace:
		score += 3
	case hi >= cards.Queen:
		score += 2
	case hi >= cards.Ten:
		score++
	}
	if lo >= cards.Ten {
		score++
	}
	if hole[0].Suit == hole[1].Suit {
		score++
	}
	if hi-lo == 1 {
		score++
	}
	return score
}

// raiseTo clamps a raise target to the table limits and the stack, falling
// back to a call when no legal raise remains.
func (a *Player) raiseTo(view game.PokerTurnView, target int64) game.PokerMove {
	minTo := view.CurrentBet + view.MinBet
	if minTo <= view.CurrentBet {
		minTo = view.CurrentBet + 1
	}
	if target < minTo {
		target = minTo
	}
	if allIn := view.StreetBet + view.Stack; target > allIn {
		target = allIn
	}
	if view.MaxBet > 0 && target > view.MaxBet {
		target = view.MaxBet
	}
	if target <= view.CurrentBet {
		return game.PokerMove{Kind: game.CmdCall}
	}
	return game.PokerMove{Kind: game.CmdRaise, Amount: target}
}

func (a *Player) randomMove(view game.PokerTurnView) game.PokerMove {
	needed := view.CurrentBet - view.StreetBet
	kinds := []game.CommandKind{game.CmdCheck}
	if needed > 0 {
		kinds = []game.CommandKind{game.CmdCall, game.CmdFold}
	}
	if view.Stack > needed {
		kinds = append(kinds, game.CmdRaise)
	}
	kind := kinds[a.rng.IntN(len(kinds))]
	if kind != game.CmdRaise {
		return game.PokerMove{Kind: kind}
	}
	span := max(view.Pot, view.MinBet)
	return a.raiseTo(view, view.CurrentBet+view.MinBet+a.rng.Int64N(span+1))
}
