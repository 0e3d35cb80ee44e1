package ai

import (
	rand "math/rand/v2"

	"github.com/lox/cardroom/internal/cards"
)

// Equity estimates the chance the hole cards win at showdown against
// opponents holding unseen random cards, dealing random runouts for the rest
// of the board. Ties count half. The estimate is deterministic for a given
// rng state.
func Equity(rng *rand.Rand, hole, community []cards.Card, opponents, samples int) float64 {
	if len(hole) != 2 || samples <= 0 {
		return 0
	}
	if opponents <= 0 {
		opponents = 1
	}

	seen := make(map[cards.Card]bool, len(hole)+len(community))
	for _, c := range hole {
		seen[c] = true
	}
	for _, c := range community {
		seen[c] = true
	}
	pool := make([]cards.Card, 0, 52-len(seen))
	for suit := cards.Spades; suit <= cards.Clubs; suit++ {
		for rank := cards.Two; rank <= cards.Ace; rank++ {
			c := cards.NewCard(rank, suit)
			if !seen[c] {
				pool = append(pool, c)
			}
		}
	}

	need := opponents*2 + (5 - len(community))
	if need > len(pool) {
		return 0
	}

	mine := make([]cards.Card, 0, 7)
	theirs := make([]cards.Card, 0, 7)
	score := 0.0
	for s := 0; s < samples; s++ {
		// Partial shuffle; the prefix is a uniform draw without replacement.
		for i := 0; i < need; i++ {
			j := i + rng.IntN(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
		}
		deal := pool[:need]
		board := deal[opponents*2:]

		mine = append(mine[:0], hole...)
		mine = append(mine, community...)
		mine = append(mine, board...)
		myRank := cards.Rank7(mine)

		bestOpp := int32(1<<31 - 1)
		for o := 0; o < opponents; o++ {
			theirs = append(theirs[:0], deal[o*2], deal[o*2+1])
			theirs = append(theirs, community...)
			theirs = append(theirs, board...)
			if r := cards.Rank7(theirs); r < bestOpp {
				bestOpp = r
			}
		}
		switch {
		case myRank < bestOpp:
			score++
		case myRank == bestOpp:
			score += 0.5
		}
	}
	return score / float64(samples)
}
