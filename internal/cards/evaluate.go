package cards

import (
	"errors"
	"sort"

	"github.com/chehsunliu/poker"
)

// ErrInvalidHand is returned for evaluation input that is not seven distinct
// valid cards.
var ErrInvalidHand = errors.New("cards: invalid hand")

// Category orders poker hand classes from weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandValue is the evaluation of a seven-card hand: the category and kicker
// ranks of the best five cards, plus the underlying total-order rank.
type HandValue struct {
	Category Category
	Kickers  []Rank
	Best     []Card

	// rank is the evaluator's score; lower is stronger.
	rank int32
}

// Describe returns the evaluator's description of the hand ("Two Pair", …).
func (hv HandValue) Describe() string {
	return poker.RankString(hv.rank)
}

// Compare orders two hand values: 1 if a beats b, -1 if b beats a, 0 on a tie.
func Compare(a, b HandValue) int {
	switch {
	case a.rank < b.rank:
		return 1
	case a.rank > b.rank:
		return -1
	default:
		return 0
	}
}

// Evaluate7 scores the best five-card hand from seven cards. The ordering is
// delegated to the evaluator library; the winning five cards and their ranks
// are recovered locally for event payloads.
func Evaluate7(hand []Card) (HandValue, error) {
	if len(hand) != 7 {
		return HandValue{}, ErrInvalidHand
	}
	seen := make(map[Card]struct{}, 7)
	for _, c := range hand {
		if !c.Valid() {
			return HandValue{}, ErrInvalidHand
		}
		if _, dup := seen[c]; dup {
			return HandValue{}, ErrInvalidHand
		}
		seen[c] = struct{}{}
	}

	best, bestRank := bestFive(hand)

	kickers := make([]Rank, len(best))
	for i, c := range best {
		kickers[i] = c.Rank
	}
	sort.Slice(kickers, func(i, j int) bool { return kickers[i] > kickers[j] })

	return HandValue{
		Category: categoryOf(bestRank),
		Kickers:  kickers,
		Best:     best,
		rank:     bestRank,
	}, nil
}

// Rank7 scores seven cards without recovering the best five. The AI equity
// sampler calls this in a tight loop.
func Rank7(hand []Card) int32 {
	converted := make([]poker.Card, len(hand))
	for i, c := range hand {
		converted[i] = poker.NewCard(c.Code())
	}
	return poker.Evaluate(converted)
}

// bestFive scans the 21 five-card subsets for the one matching the seven-card
// evaluation.
func bestFive(hand []Card) ([]Card, int32) {
	var (
		best     []Card
		bestRank int32 = 1<<31 - 1
	)
	// Removing two of the seven cards enumerates every five-card subset.
	combo := make([]poker.Card, 5)
	for skipA := 0; skipA < 6; skipA++ {
		for skipB := skipA + 1; skipB < 7; skipB++ {
			five := make([]Card, 0, 5)
			for k, c := range hand {
				if k == skipA || k == skipB {
					continue
				}
				five = append(five, c)
			}
			for k, c := range five {
				combo[k] = poker.NewCard(c.Code())
			}
			if rank := poker.Evaluate(combo); rank < bestRank {
				bestRank = rank
				best = five
			}
		}
	}
	return best, bestRank
}

// categoryOf maps the evaluator's rank class (1 = straight flush … 9 = high
// card) onto the ascending Category order.
func categoryOf(rank int32) Category {
	switch poker.RankClass(rank) {
	case 1:
		return StraightFlush
	case 2:
		return FourOfAKind
	case 3:
		return FullHouse
	case 4:
		return Flush
	case 5:
		return Straight
	case 6:
		return ThreeOfAKind
	case 7:
		return TwoPair
	case 8:
		return Pair
	default:
		return HighCard
	}
}
