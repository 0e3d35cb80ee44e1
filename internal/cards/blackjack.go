package cards

// HandTotal is the blackjack score of a hand. Soft marks a total that counts
// an ace as 11 and can therefore absorb another ten without busting.
type HandTotal struct {
	Total int
	Soft  bool
}

// BlackjackValue scores a blackjack hand. Aces count as 11 while the total
// stays at or under 21, otherwise they demote to 1 one at a time.
func BlackjackValue(hand []Card) HandTotal {
	total := 0
	aces := 0
	for _, c := range hand {
		switch {
		case c.Rank == Ace:
			aces++
			total += 11
		case c.Rank >= Ten:
			total += 10
		default:
			total += int(c.Rank)
		}
	}
	softAces := aces
	for total > 21 && softAces > 0 {
		total -= 10
		softAces--
	}
	return HandTotal{Total: total, Soft: softAces > 0}
}

// IsBust reports whether the hand is over 21.
func IsBust(hand []Card) bool {
	return BlackjackValue(hand).Total > 21
}

// IsNatural reports a two-card 21, which pays 3:2 and skips play.
func IsNatural(hand []Card) bool {
	return len(hand) == 2 && BlackjackValue(hand).Total == 21
}
