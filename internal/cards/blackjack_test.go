package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/randutil"
)

func hand(codes ...string) []Card {
	out := make([]Card, len(codes))
	for i, code := range codes {
		out[i] = MustParse(code)
	}
	return out
}

func TestBlackjackValue(t *testing.T) {
	tests := []struct {
		name  string
		hand  []Card
		total int
		soft  bool
	}{
		{name: "empty hand", hand: nil, total: 0},
		{name: "hard twelve", hand: hand("5h", "7d"), total: 12},
		{name: "face cards count ten", hand: hand("Kh", "Qd"), total: 20},
		{name: "ten and jack", hand: hand("Th", "Jd"), total: 20},
		{name: "lone ace is soft eleven", hand: hand("Ah"), total: 11, soft: true},
		{name: "soft seventeen", hand: hand("Ah", "6d"), total: 17, soft: true},
		{name: "soft seventeen hardens on a ten", hand: hand("Ah", "6d", "Tc"), total: 17},
		{name: "two aces make soft twelve", hand: hand("Ah", "Ad"), total: 12, soft: true},
		{name: "ace ace nine is soft twenty-one", hand: hand("Ah", "Ad", "9c"), total: 21, soft: true},
		{name: "three aces", hand: hand("Ah", "Ad", "Ac"), total: 13, soft: true},
		{name: "natural", hand: hand("Ah", "Kd"), total: 21, soft: true},
		{name: "bust", hand: hand("Th", "6d", "7c"), total: 23},
		{name: "five card charlie is still just a total", hand: hand("2h", "3d", "4c", "5s", "6h"), total: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlackjackValue(tt.hand)
			assert.Equal(t, tt.total, got.Total)
			assert.Equal(t, tt.soft, got.Soft)
		})
	}
}

// Appending an ace raises the total by exactly 1 or 11, and by 11 only when
// that keeps the hand at 21 or under.
func TestBlackjackValueAceLaw(t *testing.T) {
	rng := randutil.New(4242)
	shoe := NewShoe(1)
	shoe.Shuffle(rng)

	for i := 0; i < 200; i++ {
		n := rng.IntN(5)
		if shoe.Remaining() < n {
			shoe = NewShoe(1)
			shoe.Shuffle(rng)
		}
		base, err := shoe.DrawN(n)
		require.NoError(t, err)

		before := BlackjackValue(base).Total
		after := BlackjackValue(append(append([]Card{}, base...), MustParse("As"))).Total

		delta := after - before
		if before+11 <= 21 {
			assert.Equal(t, 11, delta, "hand %v", Codes(base))
		} else {
			assert.Equal(t, 1, delta, "hand %v", Codes(base))
		}
	}
}

func TestIsNatural(t *testing.T) {
	assert.True(t, IsNatural(hand("Ah", "Kd")))
	assert.True(t, IsNatural(hand("Td", "As")))
	assert.False(t, IsNatural(hand("Th", "9d", "2c")), "three-card 21 is not a natural")
	assert.False(t, IsNatural(hand("Th", "Jd")))
	assert.False(t, IsNatural(hand("Ah")))
}

func TestIsBust(t *testing.T) {
	assert.True(t, IsBust(hand("Th", "6d", "7c")))
	assert.False(t, IsBust(hand("Th", "6d", "5c")))
	assert.False(t, IsBust(hand("Ah", "Ad", "9c", "Th")), "aces demote before busting")
}
