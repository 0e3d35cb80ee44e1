package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/cards"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/randutil"
)

func hand(codes ...string) []cards.Card {
	out := make([]cards.Card, len(codes))
	for i, code := range codes {
		out[i] = cards.MustParse(code)
	}
	return out
}

func TestBlackjackStrategy(t *testing.T) {
	tests := []struct {
		name string
		view game.BlackjackTurnView
		want game.BlackjackMove
	}{
		{
			name: "surrenders sixteen against a ten",
			view: game.BlackjackTurnView{Hand: hand("Ts", "6d"), Total: 16, DealerUp: cards.MustParse("Th"), CanSurrender: true},
			want: game.MoveSurrender,
		},
		{
			name: "hits sixteen against a ten without surrender",
			view: game.BlackjackTurnView{Hand: hand("Ts", "4d", "2c"), Total: 16, DealerUp: cards.MustParse("Th")},
			want: game.MoveHit,
		},
		{
			name: "stands sixteen against a six",
			view: game.BlackjackTurnView{Hand: hand("Ts", "6d"), Total: 16, DealerUp: cards.MustParse("6h"), CanSurrender: true},
			want: game.MoveStand,
		},
		{
			name: "stands twelve against a four",
			view: game.BlackjackTurnView{Hand: hand("Ts", "2d"), Total: 12, DealerUp: cards.MustParse("4h")},
			want: game.MoveStand,
		},
		{
			name: "hits twelve against a two",
			view: game.BlackjackTurnView{Hand: hand("Ts", "2d"), Total: 12, DealerUp: cards.MustParse("2h")},
			want: game.MoveHit,
		},
		{
			name: "doubles eleven",
			view: game.BlackjackTurnView{Hand: hand("6s", "5d"), Total: 11, DealerUp: cards.MustParse("Th"), CanDouble: true},
			want: game.MoveDouble,
		},
		{
			name: "hits eleven when doubling is unavailable",
			view: game.BlackjackTurnView{Hand: hand("6s", "3d", "2c"), Total: 11, DealerUp: cards.MustParse("Th")},
			want: game.MoveHit,
		},
		{
			name: "doubles ten against a nine",
			view: game.BlackjackTurnView{Hand: hand("6s", "4d"), Total: 10, DealerUp: cards.MustParse("9h"), CanDouble: true},
			want: game.MoveDouble,
		},
		{
			name: "hits ten against a ten",
			view: game.BlackjackTurnView{Hand: hand("6s", "4d"), Total: 10, DealerUp: cards.MustParse("Th"), CanDouble: true},
			want: game.MoveHit,
		},
		{
			name: "doubles nine against a four",
			view: game.BlackjackTurnView{Hand: hand("5s", "4d"), Total: 9, DealerUp: cards.MustParse("4h"), CanDouble: true},
			want: game.MoveDouble,
		},
		{
			name: "hits nine against a two",
			view: game.BlackjackTurnView{Hand: hand("5s", "4d"), Total: 9, DealerUp: cards.MustParse("2h"), CanDouble: true},
			want: game.MoveHit,
		},
		{
			name: "doubles soft eighteen against a six",
			view: game.BlackjackTurnView{Hand: hand("As", "7d"), Total: 18, Soft: true, DealerUp: cards.MustParse("6h"), CanDouble: true},
			want: game.MoveDouble,
		},
		{
			name: "stands soft eighteen against a seven",
			view: game.BlackjackTurnView{Hand: hand("As", "7d"), Total: 18, Soft: true, DealerUp: cards.MustParse("7h")},
			want: game.MoveStand,
		},
		{
			name: "hits soft eighteen against a nine",
			view: game.BlackjackTurnView{Hand: hand("As", "7d"), Total: 18, Soft: true, DealerUp: cards.MustParse("9h")},
			want: game.MoveHit,
		},
		{
			name: "stands soft nineteen",
			view: game.BlackjackTurnView{Hand: hand("As", "8d"), Total: 19, Soft: true, DealerUp: cards.MustParse("6h"), CanDouble: true},
			want: game.MoveStand,
		},
		{
			name: "always splits aces",
			view: game.BlackjackTurnView{Hand: hand("As", "Ad"), Total: 12, Soft: true, DealerUp: cards.MustParse("Th"), CanSplit: true},
			want: game.MoveSplit,
		},
		{
			name: "always splits eights",
			view: game.BlackjackTurnView{Hand: hand("8s", "8d"), Total: 16, DealerUp: cards.MustParse("Th"), CanSplit: true, CanSurrender: true},
			want: game.MoveSplit,
		},
		{
			name: "keeps nines against a seven",
			view: game.BlackjackTurnView{Hand: hand("9s", "9d"), Total: 18, DealerUp: cards.MustParse("7h"), CanSplit: true},
			want: game.MoveStand,
		},
		{
			name: "plays fives as a hard ten",
			view: game.BlackjackTurnView{Hand: hand("5s", "5d"), Total: 10, DealerUp: cards.MustParse("6h"), CanSplit: true, CanDouble: true},
			want: game.MoveDouble,
		},
		{
			name: "keeps a made twenty",
			view: game.BlackjackTurnView{Hand: hand("Ts", "Td"), Total: 20, DealerUp: cards.MustParse("Ah"), CanSplit: true},
			want: game.MoveStand,
		},
	}

	player, err := New(PersonaBasic, randutil.New(1))
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, player.Blackjack(tt.view))
		})
	}
}

func TestBlackjackRandomStaysLegal(t *testing.T) {
	player, err := New(PersonaRandom, randutil.New(3))
	require.NoError(t, err)

	view := game.BlackjackTurnView{Hand: hand("Ts", "6d"), Total: 16, DealerUp: cards.MustParse("9h")}
	for i := 0; i < 50; i++ {
		move := player.Blackjack(view)
		assert.Contains(t, []game.BlackjackMove{game.MoveHit, game.MoveStand}, move)
	}
}
