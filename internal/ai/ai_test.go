package ai

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/randutil"
)

func TestNewPersonas(t *testing.T) {
	for _, persona := range []string{PersonaBasic, PersonaAggressive, PersonaTight, PersonaRandom} {
		p, err := New(persona, randutil.New(1))
		require.NoError(t, err)
		assert.Equal(t, persona, p.Persona())
	}

	p, err := New("", randutil.New(1))
	require.NoError(t, err)
	assert.Equal(t, PersonaBasic, p.Persona())

	_, err = New("alien", randutil.New(1))
	assert.Error(t, err)
}

func TestBetSizing(t *testing.T) {
	view := game.BetView{Mode: game.ModeBlackjack, MinBet: 10, MaxBet: 10000, Balance: 1000}

	basic, _ := New(PersonaBasic, randutil.New(1))
	assert.Equal(t, int64(50), basic.Bet(view))

	aggressive, _ := New(PersonaAggressive, randutil.New(1))
	assert.Equal(t, int64(100), aggressive.Bet(view))

	tight, _ := New(PersonaTight, randutil.New(1))
	assert.Equal(t, int64(30), tight.Bet(view))

	t.Run("clamps to the window floor", func(t *testing.T) {
		small := view
		small.Balance = 100
		assert.Equal(t, int64(10), basic.Bet(small))
	})

	t.Run("sits out when broke", func(t *testing.T) {
		broke := view
		broke.Balance = 5
		assert.Equal(t, int64(0), basic.Bet(broke))
	})

	t.Run("random stays inside the window", func(t *testing.T) {
		random, _ := New(PersonaRandom, randutil.New(7))
		for i := 0; i < 20; i++ {
			bet := random.Bet(view)
			assert.GreaterOrEqual(t, bet, view.MinBet)
			assert.LessOrEqual(t, bet, view.Balance)
		}
	})
}

func TestFactoryMintsLogins(t *testing.T) {
	factory := Factory(zerolog.Nop())

	login, actor, err := factory("basic")
	require.NoError(t, err)
	require.NotNil(t, actor)
	assert.Equal(t, "bot-basic-1", login)

	login, _, err = factory("basic")
	require.NoError(t, err)
	assert.Equal(t, "bot-basic-2", login)

	login, _, err = factory("tight")
	require.NoError(t, err)
	assert.Equal(t, "bot-tight-1", login)

	login, _, err = factory("")
	require.NoError(t, err)
	assert.Equal(t, "bot-basic-3", login)

	_, _, err = factory("alien")
	assert.Error(t, err)
}

func TestSeededReplay(t *testing.T) {
	view := game.PokerTurnView{
		Hole:       hand("9c", "8c"),
		Community:  hand("7d", "Ks", "2h"),
		Pot:        120,
		CurrentBet: 40,
		Stack:      500,
		MinBet:     10,
		MaxBet:     10000,
		Opponents:  2,
	}

	moves := func(seed int64) []game.PokerMove {
		p, err := New(PersonaAggressive, randutil.New(seed))
		require.NoError(t, err)
		out := make([]game.PokerMove, 5)
		for i := range out {
			out[i] = p.Poker(view)
		}
		return out
	}

	assert.Equal(t, moves(99), moves(99))
}
