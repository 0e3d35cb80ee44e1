// Package ai provides the built-in table personas. A persona is a pure
// policy over the read-only turn views the engine hands to AI seats; every
// decision draws randomness only from the injected rng, so a seeded bot
// replays move for move.
package ai

import (
	"fmt"
	rand "math/rand/v2"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/randutil"
)

// Personas selectable when seating a bot.
const (
	PersonaBasic      = "basic"
	PersonaAggressive = "aggressive"
	PersonaTight      = "tight"
	PersonaRandom     = "random"
)

// params are the persona knobs: the slice of balance wagered into a betting
// window, the preflop score gates, the postflop equity gates, and how often
// a marginal spot turns into a bluff.
type params struct {
	betFraction  float64
	preflopCall  int
	preflopRaise int
	raiseEquity  float64
	callMargin   float64
	bluffRate    float64
	samples      int
}

func personaParams(persona string) (params, bool) {
	switch persona {
	case PersonaBasic:
		return params{betFraction: 0.05, preflopCall: 3, preflopRaise: 8, raiseEquity: 0.65, callMargin: 0.05, bluffRate: 0.06, samples: 200}, true
	case PersonaAggressive:
		return params{betFraction: 0.10, preflopCall: 2, preflopRaise: 6, raiseEquity: 0.55, callMargin: 0.12, bluffRate: 0.18, samples: 200}, true
	case PersonaTight:
		return params{betFraction: 0.03, preflopCall: 5, preflopRaise: 10, raiseEquity: 0.75, callMargin: 0, bluffRate: 0.02, samples: 200}, true
	case PersonaRandom:
		return params{betFraction: 0.05, samples: 50}, true
	default:
		return params{}, false
	}
}

// Player is one AI seat.
type Player struct {
	persona string
	rng     *rand.Rand
	p       params
}

// New builds a persona policy. An empty persona means basic.
func New(persona string, rng *rand.Rand) (*Player, error) {
	if persona == "" {
		persona = PersonaBasic
	}
	p, ok := personaParams(persona)
	if !ok {
		return nil, fmt.Errorf("ai: unknown persona %q", persona)
	}
	return &Player{persona: persona, rng: rng, p: p}, nil
}

// Persona returns the policy family name.
func (a *Player) Persona() string { return a.persona }

// ValidPersona reports whether a persona name is selectable. An empty name
// is valid and means basic.
func ValidPersona(persona string) bool {
	if persona == "" {
		return true
	}
	_, ok := personaParams(persona)
	return ok
}

// Bet wagers a slice of the balance, clamped to the window limits. Random
// bets anywhere in the window it can cover.
func (a *Player) Bet(view game.BetView) int64 {
	if view.Balance < view.MinBet {
		return 0
	}
	if a.persona == PersonaRandom {
		top := min(view.MaxBet, view.Balance)
		if top <= view.MinBet {
			return view.MinBet
		}
		return view.MinBet + a.rng.Int64N(top-view.MinBet+1)
	}
	bet := int64(float64(view.Balance) * a.p.betFraction)
	bet = max(bet, view.MinBet)
	return min(bet, view.MaxBet, view.Balance)
}

// Factory mints numbered logins with a fresh CSPRNG-seeded rng per seat, so
// table bots stay unpredictable outside replay harnesses.
func Factory(logger zerolog.Logger) game.BotFactory {
	log := logger.With().Str("component", "ai").Logger()
	var mu sync.Mutex
	counts := make(map[string]int)
	return func(persona string) (string, game.Actor, error) {
		if persona == "" {
			persona = PersonaBasic
		}
		player, err := New(persona, randutil.New(randutil.CryptoSeed()))
		if err != nil {
			return "", nil, err
		}
		mu.Lock()
		counts[persona]++
		login := fmt.Sprintf("bot-%s-%d", persona, counts[persona])
		mu.Unlock()
		log.Debug().Str("persona", persona).Str("login", login).Msg("bot created")
		return login, player, nil
	}
}
