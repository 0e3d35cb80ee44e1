package game

import (
	"errors"

	"github.com/lox/cardroom/internal/wallet"
)

// Command rejection taxonomy. Rejections are local to the acting player and
// never abort a round; the channel reports the terse reason code and keeps
// going.
var (
	// ErrInvalidPayload marks a shape or bounds violation in the command.
	ErrInvalidPayload = errors.New("game: invalid payload")

	// ErrUnauthorized marks a command whose kind needs a role the actor
	// does not hold.
	ErrUnauthorized = errors.New("game: unauthorized")

	// ErrInsufficientFunds is the wallet's debit failure, re-exported so
	// callers can match it without importing the wallet.
	ErrInsufficientFunds = wallet.ErrInsufficientFunds

	// ErrTableFull means every seat is taken; the actor is queued instead.
	ErrTableFull = errors.New("game: table full")

	// ErrOutOfPhase marks an action that is not legal in the current phase.
	ErrOutOfPhase = errors.New("game: out of phase")

	// ErrInvalidAction marks an action legal in this phase but not for this
	// actor right now.
	ErrInvalidAction = errors.New("game: invalid action")

	// ErrTournamentMisbound marks a reference to a tournament or table that
	// no longer exists.
	ErrTournamentMisbound = errors.New("game: tournament misbound")
)

// Reason maps a rejection to the code reported to the actor. Internals never
// leak; anything unrecognized collapses to "internal".
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidPayload):
		return "invalidPayload"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficientFunds"
	case errors.Is(err, ErrTableFull):
		return "tableFull"
	case errors.Is(err, ErrOutOfPhase):
		return "outOfPhase"
	case errors.Is(err, ErrInvalidAction):
		return "invalidAction"
	case errors.Is(err, ErrTournamentMisbound):
		return "tournamentMisbound"
	default:
		return "internal"
	}
}
