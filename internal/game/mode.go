package game

// modeOps is the capability set a round engine implements. Both engines
// operate on the channel state passed in; they hold no state of their own
// beyond street bookkeeping scoped to the current round.
type modeOps interface {
	mode() Mode

	// deal consumes the escrowed bets and starts the round: cards out,
	// phase to action, first turn armed or acted synchronously.
	deal(c *Channel)

	// handle applies an action command for a seat during phase action.
	// Rejections are returned, never applied partially.
	handle(c *Channel, seat *Seat, cmd Command) error

	// timeout resolves the active turn after its deadline expires
	// (auto-stand for blackjack, fold-or-check for poker).
	timeout(c *Channel, login string)

	// fastForward resolves the round immediately on forceAdvance: remaining
	// hands auto-stand or the board runs out, then the round settles with
	// the same pot it held.
	fastForward(c *Channel)
}
