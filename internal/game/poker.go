package game

import (
	"sort"

	"github.com/lox/cardroom/internal/cards"
)

// pokerMode drives the no-limit hold'em round. Each hand plays from a fresh
// single deck off the channel rng. There is no side-pot separation: the pot
// goes to the single best evaluated hand among non-folded players, matching
// the reference behavior for uncovered all-ins.
type pokerMode struct {
	street int // 0 preflop, 1 flop, 2 turn, 3 river
}

const (
	streetPreflop = iota
	streetFlop
	streetTurn
	streetRiver
)

func streetName(s int) string {
	switch s {
	case streetPreflop:
		return "preflop"
	case streetFlop:
		return "flop"
	case streetTurn:
		return "turn"
	case streetRiver:
		return "river"
	default:
		return "showdown"
	}
}

func (m *pokerMode) mode() Mode { return ModePoker }

// participants are the seats dealt into the current hand.
func (m *pokerMode) participants(c *Channel) []*Seat {
	var out []*Seat
	for _, s := range c.seating.seats {
		if len(s.Hole) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// actives are participants who have not folded.
func (m *pokerMode) actives(c *Channel) []*Seat {
	var out []*Seat
	for _, s := range m.participants(c) {
		if !s.Folded {
			out = append(out, s)
		}
	}
	return out
}

// deal starts the hand. Cash channels deal everyone whose window bet is
// escrowed, and those bets stand as preflop street contributions. Tournament
// tables deal the whole roster with the posted blinds as contributions.
func (m *pokerMode) deal(c *Channel) {
	var entrants []*Seat
	if c.binding != nil {
		entrants = append(entrants, c.seating.seats...)
	} else {
		entrants = c.seating.bettors()
	}
	if len(entrants) < 2 {
		// Heads-up is the floor; refund a lone bettor.
		c.abortRound("not enough players")
		return
	}

	if !c.takeNextDeck() {
		c.deck = cards.NewShoe(1)
		c.deck.Shuffle(c.rng)
	}
	c.community = nil
	m.street = streetPreflop
	c.phase = PhaseDealing
	c.round++

	for _, s := range entrants {
		s.Hole = nil
		s.Folded = false
		s.acted = false
		s.StreetBet = s.Bet
		s.AllIn = s.Bet > 0 && c.funds.Balance(s.Login) == 0
	}
	for pass := 0; pass < 2; pass++ {
		for _, s := range entrants {
			card, ok := c.draw()
			if !ok {
				return
			}
			s.Hole = append(s.Hole, card)
		}
	}

	c.currentBet = 0
	for _, s := range entrants {
		c.currentBet = max(c.currentBet, s.StreetBet)
	}

	c.phase = PhaseAction

	order := make([]string, 0, len(entrants))
	for _, s := range entrants {
		order = append(order, s.Login)
	}
	// Preflop action starts at the first seat heads-up, or after the big
	// blind on bound tables.
	start := 0
	if c.binding != nil && len(order) > 2 {
		start = 2
	}
	c.turn.start(rotated(order, start))

	views := make([]PlayerView, 0, len(entrants))
	for _, s := range entrants {
		views = append(views, c.playerView(s, false))
	}
	c.publish(Event{Kind: EvtRoundStarted, Data: RoundStartedData{
		Mode:       ModePoker,
		Round:      c.round,
		Players:    views,
		Pot:        c.escrow(),
		CurrentBet: c.currentBet,
	}})
	for _, s := range entrants {
		if _, isAI := c.actors[s.Login]; isAI {
			continue
		}
		c.publish(Event{Kind: EvtPlayerUpdate, To: s.Login, Data: PlayerUpdateData{
			Login: s.Login,
			Hole:  s.Hole,
		}})
	}

	m.nextTurn(c)
}

func rotated(order []string, start int) []string {
	if len(order) == 0 {
		return order
	}
	start %= len(order)
	out := make([]string, 0, len(order))
	out = append(out, order[start:]...)
	out = append(out, order[:start]...)
	return out
}

// nextTurn finds the next seat that can act on this street. Folded and
// all-in seats are skipped. If the street is already closed it advances the
// board instead.
func (m *pokerMode) nextTurn(c *Channel) {
	if c.phase != PhaseAction {
		return
	}
	if len(m.actives(c)) <= 1 {
		m.awardLastStanding(c)
		return
	}
	if m.streetClosed(c) {
		m.advanceStreet(c)
		return
	}
	for range c.turn.order {
		login, ok := c.turn.current()
		if !ok {
			break
		}
		seat := c.seating.find(login)
		if seat == nil || seat.Folded || seat.AllIn || len(seat.Hole) == 0 {
			c.turn.advance()
			continue
		}
		if seat.acted && seat.StreetBet == c.currentBet {
			c.turn.advance()
			continue
		}

		if actor, isAI := c.actors[login]; isAI {
			m.actAI(c, seat, actor)
			return
		}
		c.armTurn(c.cfg.TurnTimeout)
		c.publish(Event{Kind: EvtPlayerUpdate, Data: PlayerUpdateData{Login: login, Turn: true}})
		return
	}
	m.advanceStreet(c)
}

// actAI asks the policy for a move and applies it through the same gate as
// human commands, falling back to check then fold.
func (m *pokerMode) actAI(c *Channel, seat *Seat, actor Actor) {
	view := PokerTurnView{
		Hole:       seat.Hole,
		Community:  c.community,
		Pot:        c.escrow(),
		CurrentBet: c.currentBet,
		StreetBet:  seat.StreetBet,
		Stack:      c.funds.Balance(seat.Login),
		MinBet:     c.cfg.MinBet,
		MaxBet:     c.cfg.MaxBet,
		Opponents:  len(m.actives(c)) - 1,
	}
	move := actor.Poker(view)
	cmd := Command{Channel: c.name, Actor: seat.Login, Role: RoleAI, Kind: move.Kind, Amount: move.Amount}
	if err := m.handle(c, seat, cmd); err != nil {
		fallback := Command{Channel: c.name, Actor: seat.Login, Role: RoleAI, Kind: CmdCheck}
		if err := m.handle(c, seat, fallback); err != nil {
			fallback.Kind = CmdFold
			_ = m.handle(c, seat, fallback)
		}
	}
}

func (m *pokerMode) handle(c *Channel, seat *Seat, cmd Command) error {
	if c.phase != PhaseAction {
		return ErrOutOfPhase
	}
	current, ok := c.turn.current()
	if !ok || current != seat.Login {
		return ErrInvalidAction
	}
	if seat.Folded || seat.AllIn {
		return ErrInvalidAction
	}

	switch cmd.Kind {
	case CmdCheck:
		if seat.StreetBet != c.currentBet {
			return ErrInvalidAction
		}
		seat.acted = true

	case CmdCall:
		delta := c.currentBet - seat.StreetBet
		stack := c.funds.Balance(seat.Login)
		if delta >= stack {
			delta = stack
			seat.AllIn = true
		}
		if delta > 0 {
			if err := c.funds.Debit(seat.Login, delta, c.roundRef("call")); err != nil {
				return err
			}
			seat.StreetBet += delta
			seat.Bet += delta
		}
		seat.acted = true

	case CmdRaise:
		target := cmd.Amount
		if target <= c.currentBet {
			return ErrInvalidPayload
		}
		if c.cfg.MaxBet > 0 && target > c.cfg.MaxBet {
			return ErrInvalidPayload
		}
		delta := target - seat.StreetBet
		if delta <= 0 {
			return ErrInvalidPayload
		}
		stack := c.funds.Balance(seat.Login)
		if delta >= stack {
			delta = stack
			target = seat.StreetBet + delta
			seat.AllIn = true
		}
		if delta == 0 {
			return ErrInvalidAction
		}
		if err := c.funds.Debit(seat.Login, delta, c.roundRef("raise")); err != nil {
			return err
		}
		seat.StreetBet += delta
		seat.Bet += delta
		seat.acted = true
		if target > c.currentBet {
			// A real raise reopens the action for everyone else.
			c.currentBet = target
			for _, other := range m.participants(c) {
				if other != seat {
					other.acted = false
				}
			}
		}

	case CmdFold:
		seat.Folded = true

	default:
		return ErrInvalidAction
	}

	c.tracker.ClearTimeouts(seat.Login)
	m.emitBetting(c)

	c.cancelTurn()
	c.turn.advance()
	m.nextTurn(c)
	return nil
}

// emitBetting publishes the street state after pot and acted set are
// consistent, never between.
func (m *pokerMode) emitBetting(c *Channel) {
	bets := make(map[string]int64)
	for _, s := range m.participants(c) {
		bets[s.Login] = s.StreetBet
	}
	turn, _ := c.turn.current()
	c.publish(Event{Kind: EvtPokerBetting, Data: PokerBettingData{
		Phase:      streetName(m.street),
		Pot:        c.escrow(),
		CurrentBet: c.currentBet,
		StreetBets: bets,
		Community:  c.community,
		Turn:       turn,
	}})
}

// streetClosed reports whether every active seat has either matched the
// current bet and acted, or is all-in.
func (m *pokerMode) streetClosed(c *Channel) bool {
	for _, s := range m.actives(c) {
		if s.AllIn {
			continue
		}
		if !s.acted || s.StreetBet != c.currentBet {
			return false
		}
	}
	return true
}

// advanceStreet resets street bookkeeping and deals the next board cards.
// When one or zero seats can still bet, the board runs out to showdown.
func (m *pokerMode) advanceStreet(c *Channel) {
	if c.phase != PhaseAction {
		return
	}
	for _, s := range m.participants(c) {
		s.StreetBet = 0
		s.acted = false
	}
	c.currentBet = 0

	canBet := 0
	for _, s := range m.actives(c) {
		if !s.AllIn {
			canBet++
		}
	}

	for {
		if m.street == streetRiver {
			m.showdown(c)
			return
		}
		m.street++
		n := 1
		if m.street == streetFlop {
			n = 3
		}
		board, err := c.deck.DrawN(n)
		if err != nil {
			c.abortRound("deck exhausted")
			return
		}
		c.community = append(c.community, board...)

		if canBet > 1 {
			break
		}
		// Nobody left to bet; keep dealing to the river.
	}

	order := make([]string, 0)
	for _, s := range m.participants(c) {
		order = append(order, s.Login)
	}
	start := 0
	if len(order) == 2 {
		start = 1
	} else if c.binding == nil {
		start = 1
	}
	c.turn.start(rotated(order, start))

	m.emitBetting(c)
	m.nextTurn(c)
}

// awardLastStanding pays the pot to the sole remaining player without a
// reveal.
func (m *pokerMode) awardLastStanding(c *Channel) {
	actives := m.actives(c)
	if len(actives) != 1 {
		c.abortRound("no active players")
		return
	}
	winner := actives[0]
	c.cancelTurn()
	c.phase = PhaseShowdown

	payouts := make(map[string]int64)
	escrows := make(map[string]int64)
	for _, s := range m.participants(c) {
		escrows[s.Login] = s.Bet
		payouts[s.Login] = 0
	}
	payouts[winner.Login] = c.escrow()

	c.settleRound(settlement{
		payouts:   payouts,
		escrows:   escrows,
		winners:   []string{winner.Login},
		community: c.community,
		pot:       c.escrow(),
	})
}

// showdown deals any remaining board, evaluates every live hand, and splits
// the pot among the best. Odd chips go to the earliest seat in rotation.
func (m *pokerMode) showdown(c *Channel) {
	c.cancelTurn()
	c.phase = PhaseShowdown

	for len(c.community) < 5 {
		card, ok := c.draw()
		if !ok {
			return
		}
		c.community = append(c.community, card)
	}

	type contender struct {
		seat  *Seat
		value cards.HandValue
	}
	var best []contender
	for _, s := range m.actives(c) {
		hand := make([]cards.Card, 0, 7)
		hand = append(hand, s.Hole...)
		hand = append(hand, c.community...)
		hv, err := cards.Evaluate7(hand)
		if err != nil {
			c.abortRound("evaluation failed")
			return
		}
		switch {
		case len(best) == 0:
			best = []contender{{s, hv}}
		default:
			switch cards.Compare(hv, best[0].value) {
			case 1:
				best = []contender{{s, hv}}
			case 0:
				best = append(best, contender{s, hv})
			}
		}
	}
	if len(best) == 0 {
		c.abortRound("no hands to evaluate")
		return
	}

	sort.Slice(best, func(i, j int) bool {
		return c.turn.position(best[i].seat.Login) < c.turn.position(best[j].seat.Login)
	})

	pot := c.escrow()
	share := pot / int64(len(best))
	remainder := pot % int64(len(best))

	payouts := make(map[string]int64)
	escrows := make(map[string]int64)
	reveals := make(map[string][]cards.Card)
	for _, s := range m.participants(c) {
		escrows[s.Login] = s.Bet
		payouts[s.Login] = 0
		if !s.Folded {
			reveals[s.Login] = s.Hole
		}
	}
	winners := make([]string, 0, len(best))
	for i, w := range best {
		amount := share
		if i == 0 {
			amount += remainder
		}
		payouts[w.seat.Login] = amount
		winners = append(winners, w.seat.Login)
	}

	c.settleRound(settlement{
		payouts:   payouts,
		escrows:   escrows,
		winners:   winners,
		community: c.community,
		reveals:   reveals,
		pot:       pot,
	})
}

// timeout folds when a bet must be matched, otherwise checks.
func (m *pokerMode) timeout(c *Channel, login string) {
	seat := c.seating.find(login)
	if seat == nil {
		m.nextTurn(c)
		return
	}
	c.tracker.RecordTimeout(login)
	if seat.StreetBet < c.currentBet {
		seat.Folded = true
	} else {
		seat.acted = true
	}
	m.emitBetting(c)
	c.turn.advance()
	m.nextTurn(c)
}

// fastForward runs the board out and shows down with the pot as it stands.
func (m *pokerMode) fastForward(c *Channel) {
	c.cancelTurn()
	if len(m.actives(c)) <= 1 {
		m.awardLastStanding(c)
		return
	}
	m.showdown(c)
}
