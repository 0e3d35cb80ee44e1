package game

import (
	"github.com/lox/cardroom/internal/cards"
)

// blackjackMode drives the dealer-versus-seats round. The shoe lives on the
// channel and persists across rounds; it is reshuffled when it runs low.
type blackjackMode struct{}

func (m *blackjackMode) mode() Mode { return ModeBlackjack }

// deal gives every bettor two cards, the dealer an up card and a hole card,
// and opens the action phase. Player naturals are resolved before any turn
// is armed.
func (m *blackjackMode) deal(c *Channel) {
	bettors := c.seating.bettors()
	if len(bettors) == 0 {
		c.toIdle()
		return
	}

	need := len(bettors)*2 + 2
	c.ensureShoe(need)

	c.phase = PhaseDealing
	c.round++

	for _, s := range bettors {
		s.Hands = []*Hand{{Bet: s.Bet}}
		s.ActiveHand = 0
	}

	// First card around the table, dealer up card, second card around,
	// dealer hole card.
	for _, s := range bettors {
		card, ok := c.draw()
		if !ok {
			return
		}
		s.Hands[0].Cards = append(s.Hands[0].Cards, card)
	}
	up, ok := c.draw()
	if !ok {
		return
	}
	c.dealer = []cards.Card{up}
	for _, s := range bettors {
		card, ok := c.draw()
		if !ok {
			return
		}
		s.Hands[0].Cards = append(s.Hands[0].Cards, card)
	}
	hole, ok := c.draw()
	if !ok {
		return
	}
	c.dealer = append(c.dealer, hole)

	c.phase = PhaseAction

	order := make([]string, 0, len(bettors))
	for _, s := range bettors {
		order = append(order, s.Login)
	}
	c.turn.start(order)

	views := make([]PlayerView, 0, len(bettors))
	for _, s := range bettors {
		views = append(views, c.playerView(s, true))
	}
	c.publish(Event{Kind: EvtRoundStarted, Data: RoundStartedData{
		Mode:     ModeBlackjack,
		Round:    c.round,
		DealerUp: &up,
		Players:  views,
		Pot:      c.escrow(),
	}})

	m.nextTurn(c)
}

// nextTurn walks the rotation to the first seat with an unresolved hand,
// dealing the second card to fresh split hands, acting synchronously for AI
// seats, and arming the shaped turn timer for humans. When every hand is
// resolved the dealer plays.
func (m *blackjackMode) nextTurn(c *Channel) {
	if c.phase != PhaseAction {
		return
	}
	// Each step resolves a hand, deals a card, or advances the pointer, so
	// the walk is bounded by hands plus seats with room to spare.
	maxSteps := len(c.turn.order)*4 + 4
	for step := 0; step < maxSteps; step++ {
		if c.phase != PhaseAction {
			return
		}
		login, ok := c.turn.current()
		if !ok {
			break
		}
		seat := c.seating.find(login)
		if seat == nil {
			c.turn.advance()
			continue
		}
		hand := seat.activeHand()
		if hand == nil {
			c.turn.advance()
			continue
		}

		// A split hand arrives with one card; complete it before play.
		if len(hand.Cards) == 1 {
			card, ok := c.draw()
			if !ok {
				return
			}
			hand.Cards = append(hand.Cards, card)
			c.emitHands(seat)
			if hand.Resolved() {
				// Drew to 21; nothing for the player to do.
				continue
			}
		}

		if actor, isAI := c.actors[login]; isAI {
			m.actAI(c, seat, hand, actor)
			continue
		}

		d := c.tracker.TurnDuration(login)
		c.armTurn(d)
		c.publish(Event{Kind: EvtPlayerUpdate, Data: PlayerUpdateData{Login: login, Turn: true}})
		return
	}
	m.dealerPlay(c)
}

// actAI plays one AI seat's active hand to resolution using the policy,
// falling back to stand if the policy returns something illegal.
func (m *blackjackMode) actAI(c *Channel, seat *Seat, hand *Hand, actor Actor) {
	for !hand.Resolved() {
		if c.phase != PhaseAction {
			return
		}
		t := hand.total()
		view := BlackjackTurnView{
			Hand:         hand.Cards,
			Total:        t.Total,
			Soft:         t.Soft,
			DealerUp:     c.dealer[0],
			Bet:          hand.Bet,
			Balance:      c.funds.Balance(seat.Login),
			CanDouble:    m.canDouble(c, seat, hand),
			CanSplit:     m.canSplit(c, seat, hand),
			CanSurrender: m.canSurrender(seat, hand),
		}
		move := actor.Blackjack(view)
		cmd := Command{Channel: c.name, Actor: seat.Login, Role: RoleAI, Kind: CommandKind(move)}
		if err := m.handle(c, seat, cmd); err != nil {
			hand.Stood = true
			c.emitHands(seat)
		}
		if cmd.Kind == CmdSplit {
			// Sub-hands are played through nextTurn so each draws its
			// second card in order.
			return
		}
	}
}

func (m *blackjackMode) canDouble(c *Channel, seat *Seat, hand *Hand) bool {
	return len(hand.Cards) == 2 && !hand.Doubled &&
		c.funds.Balance(seat.Login) >= hand.Bet
}

func (m *blackjackMode) canSplit(c *Channel, seat *Seat, hand *Hand) bool {
	return len(seat.Hands) == 1 && len(hand.Cards) == 2 &&
		hand.Cards[0].Rank == hand.Cards[1].Rank &&
		c.funds.Balance(seat.Login) >= hand.Bet
}

func (m *blackjackMode) canSurrender(seat *Seat, hand *Hand) bool {
	return len(seat.Hands) == 1 && len(hand.Cards) == 2 && !hand.Doubled && !hand.FromSplit
}

func (m *blackjackMode) handle(c *Channel, seat *Seat, cmd Command) error {
	if c.phase != PhaseAction {
		return ErrOutOfPhase
	}

	// Insurance is a side bet, not a turn action.
	if cmd.Kind == CmdInsurance {
		return m.insure(c, seat, cmd.Amount)
	}

	current, ok := c.turn.current()
	if !ok || current != seat.Login {
		return ErrInvalidAction
	}
	hand := seat.activeHand()
	if hand == nil || len(hand.Cards) < 2 {
		return ErrInvalidAction
	}

	switch cmd.Kind {
	case CmdHit:
		card, ok := c.draw()
		if !ok {
			return nil
		}
		hand.Cards = append(hand.Cards, card)
		if cards.IsBust(hand.Cards) {
			hand.Busted = true
		} else if hand.total().Total == 21 {
			hand.Stood = true
		}

	case CmdStand:
		hand.Stood = true

	case CmdDouble:
		if !m.canDouble(c, seat, hand) {
			return ErrInvalidAction
		}
		if err := c.funds.Debit(seat.Login, hand.Bet, c.roundRef("double")); err != nil {
			return err
		}
		seat.Bet += hand.Bet
		hand.Bet *= 2
		hand.Doubled = true
		card, ok := c.draw()
		if !ok {
			return nil
		}
		hand.Cards = append(hand.Cards, card)
		if cards.IsBust(hand.Cards) {
			hand.Busted = true
		} else {
			hand.Stood = true
		}

	case CmdSplit:
		if !m.canSplit(c, seat, hand) {
			return ErrInvalidAction
		}
		if err := c.funds.Debit(seat.Login, hand.Bet, c.roundRef("split")); err != nil {
			return err
		}
		seat.Bet += hand.Bet
		seat.Hands = []*Hand{
			{Cards: []cards.Card{hand.Cards[0]}, Bet: hand.Bet, FromSplit: true},
			{Cards: []cards.Card{hand.Cards[1]}, Bet: hand.Bet, FromSplit: true},
		}
		seat.ActiveHand = 0

	case CmdSurrender:
		if !m.canSurrender(seat, hand) {
			return ErrInvalidAction
		}
		hand.Surrender = true

	default:
		return ErrInvalidAction
	}

	c.tracker.ClearTimeouts(seat.Login)
	c.emitHands(seat)

	if hand.Resolved() || cmd.Kind == CmdSplit {
		c.cancelTurn()
		if seat.activeHand() == nil {
			c.turn.advance()
		}
		m.nextTurn(c)
	} else if _, isAI := c.actors[seat.Login]; !isAI {
		// Same hand continues; give the player a fresh clock.
		c.armTurn(c.tracker.TurnDuration(seat.Login))
	}
	return nil
}

func (m *blackjackMode) insure(c *Channel, seat *Seat, amount int64) error {
	if len(c.dealer) == 0 || c.dealer[0].Rank != cards.Ace {
		return ErrInvalidAction
	}
	if seat.Insurance != 0 || len(seat.Hands) != 1 {
		return ErrInvalidAction
	}
	if amount <= 0 || amount > seat.Hands[0].Bet/2 {
		return ErrInvalidPayload
	}
	if err := c.funds.Debit(seat.Login, amount, c.roundRef("insurance")); err != nil {
		return err
	}
	seat.Insurance = amount
	c.publish(Event{Kind: EvtPlayerUpdate, To: seat.Login, Data: PlayerUpdateData{
		Login:   seat.Login,
		Balance: ptr(c.funds.Balance(seat.Login)),
	}})
	return nil
}

// timeout auto-stands the active hand and records the lapse.
func (m *blackjackMode) timeout(c *Channel, login string) {
	seat := c.seating.find(login)
	if seat == nil {
		m.nextTurn(c)
		return
	}
	if hand := seat.activeHand(); hand != nil {
		hand.Stood = true
		c.emitHands(seat)
	}
	c.tracker.RecordTimeout(login)
	if seat.activeHand() == nil {
		c.turn.advance()
	}
	m.nextTurn(c)
}

// fastForward stands every open hand and lets the dealer play out.
func (m *blackjackMode) fastForward(c *Channel) {
	for _, s := range c.seating.seats {
		for _, h := range s.Hands {
			if !h.Resolved() {
				h.Stood = true
			}
		}
	}
	c.cancelTurn()
	m.dealerPlay(c)
}

// dealerPlay reveals the hole card and draws to 17, then settles. The dealer
// stands on every 17 and does not draw when no live hands remain.
func (m *blackjackMode) dealerPlay(c *Channel) {
	c.cancelTurn()
	c.phase = PhaseShowdown

	reveal := func() {
		t := cards.BlackjackValue(c.dealer)
		c.publish(Event{Kind: EvtDealerUpdate, Data: DealerUpdateData{
			Hand:  c.dealer,
			Total: t.Total,
			Soft:  t.Soft,
		}})
	}
	reveal()

	live := false
	for _, s := range c.seating.seats {
		for _, h := range s.Hands {
			if !h.Busted && !h.Surrender {
				live = true
			}
		}
	}

	if live && !cards.IsNatural(c.dealer) {
		for cards.BlackjackValue(c.dealer).Total < 17 {
			card, ok := c.draw()
			if !ok {
				return
			}
			c.dealer = append(c.dealer, card)
			reveal()
		}
	}

	m.settle(c)
}

func (m *blackjackMode) settle(c *Channel) {
	dealerTotal := cards.BlackjackValue(c.dealer).Total
	dealerBust := dealerTotal > 21
	dealerNatural := cards.IsNatural(c.dealer)

	payouts := make(map[string]int64)
	escrows := make(map[string]int64)
	var winners []string

	for _, s := range c.seating.seats {
		if len(s.Hands) == 0 {
			continue
		}
		escrows[s.Login] = s.Bet + s.Insurance

		var credit int64
		if s.Insurance > 0 && dealerNatural {
			credit += s.Insurance * 3
		}
		for _, h := range s.Hands {
			credit += m.handPayout(h, dealerTotal, dealerBust, dealerNatural)
		}
		payouts[s.Login] = credit
		if credit > escrows[s.Login] {
			winners = append(winners, s.Login)
		}
	}

	c.settleRound(settlement{
		payouts: payouts,
		escrows: escrows,
		winners: winners,
		dealer:  c.dealer,
		pot:     c.escrow(),
	})
}

// handPayout is the credit returned to the player for one hand, stake
// included. Zero means the bet is forfeit.
func (m *blackjackMode) handPayout(h *Hand, dealerTotal int, dealerBust, dealerNatural bool) int64 {
	switch {
	case h.Surrender:
		return h.Bet / 2
	case h.Busted:
		return 0
	case dealerNatural:
		if h.Natural() {
			return h.Bet
		}
		return 0
	case h.Natural():
		return h.Bet + h.Bet*3/2
	case dealerBust:
		return h.Bet * 2
	default:
		total := h.total().Total
		switch {
		case total > dealerTotal:
			return h.Bet * 2
		case total == dealerTotal:
			return h.Bet
		default:
			return 0
		}
	}
}
