package game

import (
	"context"
	rand "math/rand/v2"
	"strconv"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/cards"
	"github.com/lox/cardroom/internal/heuristics"
	"github.com/lox/cardroom/internal/randutil"
)

// Config tunes one channel's round engine.
type Config struct {
	Mode          Mode
	MinBet        int64
	MaxBet        int64
	BettingWindow time.Duration
	BetCooldown   time.Duration
	TurnTimeout   time.Duration
	SettleDelay   time.Duration
	Decks         int
	Seed          int64
	AutoReopen    bool
}

// DefaultConfig returns the standing table settings for a mode.
func DefaultConfig(mode Mode) Config {
	return Config{
		Mode:          mode,
		MinBet:        10,
		MaxBet:        10000,
		BettingWindow: 30 * time.Second,
		BetCooldown:   5 * time.Second,
		TurnTimeout:   15 * time.Second,
		SettleDelay:   3 * time.Second,
		Decks:         6,
	}
}

func (cfg Config) withDefaults() Config {
	d := DefaultConfig(cfg.Mode)
	if cfg.MinBet <= 0 {
		cfg.MinBet = d.MinBet
	}
	if cfg.MaxBet < 0 {
		cfg.MaxBet = d.MaxBet
	}
	if cfg.BettingWindow <= 0 {
		cfg.BettingWindow = d.BettingWindow
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = d.TurnTimeout
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = d.SettleDelay
	}
	if cfg.Decks <= 0 {
		cfg.Decks = d.Decks
	}
	return cfg
}

// RoundRecorder receives each settled round for the history log.
type RoundRecorder interface {
	RecordRound(channel string, mode Mode, round uint64, seed int64, data SettledData)
}

// SettlementObserver is notified when a bound table settles. The tournament
// controller registers one; stacks live in its own book, so only the binding
// and the final balances travel.
type SettlementObserver interface {
	RoundSettled(binding TournamentBinding, balances map[string]int64)
}

// StackResolver supplies the funding source for a tournament binding. When a
// table binds, its debits and credits switch from the wallet to the resolved
// book; a binding that resolves to nothing is misbound.
type StackResolver interface {
	StackFunds(tournamentID string) (Funds, bool)
}

// BotFactory builds an AI actor for a persona, returning the login it plays
// under.
type BotFactory func(persona string) (string, Actor, error)

// Deps are the collaborators a channel needs. Funds is required; everything
// else has a working default.
type Deps struct {
	Logger   zerolog.Logger
	Clock    quartz.Clock
	Funds    Funds
	Tracker  *heuristics.Tracker
	Emitter  Emitter
	Recorder RoundRecorder
	Observer SettlementObserver
	Stacks   StackResolver
	Bots     BotFactory
}

type viewReq struct {
	reply chan<- ChannelView
}

type applyFn func(*Channel)

// Channel owns all round state for one table. Every mutation (commands, timer
// ticks, controller hooks) flows through the inbox and is applied by the
// single Run goroutine, so no field below needs a lock.
type Channel struct {
	name    string
	cfg     Config
	logger  zerolog.Logger
	clock   quartz.Clock
	funds   Funds
	tracker *heuristics.Tracker
	emitter Emitter
	rec     RoundRecorder
	obs     SettlementObserver
	stacks  StackResolver
	bots    BotFactory

	inbox   chan any
	stopped chan struct{}

	seed int64
	rng  *rand.Rand

	phase      Phase
	round      uint64
	seq        uint64
	ops        modeOps
	seating    *seating
	turn       turnManager
	timers     [3]timerSlot
	deck       *cards.Deck
	nextDeck   *cards.Deck
	dealer     []cards.Card
	community  []cards.Card
	currentBet int64
	binding    *TournamentBinding
	ready      map[string]bool
	lastBetAt  map[string]time.Time
	actors     map[string]Actor
	botSeq     int
}

// New builds a channel. Run must be started for it to make progress.
func New(name string, cfg Config, deps Deps) *Channel {
	cfg = cfg.withDefaults()
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.Emitter == nil {
		deps.Emitter = func(Event) {}
	}
	if deps.Tracker == nil {
		deps.Tracker = heuristics.NewTracker(heuristics.DefaultConfig(), deps.Clock)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = randutil.CryptoSeed()
	}

	c := &Channel{
		name:      name,
		cfg:       cfg,
		logger:    deps.Logger.With().Str("component", "channel").Str("channel", name).Logger(),
		clock:     deps.Clock,
		funds:     deps.Funds,
		tracker:   deps.Tracker,
		emitter:   deps.Emitter,
		rec:       deps.Recorder,
		obs:       deps.Observer,
		stacks:    deps.Stacks,
		bots:      deps.Bots,
		inbox:     make(chan any, 128),
		stopped:   make(chan struct{}),
		seed:      seed,
		rng:       randutil.New(seed),
		phase:     PhaseIdle,
		seating:   newSeating(cfg.Mode.SeatCap()),
		ready:     make(map[string]bool),
		lastBetAt: make(map[string]time.Time),
		actors:    make(map[string]Actor),
	}
	for k := range c.timers {
		c.timers[k].kind = timerKind(k)
	}
	switch cfg.Mode {
	case ModePoker:
		c.ops = &pokerMode{}
	default:
		c.ops = &blackjackMode{}
	}
	return c
}

// Name returns the channel identifier.
func (c *Channel) Name() string { return c.name }

// Mode returns the engine the channel runs.
func (c *Channel) Mode() Mode { return c.cfg.Mode }

// Run consumes the inbox until ctx is cancelled. On shutdown any open round
// is aborted with refunds and a final state broadcast.
func (c *Channel) Run(ctx context.Context) {
	defer close(c.stopped)
	c.logger.Info().Str("mode", string(c.cfg.Mode)).Int64("seed", c.seed).Msg("channel started")
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case msg := <-c.inbox:
			c.dispatch(msg)
		}
	}
}

func (c *Channel) shutdown() {
	// Drain whatever was already queued so in-flight commands apply.
	for {
		select {
		case msg := <-c.inbox:
			c.dispatch(msg)
			continue
		default:
		}
		break
	}
	// A settled round has already paid out; only open rounds still hold
	// escrow to return.
	if c.phase != PhaseIdle && c.phase != PhaseSettled {
		c.abortRound("shutdown")
	}
	c.cancelAllTimers()
	c.emitQueue()
	c.logger.Info().Msg("channel stopped")
}

// Submit enqueues a command without blocking. False means the inbox is full
// and the command was dropped.
func (c *Channel) Submit(cmd Command) bool {
	select {
	case c.inbox <- cmd:
		return true
	case <-c.stopped:
		return false
	default:
		c.logger.Warn().Str("kind", string(cmd.Kind)).Str("actor", cmd.Actor).Msg("inbox full, command dropped")
		return false
	}
}

// enqueue delivers internal messages (timer ticks, controller hooks). These
// must not be lost, so it blocks until the loop takes them or stops.
func (c *Channel) enqueue(msg any) {
	select {
	case c.inbox <- msg:
	case <-c.stopped:
	}
}

// View snapshots the channel from inside the loop.
func (c *Channel) View() (ChannelView, bool) {
	reply := make(chan ChannelView, 1)
	select {
	case c.inbox <- viewReq{reply: reply}:
	case <-c.stopped:
		return ChannelView{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-c.stopped:
		return ChannelView{}, false
	}
}

// AnnounceLevel pushes a blind level change onto a bound table and broadcasts
// it. The new blinds apply from the next hand; a hand in flight keeps the
// blinds it was dealt with.
func (c *Channel) AnnounceLevel(data TournamentLevelData) {
	c.enqueue(applyFn(func(c *Channel) {
		if c.binding == nil || c.binding.TournamentID != data.TournamentID {
			return
		}
		c.binding.SmallBlind = data.SmallBlind
		c.binding.BigBlind = data.BigBlind
		c.publish(Event{Kind: EvtTournamentLevel, Data: data})
	}))
}

func (c *Channel) dispatch(msg any) {
	switch v := msg.(type) {
	case Command:
		c.handleCommand(v)
	case tick:
		c.handleTick(v)
	case applyFn:
		v(c)
	case viewReq:
		v.reply <- c.view()
	default:
		c.logger.Error().Msgf("unknown inbox message %T", msg)
	}
}

func (c *Channel) handleTick(t tick) {
	if !c.timers[t.kind].live(t) {
		return
	}
	switch t.kind {
	case timerBetting:
		c.closeBetting()
	case timerTurn:
		if login, ok := c.turn.current(); ok {
			c.ops.timeout(c, login)
		}
	case timerPhase:
		if c.phase == PhaseSettled {
			c.toIdle()
		}
	}
}

func (c *Channel) handleCommand(cmd Command) {
	if cmd.Kind.requiresControl() && !cmd.Role.CanControl() {
		c.reject(cmd, ErrUnauthorized)
		return
	}

	var err error
	switch cmd.Kind {
	case CmdPlaceBet:
		err = c.placeBet(cmd)
	case CmdReady:
		err = c.readyUp(cmd)
	case CmdOpenBetting:
		err = c.openBetting()
	case CmdStartNow:
		err = c.startNow()
	case CmdForceAdvance:
		err = c.forceAdvance()
	case CmdBindTournamentTable:
		err = c.bindTournament(cmd)
	case CmdAddBot:
		err = c.addBot(cmd)
	case CmdKickBot:
		err = c.kickBot(cmd)
	case CmdHit, CmdStand, CmdDouble, CmdSplit, CmdSurrender, CmdInsurance,
		CmdCheck, CmdCall, CmdRaise, CmdFold:
		seat := c.seating.find(cmd.Actor)
		if seat == nil {
			err = ErrInvalidAction
		} else {
			err = c.ops.handle(c, seat, cmd)
		}
	default:
		err = ErrInvalidPayload
	}

	if err != nil {
		c.reject(cmd, err)
	}
}

// reject reports the failure to the actor alone and keeps the round going.
func (c *Channel) reject(cmd Command, err error) {
	reason := Reason(err)
	c.logger.Warn().
		Str("actor", cmd.Actor).
		Str("kind", string(cmd.Kind)).
		Str("reason", reason).
		Msg("command rejected")
	c.publish(Event{Kind: EvtRejected, To: cmd.Actor, Data: RejectedData{
		Kind:   cmd.Kind,
		Reason: reason,
	}})
}

// placeBet escrows a wager during the betting window, seating the actor or
// queueing them when the table is full.
func (c *Channel) placeBet(cmd Command) error {
	if c.binding != nil {
		// Bound tables bet through blinds and antes, not the window.
		return ErrInvalidAction
	}
	if c.phase != PhaseBetting {
		return ErrOutOfPhase
	}
	amount := cmd.Amount
	if amount <= 0 {
		return ErrInvalidPayload
	}

	if c.cfg.BetCooldown > 0 {
		if last, ok := c.lastBetAt[cmd.Actor]; ok {
			if c.clock.Now().Sub(last) < c.cfg.BetCooldown {
				return ErrInvalidAction
			}
		}
	}

	seat := c.seating.find(cmd.Actor)
	if seat == nil {
		var err error
		seat, err = c.seating.add(cmd.Actor, cmd.Role)
		if err != nil {
			if cmd.Role == RolePremier {
				c.seating.promoteQueued(cmd.Actor)
			}
			c.emitQueue()
			return err
		}
	}

	available := c.funds.Balance(cmd.Actor) + seat.Bet
	if c.cfg.Mode == ModeBlackjack && c.tracker != nil {
		amount = c.tracker.ClampBet(cmd.Actor, amount, available)
	}
	if amount < c.cfg.MinBet || (c.cfg.MaxBet > 0 && amount > c.cfg.MaxBet) {
		return ErrInvalidPayload
	}
	if amount > available {
		return ErrInsufficientFunds
	}

	// Refund any standing bet, then escrow the new amount. The bounds check
	// above guarantees both legs succeed together.
	if seat.Bet > 0 {
		if err := c.funds.Credit(cmd.Actor, seat.Bet, c.roundRef("rebet refund")); err != nil {
			return err
		}
		seat.Bet = 0
	}
	if err := c.funds.Debit(cmd.Actor, amount, c.roundRef("bet")); err != nil {
		return err
	}
	seat.Bet = amount
	c.lastBetAt[cmd.Actor] = c.clock.Now()

	c.publish(Event{Kind: EvtPlayerUpdate, Data: PlayerUpdateData{
		Login:   cmd.Actor,
		Bet:     ptr(amount),
		Balance: ptr(c.funds.Balance(cmd.Actor)),
	}})
	c.emitQueue()
	return nil
}

// openBetting moves idle to betting: queued players are promoted with an
// automatic minimum bet when they can afford it, AI seats wager by policy,
// and the window timer is armed.
func (c *Channel) openBetting() error {
	if c.binding != nil {
		return ErrInvalidAction
	}
	if c.phase != PhaseIdle {
		return ErrOutOfPhase
	}
	c.phase = PhaseBetting

	c.promoteQueue()
	c.autoBetAI()

	endsAt := c.clock.Now().Add(c.cfg.BettingWindow)
	c.armBetting(c.cfg.BettingWindow)
	c.publish(Event{Kind: EvtBettingStarted, Data: BettingStartedData{
		Mode:     c.cfg.Mode,
		Duration: c.cfg.BettingWindow,
		EndsAt:   endsAt,
		MinBet:   c.cfg.MinBet,
		MaxBet:   c.cfg.MaxBet,
	}})
	c.emitQueue()
	return nil
}

// promoteQueue seats waiting players while seats are free, placing the
// minimum bet for each. Whoever cannot afford it stays queued.
func (c *Channel) promoteQueue() {
	if c.seating.free() <= 0 {
		return
	}
	var keep []string
	for _, login := range c.seating.queue {
		if c.seating.free() <= 0 {
			keep = append(keep, login)
			continue
		}
		if c.funds.Balance(login) < c.cfg.MinBet {
			keep = append(keep, login)
			continue
		}
		seat, err := c.seating.add(login, RolePlayer)
		if err != nil {
			keep = append(keep, login)
			continue
		}
		if err := c.funds.Debit(login, c.cfg.MinBet, c.roundRef("queue auto-bet")); err != nil {
			c.seating.remove(login)
			keep = append(keep, login)
			continue
		}
		seat.Bet = c.cfg.MinBet
		c.publish(Event{Kind: EvtPlayerUpdate, Data: PlayerUpdateData{
			Login:   login,
			Bet:     ptr(seat.Bet),
			Balance: ptr(c.funds.Balance(login)),
		}})
	}
	c.seating.queue = keep
}

// autoBetAI collects wagers from seated AI players.
func (c *Channel) autoBetAI() {
	for _, s := range c.seating.seats {
		actor, ok := c.actors[s.Login]
		if !ok || s.Bet > 0 {
			continue
		}
		amount := actor.Bet(BetView{
			Mode:    c.cfg.Mode,
			MinBet:  c.cfg.MinBet,
			MaxBet:  c.cfg.MaxBet,
			Balance: c.funds.Balance(s.Login),
		})
		if amount < c.cfg.MinBet {
			continue
		}
		if c.cfg.MaxBet > 0 && amount > c.cfg.MaxBet {
			amount = c.cfg.MaxBet
		}
		if err := c.funds.Debit(s.Login, amount, c.roundRef("ai bet")); err != nil {
			continue
		}
		s.Bet = amount
		c.publish(Event{Kind: EvtPlayerUpdate, Data: PlayerUpdateData{
			Login:   s.Login,
			Bet:     ptr(amount),
			Balance: ptr(c.funds.Balance(s.Login)),
		}})
	}
}

// closeBetting ends the window: with at least one escrowed bet the round
// deals, otherwise the channel returns to idle.
func (c *Channel) closeBetting() {
	if c.phase != PhaseBetting {
		return
	}
	c.timers[timerBetting].cancel()
	if len(c.seating.bettors()) == 0 {
		c.logger.Debug().Msg("betting window closed with no bets")
		c.toIdle()
		return
	}
	c.ops.deal(c)
}

func (c *Channel) startNow() error {
	if c.phase != PhaseBetting {
		return ErrOutOfPhase
	}
	c.closeBetting()
	return nil
}

func (c *Channel) forceAdvance() error {
	switch c.phase {
	case PhaseBetting:
		c.closeBetting()
	case PhaseAction:
		c.ops.fastForward(c)
	case PhaseSettled:
		c.toIdle()
	default:
		return ErrOutOfPhase
	}
	return nil
}

// readyUp marks a roster login ready on a bound table; when the whole roster
// is ready the round auto-starts with blinds or antes.
func (c *Channel) readyUp(cmd Command) error {
	if c.binding == nil {
		return ErrTournamentMisbound
	}
	if c.phase != PhaseIdle {
		return ErrOutOfPhase
	}
	inRoster := false
	for _, login := range c.binding.Roster {
		if login == cmd.Actor {
			inRoster = true
			break
		}
	}
	if !inRoster {
		return ErrInvalidAction
	}
	c.ready[cmd.Actor] = true
	c.emitReady()

	if c.allReady() {
		c.autoStart()
	}
	return nil
}

func (c *Channel) allReady() bool {
	for _, login := range c.binding.Roster {
		if !c.ready[login] {
			return false
		}
	}
	return len(c.binding.Roster) > 0
}

func (c *Channel) emitReady() {
	ready := make([]string, 0, len(c.ready))
	for _, login := range c.binding.Roster {
		if c.ready[login] {
			ready = append(ready, login)
		}
	}
	c.publish(Event{Kind: EvtReadyStatus, Data: ReadyStatusData{
		Ready:    ready,
		Required: c.binding.Roster,
		AllReady: c.allReady(),
	}})
}

// autoStart posts forced bets for a bound table and deals. Poker posts the
// small and big blinds; blackjack antes everyone the big blind. Short
// stacks post what they have and are all-in from the start.
func (c *Channel) autoStart() {
	post := func(login string, amount int64, what string) int64 {
		stack := c.funds.Balance(login)
		if amount > stack {
			amount = stack
		}
		if amount <= 0 {
			return 0
		}
		if err := c.funds.Debit(login, amount, c.roundRef(what)); err != nil {
			c.logger.Error().Err(err).Str("login", login).Msg("forced bet failed")
			return 0
		}
		return amount
	}

	switch c.cfg.Mode {
	case ModePoker:
		if len(c.binding.Roster) >= 2 {
			sb := c.seating.find(c.binding.Roster[0])
			bb := c.seating.find(c.binding.Roster[1])
			if sb != nil {
				sb.Bet = post(sb.Login, c.binding.SmallBlind, "small blind")
			}
			if bb != nil {
				bb.Bet = post(bb.Login, c.binding.BigBlind, "big blind")
			}
		}
	default:
		for _, s := range c.seating.seats {
			s.Bet = post(s.Login, c.binding.BigBlind, "ante")
		}
	}
	c.ops.deal(c)
}

// bindTournament resets the table onto a bracket assignment. The roster is
// seated in bracket order and any prior cash-game state is cleared.
func (c *Channel) bindTournament(cmd Command) error {
	if cmd.Bind == nil || cmd.Bind.TournamentID == "" || len(cmd.Bind.Roster) == 0 {
		return ErrInvalidPayload
	}
	if c.phase != PhaseIdle {
		return ErrOutOfPhase
	}
	b := *cmd.Bind
	st := newSeating(c.cfg.Mode.SeatCap())
	for _, login := range b.Roster {
		if _, err := st.add(login, RolePlayer); err != nil {
			return ErrInvalidPayload
		}
	}
	if c.stacks != nil {
		book, ok := c.stacks.StackFunds(b.TournamentID)
		if !ok {
			return ErrTournamentMisbound
		}
		// Bound tables play out of the tournament book, not the wallet.
		c.funds = book
	}
	c.binding = &b
	c.seating = st
	c.ready = make(map[string]bool)
	c.logger.Info().
		Str("tournament", b.TournamentID).
		Int("round", b.Round).
		Int("table", b.Table).
		Msg("table bound")
	c.emitReady()
	c.emitQueue()
	return nil
}

// addBot seats a policy player. The persona names the policy family.
func (c *Channel) addBot(cmd Command) error {
	if c.bots == nil {
		return ErrInvalidAction
	}
	persona := cmd.Target
	if persona == "" {
		persona = "basic"
	}
	login, actor, err := c.bots(persona)
	if err != nil {
		return ErrInvalidPayload
	}
	c.botSeq++
	if _, err := c.seating.add(login, RoleAI); err != nil {
		return err
	}
	c.actors[login] = actor
	c.logger.Info().Str("login", login).Str("persona", persona).Msg("bot seated")
	c.emitQueue()
	return nil
}

// kickBot removes a policy player between rounds.
func (c *Channel) kickBot(cmd Command) error {
	login := cmd.Target
	if _, ok := c.actors[login]; !ok {
		return ErrInvalidPayload
	}
	if c.phase != PhaseIdle && c.phase != PhaseBetting {
		return ErrOutOfPhase
	}
	if seat := c.seating.find(login); seat != nil && seat.Bet > 0 {
		if err := c.funds.Credit(login, seat.Bet, c.roundRef("bot refund")); err != nil {
			return err
		}
	}
	c.seating.remove(login)
	delete(c.actors, login)
	c.logger.Info().Str("login", login).Msg("bot removed")
	c.emitQueue()
	return nil
}

// settlement is what a mode hands back when its round resolves.
type settlement struct {
	payouts   map[string]int64
	escrows   map[string]int64
	winners   []string
	dealer    []cards.Card
	community []cards.Card
	reveals   map[string][]cards.Card
	pot       int64
}

// settleRound credits payouts, feeds heuristics, publishes the settled
// event, records history, and parks the channel in the settled phase.
func (c *Channel) settleRound(st settlement) {
	c.cancelAllTimers()
	c.turn.stop()

	var totalEscrow, totalPayout int64
	for _, e := range st.escrows {
		totalEscrow += e
	}
	for _, p := range st.payouts {
		totalPayout += p
	}
	if c.cfg.Mode == ModePoker && totalPayout != st.pot {
		c.logger.Error().
			Int64("pot", st.pot).
			Int64("payouts", totalPayout).
			Msg("settlement does not conserve the pot")
		c.abortRound("settlement mismatch")
		return
	}

	// Balances before credits are the post-bet balances the tilt ratio is
	// defined against.
	preCredit := make(map[string]int64, len(st.escrows))
	for login := range st.escrows {
		preCredit[login] = c.funds.Balance(login)
	}

	for login, amount := range st.payouts {
		if amount > 0 {
			if err := c.funds.Credit(login, amount, c.roundRef("payout")); err != nil {
				c.logger.Error().Err(err).Str("login", login).Msg("payout failed")
			}
		}
	}

	balances := make(map[string]int64, len(st.escrows))
	heur := make(map[string]heuristics.Record, len(st.escrows))
	for login, escrow := range st.escrows {
		balances[login] = c.funds.Balance(login)
		if escrow == 0 {
			continue
		}
		payout := st.payouts[login]
		switch {
		case payout > escrow:
			c.tracker.RecordWin(login, escrow, preCredit[login])
		case payout < escrow:
			c.tracker.RecordLoss(login, escrow, preCredit[login])
		default:
			c.tracker.RecordPush(login)
		}
		heur[login] = c.tracker.Snapshot(login)
	}

	data := SettledData{
		Mode:       c.cfg.Mode,
		Round:      c.round,
		Payouts:    st.payouts,
		Balances:   balances,
		Dealer:     st.dealer,
		Community:  st.community,
		Reveals:    st.reveals,
		Winners:    st.winners,
		Pot:        st.pot,
		House:      totalEscrow - totalPayout,
		Heuristics: heur,
	}
	c.phase = PhaseSettled
	c.publish(Event{Kind: EvtSettled, Data: data})

	if c.rec != nil {
		c.rec.RecordRound(c.name, c.cfg.Mode, c.round, c.seed, data)
	}
	if c.obs != nil && c.binding != nil {
		c.obs.RoundSettled(*c.binding, balances)
	}

	// Cash players who can no longer cover the minimum wait out.
	if c.binding == nil {
		for _, s := range append([]*Seat(nil), c.seating.seats...) {
			if s.Bet > 0 && c.funds.Balance(s.Login) < c.cfg.MinBet {
				c.seating.remove(s.Login)
				c.seating.enqueue(s.Login)
			}
		}
	}

	c.logger.Info().
		Uint64("round", c.round).
		Int64("pot", st.pot).
		Int64("house", data.House).
		Strs("winners", st.winners).
		Msg("round settled")

	c.armPhase(c.cfg.SettleDelay)
}

// abortRound refunds all escrow and resets to idle. Other subscribers only
// see the aborted event.
func (c *Channel) abortRound(reason string) {
	c.cancelAllTimers()
	c.turn.stop()
	for _, s := range c.seating.seats {
		refund := s.Bet + s.Insurance
		if refund > 0 {
			if err := c.funds.Credit(s.Login, refund, c.roundRef("abort refund")); err != nil {
				c.logger.Error().Err(err).Str("login", s.Login).Msg("refund failed")
			}
		}
	}
	c.logger.Warn().Str("reason", reason).Msg("round aborted")
	c.publish(Event{Kind: EvtRoundAborted, Data: RoundAbortedData{Reason: reason}})
	c.resetRoundState()
	c.phase = PhaseIdle
	c.emitQueue()
}

// toIdle clears round state after the settle delay and reopens betting when
// configured to.
func (c *Channel) toIdle() {
	c.resetRoundState()
	c.phase = PhaseIdle
	c.emitQueue()
	if c.binding != nil {
		c.ready = make(map[string]bool)
		c.emitReady()
		return
	}
	if c.cfg.AutoReopen {
		if err := c.openBetting(); err != nil {
			c.logger.Error().Err(err).Msg("auto reopen failed")
		}
	}
}

func (c *Channel) resetRoundState() {
	for _, s := range c.seating.seats {
		s.resetRound()
	}
	c.dealer = nil
	c.community = nil
	c.currentBet = 0
	if c.cfg.Mode == ModePoker {
		c.deck = nil
	}
}

// ensureShoe keeps the blackjack shoe deep enough for the coming deal plus
// hits; a short shoe is replaced and reshuffled.
func (c *Channel) ensureShoe(need int) {
	if c.takeNextDeck() {
		return
	}
	const hitReserve = 24
	if c.deck == nil || c.deck.Remaining() < need+hitReserve {
		c.deck = cards.NewShoe(c.cfg.Decks)
		c.deck.Shuffle(c.rng)
		c.logger.Debug().Int("decks", c.cfg.Decks).Msg("fresh shoe")
	}
}

// takeNextDeck swaps in a scripted deck when one has been staged. Scenario
// tests stage exact deals through this.
func (c *Channel) takeNextDeck() bool {
	if c.nextDeck == nil {
		return false
	}
	c.deck = c.nextDeck
	c.nextDeck = nil
	return true
}

// draw takes the next card, aborting the round if the deck somehow runs dry.
func (c *Channel) draw() (cards.Card, bool) {
	card, err := c.deck.Draw()
	if err != nil {
		c.abortRound("deck exhausted")
		return cards.Card{}, false
	}
	return card, true
}

// escrow is the chips currently held by the round.
func (c *Channel) escrow() int64 {
	var sum int64
	for _, s := range c.seating.seats {
		sum += s.Bet + s.Insurance
	}
	return sum
}

func (c *Channel) roundRef(what string) string {
	return "ch:" + c.name + " round:" + strconv.FormatUint(c.round+1, 10) + " " + what
}

// publish stamps and emits an event. Order matches mutation order because
// only the loop goroutine calls this.
func (c *Channel) publish(ev Event) {
	c.seq++
	ev.Channel = c.name
	ev.Seq = c.seq
	ev.At = c.clock.Now()
	c.emitter(ev)
}

func (c *Channel) emitQueue() {
	bets := make(map[string]int64)
	for _, s := range c.seating.seats {
		if s.Bet > 0 {
			bets[s.Login] = s.Bet
		}
	}
	c.publish(Event{Kind: EvtQueueUpdate, Data: QueueUpdateData{
		Waiting:    append([]string(nil), c.seating.queue...),
		SeatCap:    c.seating.cap,
		Seated:     len(c.seating.seats),
		MinBet:     c.cfg.MinBet,
		MaxBet:     c.cfg.MaxBet,
		ActiveBets: bets,
	}})
}

func (c *Channel) emitHands(seat *Seat) {
	views := make([]HandView, 0, len(seat.Hands))
	for _, h := range seat.Hands {
		views = append(views, h.view())
	}
	c.publish(Event{Kind: EvtPlayerUpdate, Data: PlayerUpdateData{
		Login:   seat.Login,
		Hands:   views,
		Balance: ptr(c.funds.Balance(seat.Login)),
	}})
}

func (c *Channel) playerView(s *Seat, includeHands bool) PlayerView {
	v := PlayerView{
		Login:     s.Login,
		Seat:      c.seating.seatIndex(s.Login),
		Role:      s.Role,
		Bet:       s.Bet,
		Balance:   c.funds.Balance(s.Login),
		StreetBet: s.StreetBet,
		Folded:    s.Folded,
		AllIn:     s.AllIn,
	}
	if includeHands {
		for _, h := range s.Hands {
			v.Hands = append(v.Hands, h.view())
		}
	}
	return v
}

func (c *Channel) armBetting(d time.Duration) {
	c.timers[timerBetting].arm(c.clock, d, func(t tick) { c.enqueue(t) })
}

func (c *Channel) armTurn(d time.Duration) {
	c.timers[timerTurn].arm(c.clock, d, func(t tick) { c.enqueue(t) })
}

func (c *Channel) armPhase(d time.Duration) {
	c.timers[timerPhase].arm(c.clock, d, func(t tick) { c.enqueue(t) })
}

func (c *Channel) cancelTurn() {
	c.timers[timerTurn].cancel()
}

func (c *Channel) cancelAllTimers() {
	for k := range c.timers {
		c.timers[k].cancel()
	}
}

func ptr[T any](v T) *T { return &v }
