package tournament

import (
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/ident"
	"github.com/lox/cardroom/internal/randutil"
	"github.com/lox/cardroom/internal/store"
)

// State is the tournament lifecycle.
type State string

const (
	StatePending  State = "pending"
	StateActive   State = "active"
	StateComplete State = "complete"
)

// Level is one step of the blind schedule. Blackjack tables read Big as the
// forced ante.
type Level struct {
	Small   int64 `json:"small"`
	Big     int64 `json:"big"`
	Seconds int   `json:"seconds"`
}

// Player is one entrant. Seat is the 1-indexed entry order and breaks chip
// ties; EliminatedRank is 0 while they are still in.
type Player struct {
	Login          string `json:"login"`
	Seat           int    `json:"seat"`
	Chips          int64  `json:"chips"`
	EliminatedRank int    `json:"eliminatedRank,omitempty"`
}

// Settings are the server-level defaults applied to new tournaments.
type Settings struct {
	TableSize     int
	StartingChips int64
	IncludeTies   bool
}

// DefaultSettings mirrors the shipped config defaults.
func DefaultSettings() Settings {
	return Settings{TableSize: 10, StartingChips: 5000, IncludeTies: true}
}

// View is the admin projection of one tournament.
type View struct {
	ID      string    `json:"id"`
	Mode    game.Mode `json:"mode"`
	State   State     `json:"state"`
	Round   int       `json:"round"`
	Level   int       `json:"level"`
	Blinds  Level     `json:"blinds"`
	Players []Player  `json:"players"`
	Tables  []string  `json:"tables,omitempty"`
}

type tournament struct {
	id          string
	mode        game.Mode
	state       State
	starting    int64
	tableSize   int
	includeTies bool
	cutoffs     []int
	levels      []Level
	levelIdx    int
	levelGen    int
	round       int
	players     map[string]*Player
	order       []string
	book        *StackBook
	tables      []string
	timer       *quartz.Timer
	advancing   bool
}

func (t *tournament) level() Level {
	return t.levels[t.levelIdx]
}

// alive returns still-in players in seat order.
func (t *tournament) alive() []*Player {
	out := make([]*Player, 0, len(t.order))
	for _, login := range t.order {
		if p := t.players[login]; p.EliminatedRank == 0 {
			out = append(out, p)
		}
	}
	return out
}

// tableName derives the channel identifier for one bracket table. Identifiers
// stay within [a-z0-9_-] because tournament IDs are lowercase base32.
func tableName(tournamentID string, round, table int) string {
	return fmt.Sprintf("t-%s-r%d-table-%d", tournamentID, round, table)
}

// Deps are the controller's collaborators. Store may be nil for ephemeral
// play; ChannelConfig seeds every table channel it creates.
type Deps struct {
	Logger        zerolog.Logger
	Clock         quartz.Clock
	Store         *store.Store
	Settings      Settings
	ChannelConfig game.Config
	Seed          int64
}

// Controller runs multi-table tournaments on top of the arena: it brackets
// entrants into bound channels, drives the blind clock, observes settlements
// and advances survivors between rounds. It implements both
// game.SettlementObserver and game.StackResolver.
//
// The controller never calls into a channel while holding its own mutex;
// channel work is collected under the lock and performed after release, in
// identifier order. That keeps it deadlock-free against channel loops that
// call back into StackFunds and RoundSettled.
type Controller struct {
	logger   zerolog.Logger
	clock    quartz.Clock
	store    *store.Store
	settings Settings
	baseCfg  game.Config
	ids      *ident.Generator

	mu    sync.Mutex
	rng   *rand.Rand
	ts    map[string]*tournament
	arena *game.Arena
}

// New builds a controller. AttachArena must be called before any bracket is
// generated.
func New(deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	def := DefaultSettings()
	if deps.Settings.TableSize <= 0 {
		deps.Settings.TableSize = def.TableSize
	}
	if deps.Settings.StartingChips <= 0 {
		deps.Settings.StartingChips = def.StartingChips
	}
	seed := deps.Seed
	if seed == 0 {
		seed = randutil.CryptoSeed()
	}
	return &Controller{
		logger:   deps.Logger.With().Str("component", "tournament").Logger(),
		clock:    deps.Clock,
		store:    deps.Store,
		settings: deps.Settings,
		baseCfg:  deps.ChannelConfig,
		ids:      ident.NewGenerator(nil),
		rng:      randutil.New(seed),
		ts:       make(map[string]*tournament),
	}
}

// AttachArena wires the channel registry after construction; the arena needs
// the controller as its observer, so the two cannot be built in one shot.
func (c *Controller) AttachArena(a *game.Arena) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arena = a
}

// Create registers a tournament in state pending and persists its blind
// schedule. Zero startingChips or tableSize fall back to the server defaults.
func (c *Controller) Create(mode game.Mode, startingChips int64, tableSize int, cutoffs []int, levels []Level) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("%w: mode %q", game.ErrInvalidPayload, mode)
	}
	if startingChips <= 0 {
		startingChips = c.settings.StartingChips
	}
	if tableSize <= 0 {
		tableSize = c.settings.TableSize
	}
	if tableSize < 2 || tableSize > mode.SeatCap() {
		return "", fmt.Errorf("%w: table size %d for %s", game.ErrInvalidPayload, tableSize, mode)
	}
	if len(levels) == 0 {
		return "", fmt.Errorf("%w: empty blind schedule", game.ErrInvalidPayload)
	}
	for i, lvl := range levels {
		if lvl.Small <= 0 || lvl.Big < lvl.Small || lvl.Seconds <= 0 {
			return "", fmt.Errorf("%w: blind level %d", game.ErrInvalidPayload, i)
		}
	}
	if len(cutoffs) == 0 || cutoffs[len(cutoffs)-1] != 0 {
		return "", fmt.Errorf("%w: cutoffs must end at 0", game.ErrInvalidPayload)
	}
	for i := 0; i < len(cutoffs)-1; i++ {
		if cutoffs[i] < 2 {
			return "", fmt.Errorf("%w: cutoff %d must advance at least 2", game.ErrInvalidPayload, i)
		}
		if i > 0 && cutoffs[i] >= cutoffs[i-1] {
			return "", fmt.Errorf("%w: cutoffs must decrease", game.ErrInvalidPayload)
		}
	}

	id := c.ids.New()
	t := &tournament{
		id:          id,
		mode:        mode,
		state:       StatePending,
		starting:    startingChips,
		tableSize:   tableSize,
		includeTies: c.settings.IncludeTies,
		cutoffs:     append([]int(nil), cutoffs...),
		levels:      append([]Level(nil), levels...),
		players:     make(map[string]*Player),
		book:        newStackBook(id),
	}

	c.mu.Lock()
	c.ts[id] = t
	c.mu.Unlock()

	if c.store != nil {
		rows := make([]store.BlindLevelRow, len(levels))
		for i, lvl := range levels {
			rows[i] = store.BlindLevelRow{Level: i, Small: lvl.Small, Big: lvl.Big, Seconds: lvl.Seconds}
		}
		err := c.store.SaveTournament(store.TournamentRow{
			ID:            id,
			Game:          string(mode),
			State:         string(StatePending),
			StartingChips: startingChips,
			TableSize:     tableSize,
			Cutoffs:       t.cutoffs,
		}, rows)
		if err != nil {
			c.logger.Error().Err(err).Str("tournament", id).Msg("store write failed")
		}
	}

	c.logger.Info().
		Str("tournament", id).
		Str("mode", string(mode)).
		Int64("chips", startingChips).
		Ints("cutoffs", cutoffs).
		Int("levels", len(levels)).
		Msg("tournament created")
	return id, nil
}

// AddPlayer enters a login while the tournament is pending. Seats are handed
// out in entry order, 1-indexed.
func (c *Controller) AddPlayer(id, login string) (int, error) {
	if login == "" {
		return 0, fmt.Errorf("%w: empty login", game.ErrInvalidPayload)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.ts[id]
	if !ok {
		return 0, fmt.Errorf("%w: tournament %s", game.ErrTournamentMisbound, id)
	}
	if t.state != StatePending {
		return 0, fmt.Errorf("%w: tournament is %s", game.ErrOutOfPhase, t.state)
	}
	if _, exists := t.players[login]; exists {
		return 0, fmt.Errorf("%w: %s already entered", game.ErrInvalidPayload, login)
	}

	seat := len(t.order) + 1
	t.players[login] = &Player{Login: login, Seat: seat, Chips: t.starting}
	t.order = append(t.order, login)
	t.book.set(login, t.starting)
	c.persistPlayer(t, t.players[login])

	c.logger.Info().Str("tournament", id).Str("login", login).Int("seat", seat).Msg("player entered")
	return seat, nil
}

// GenerateBracket shuffles the entrants into round-1 tables, persists the
// seat rows and binds one channel per table. Calling it again while pending
// re-rolls the draw.
func (c *Controller) GenerateBracket(id string) ([]string, error) {
	c.mu.Lock()
	t, ok := c.ts[id]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: tournament %s", game.ErrTournamentMisbound, id)
	}
	if t.state != StatePending {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: tournament is %s", game.ErrOutOfPhase, t.state)
	}
	if c.arena == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("tournament: no arena attached")
	}
	if len(t.order) < 2 {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: need at least 2 players", game.ErrInvalidAction)
	}

	released := t.tables
	t.round = 1
	bindings := c.bracket(t, t.alive())
	c.mu.Unlock()

	c.releaseTables(released)
	c.bindTables(t.mode, bindings)

	names := make([]string, len(bindings))
	for i, b := range bindings {
		names[i] = tableName(id, b.Round, b.Table)
	}
	return names, nil
}

// bracket shuffles players into tables for t.round, records the assignment
// and returns the bindings to apply. Caller holds the lock.
func (c *Controller) bracket(t *tournament, roster []*Player) []game.TournamentBinding {
	shuffled := append([]*Player(nil), roster...)
	c.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	lvl := t.level()
	var (
		bindings []game.TournamentBinding
		seats    []store.BracketSeatRow
		tables   []string
	)
	for start := 0; start < len(shuffled); start += t.tableSize {
		end := start + t.tableSize
		if end > len(shuffled) {
			end = len(shuffled)
		}
		tableNo := len(bindings) + 1
		roster := make([]string, 0, end-start)
		for seatNo, p := range shuffled[start:end] {
			roster = append(roster, p.Login)
			seats = append(seats, store.BracketSeatRow{
				Round: t.round,
				Table: tableNo,
				Seat:  seatNo + 1,
				Login: p.Login,
			})
		}
		bindings = append(bindings, game.TournamentBinding{
			TournamentID: t.id,
			Round:        t.round,
			Table:        tableNo,
			SmallBlind:   lvl.Small,
			BigBlind:     lvl.Big,
			Roster:       roster,
		})
		tables = append(tables, tableName(t.id, t.round, tableNo))
	}
	t.tables = tables

	if c.store != nil {
		if err := c.store.ReplaceBracket(t.id, t.round, seats); err != nil {
			c.logger.Error().Err(err).Str("tournament", t.id).Msg("store write failed")
		}
	}

	c.logger.Info().
		Str("tournament", t.id).
		Int("round", t.round).
		Int("tables", len(tables)).
		Int("players", len(shuffled)).
		Msg("bracket generated")
	return bindings
}

// bindTables creates the channels for a round and binds them. Must be called
// without the lock; the bind command makes the channel call back into
// StackFunds.
func (c *Controller) bindTables(mode game.Mode, bindings []game.TournamentBinding) {
	for _, b := range bindings {
		name := tableName(b.TournamentID, b.Round, b.Table)
		cfg := c.baseCfg
		cfg.Mode = mode
		cfg.BetCooldown = 0
		cfg.AutoReopen = false
		cfg.Seed = 0

		ch, err := c.arena.Ensure(name, cfg)
		if err != nil {
			c.logger.Error().Err(err).Str("channel", name).Msg("table create failed")
			continue
		}
		bind := b
		if !ch.Submit(game.Command{
			Channel: name,
			Actor:   "tournament",
			Role:    game.RoleAdmin,
			Kind:    game.CmdBindTournamentTable,
			Bind:    &bind,
		}) {
			c.logger.Error().Str("channel", name).Msg("table bind dropped")
		}
	}
}

// releaseTables tears down channels in identifier order.
func (c *Controller) releaseTables(names []string) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		c.arena.Release(name)
	}
}

// Start moves a bracketed tournament to active and arms the blind clock for
// the first level. Level changes are announced when the clock fires.
func (c *Controller) Start(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.ts[id]
	if !ok {
		return fmt.Errorf("%w: tournament %s", game.ErrTournamentMisbound, id)
	}
	if t.state != StatePending {
		return fmt.Errorf("%w: tournament is %s", game.ErrOutOfPhase, t.state)
	}
	if len(t.tables) == 0 {
		return fmt.Errorf("%w: bracket not generated", game.ErrInvalidAction)
	}

	t.state = StateActive
	c.persistState(t)
	c.armLevelClock(t)

	c.logger.Info().Str("tournament", id).Int("tables", len(t.tables)).Msg("tournament started")
	return nil
}

// armLevelClock schedules the current level's expiry. Caller holds the lock.
func (c *Controller) armLevelClock(t *tournament) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.levelGen++
	gen := t.levelGen
	id := t.id
	t.timer = c.clock.AfterFunc(time.Duration(t.level().Seconds)*time.Second, func() {
		c.levelExpired(id, gen)
	})
}

// levelExpired advances the blind schedule. Stale generations (a timer that
// fired while being replaced) are ignored.
func (c *Controller) levelExpired(id string, gen int) {
	c.mu.Lock()
	t, ok := c.ts[id]
	if !ok || t.state != StateActive || gen != t.levelGen {
		c.mu.Unlock()
		return
	}
	if t.levelIdx+1 >= len(t.levels) {
		t.timer = nil
		c.mu.Unlock()
		c.logger.Info().Str("tournament", id).Msg("blind schedule exhausted")
		return
	}

	t.levelIdx++
	lvl := t.level()
	data := game.TournamentLevelData{
		TournamentID: id,
		Level:        t.levelIdx,
		SmallBlind:   lvl.Small,
		BigBlind:     lvl.Big,
		Seconds:      lvl.Seconds,
	}
	tables := append([]string(nil), t.tables...)
	c.persistState(t)
	c.armLevelClock(t)
	c.mu.Unlock()

	c.logger.Info().
		Str("tournament", id).
		Int("level", data.Level).
		Int64("small", lvl.Small).
		Int64("big", lvl.Big).
		Msg("blind level up")
	sort.Strings(tables)
	for _, name := range tables {
		if ch, ok := c.arena.Get(name); ok {
			ch.AnnounceLevel(data)
		}
	}
}

// RoundSettled records stacks after a bound table settles. It runs on the
// channel's loop goroutine, so it only updates books and rows, never channels.
func (c *Controller) RoundSettled(binding game.TournamentBinding, balances map[string]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.ts[binding.TournamentID]
	if !ok || t.state != StateActive || binding.Round != t.round {
		c.logger.Warn().
			Str("tournament", binding.TournamentID).
			Int("round", binding.Round).
			Msg("settlement for unknown or stale round")
		return
	}

	for login, chips := range balances {
		p, ok := t.players[login]
		if !ok || p.EliminatedRank != 0 {
			continue
		}
		p.Chips = chips
		c.persistPlayer(t, p)
	}
	c.logger.Debug().
		Str("tournament", t.id).
		Int("round", t.round).
		Int("table", binding.Table).
		Msg("table settled")
}

// AdvanceRound closes the current round: ranks everyone by ending chips,
// eliminates the non-advancers and either brackets the survivors into the
// next round or completes the tournament when the cutoff is 0.
//
// The round's tables are torn down before ranking. A hand still in flight
// aborts with refunds on release, so the ranking always sees whole stacks.
func (c *Controller) AdvanceRound(id string) error {
	c.mu.Lock()
	t, ok := c.ts[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: tournament %s", game.ErrTournamentMisbound, id)
	}
	if t.state != StateActive || t.round < 1 || t.round > len(t.cutoffs) {
		c.mu.Unlock()
		return fmt.Errorf("%w: tournament is %s", game.ErrOutOfPhase, t.state)
	}
	if t.advancing {
		c.mu.Unlock()
		return fmt.Errorf("%w: advance already in progress", game.ErrOutOfPhase)
	}
	t.advancing = true
	released := t.tables
	t.tables = nil
	c.mu.Unlock()

	c.releaseTables(released)

	c.mu.Lock()
	t.advancing = false
	stacks := t.book.snapshot()
	ranked := t.alive()
	for _, p := range ranked {
		p.Chips = stacks[p.Login]
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Chips != ranked[j].Chips {
			return ranked[i].Chips > ranked[j].Chips
		}
		return ranked[i].Seat < ranked[j].Seat
	})

	cutoff := t.cutoffs[t.round-1]
	if cutoff == 0 || len(ranked) <= 1 {
		winner := c.completeLocked(t, ranked)
		c.mu.Unlock()

		c.logger.Info().
			Str("tournament", id).
			Str("winner", winner).
			Int("players", len(ranked)).
			Msg("tournament complete")
		return nil
	}

	adv := cutoff
	if adv > len(ranked) {
		adv = len(ranked)
	}
	if t.includeTies {
		// Ties at the cutoff stack advance too, up to the next round's
		// capacity. The ranked slice breaks ties by seat, so capping drops
		// the highest tied seats first.
		threshold := ranked[adv-1].Chips
		for adv < len(ranked) && ranked[adv].Chips == threshold {
			adv++
		}
		capacity := ((cutoff + t.tableSize - 1) / t.tableSize) * t.tableSize
		if adv > capacity {
			adv = capacity
		}
	}

	results := make([]store.RoundResultRow, 0, len(ranked))
	for i, p := range ranked {
		advanced := i < adv
		if !advanced {
			p.EliminatedRank = i + 1
			c.persistPlayer(t, p)
		}
		results = append(results, store.RoundResultRow{
			Round:    t.round,
			Login:    p.Login,
			ChipsEnd: p.Chips,
			Rank:     i + 1,
			Advanced: advanced,
		})
	}
	c.persistResults(t, results)

	closed := t.round
	t.round++
	bindings := c.bracket(t, ranked[:adv])
	c.persistState(t)
	c.mu.Unlock()

	c.logger.Info().
		Str("tournament", id).
		Int("round", closed).
		Int("advanced", adv).
		Int("eliminated", len(ranked)-adv).
		Msg("round advanced")
	c.bindTables(t.mode, bindings)
	return nil
}

// completeLocked finishes the final round: every remaining player takes a
// final rank by ending chips. Caller holds the lock; the round's tables are
// already gone.
func (c *Controller) completeLocked(t *tournament, ranked []*Player) (winner string) {
	results := make([]store.RoundResultRow, 0, len(ranked))
	for i, p := range ranked {
		p.EliminatedRank = i + 1
		c.persistPlayer(t, p)
		results = append(results, store.RoundResultRow{
			Round:    t.round,
			Login:    p.Login,
			ChipsEnd: p.Chips,
			Rank:     i + 1,
			Advanced: false,
		})
	}
	c.persistResults(t, results)

	t.state = StateComplete
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	c.persistState(t)

	if len(ranked) > 0 {
		winner = ranked[0].Login
	}
	return winner
}

// StackFunds resolves the funding source for a binding. Channels call this
// while handling bindTournamentTable.
func (c *Controller) StackFunds(tournamentID string) (game.Funds, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.ts[tournamentID]
	if !ok {
		return nil, false
	}
	return t.book, true
}

// Snapshot returns the admin view of one tournament.
func (c *Controller) Snapshot(id string) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.ts[id]
	if !ok {
		return View{}, false
	}
	return c.viewLocked(t), true
}

// List snapshots every tournament, newest first by identifier.
func (c *Controller) List() []View {
	c.mu.Lock()
	defer c.mu.Unlock()

	views := make([]View, 0, len(c.ts))
	for _, t := range c.ts {
		views = append(views, c.viewLocked(t))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID > views[j].ID })
	return views
}

func (c *Controller) viewLocked(t *tournament) View {
	stacks := t.book.snapshot()
	players := make([]Player, 0, len(t.order))
	for _, login := range t.order {
		p := *t.players[login]
		if p.EliminatedRank == 0 {
			p.Chips = stacks[login]
		}
		players = append(players, p)
	}
	return View{
		ID:      t.id,
		Mode:    t.mode,
		State:   t.state,
		Round:   t.round,
		Level:   t.levelIdx,
		Blinds:  t.level(),
		Players: players,
		Tables:  append([]string(nil), t.tables...),
	}
}

// Resume rebuilds pending and active tournaments from the store after a
// restart. Active rounds get their tables recreated from the stored bracket
// and the blind clock re-armed for a full level; mid-level clock position is
// not persisted.
func (c *Controller) Resume() error {
	if c.store == nil {
		return nil
	}
	rows, err := c.store.Tournaments()
	if err != nil {
		return fmt.Errorf("failed to load tournaments: %w", err)
	}

	for _, row := range rows {
		if State(row.State) == StateComplete {
			continue
		}
		if err := c.resumeOne(row); err != nil {
			c.logger.Error().Err(err).Str("tournament", row.ID).Msg("resume failed")
		}
	}
	return nil
}

func (c *Controller) resumeOne(row store.TournamentRow) error {
	_, levelRows, err := c.store.Tournament(row.ID)
	if err != nil {
		return err
	}
	playerRows, err := c.store.TournamentPlayers(row.ID)
	if err != nil {
		return err
	}

	levels := make([]Level, len(levelRows))
	for i, lvl := range levelRows {
		levels[i] = Level{Small: lvl.Small, Big: lvl.Big, Seconds: lvl.Seconds}
	}
	if len(levels) == 0 {
		return fmt.Errorf("tournament %s has no blind schedule", row.ID)
	}

	t := &tournament{
		id:          row.ID,
		mode:        game.Mode(row.Game),
		state:       State(row.State),
		starting:    row.StartingChips,
		tableSize:   row.TableSize,
		includeTies: c.settings.IncludeTies,
		cutoffs:     row.Cutoffs,
		levels:      levels,
		levelIdx:    row.CurrentLevel,
		round:       row.CurrentRound,
		players:     make(map[string]*Player),
		book:        newStackBook(row.ID),
	}
	if t.levelIdx >= len(levels) {
		t.levelIdx = len(levels) - 1
	}
	for _, p := range playerRows {
		t.players[p.Login] = &Player{Login: p.Login, Seat: p.Seat, Chips: p.Chips, EliminatedRank: p.EliminatedRank}
		t.order = append(t.order, p.Login)
		t.book.set(p.Login, p.Chips)
	}

	var bindings []game.TournamentBinding
	if t.state == StateActive && t.round >= 1 {
		seats, err := c.store.Bracket(row.ID, t.round)
		if err != nil {
			return err
		}
		lvl := t.level()
		byTable := make(map[int][]string)
		var tableNos []int
		for _, seat := range seats {
			if _, ok := byTable[seat.Table]; !ok {
				tableNos = append(tableNos, seat.Table)
			}
			byTable[seat.Table] = append(byTable[seat.Table], seat.Login)
		}
		sort.Ints(tableNos)
		for _, no := range tableNos {
			bindings = append(bindings, game.TournamentBinding{
				TournamentID: t.id,
				Round:        t.round,
				Table:        no,
				SmallBlind:   lvl.Small,
				BigBlind:     lvl.Big,
				Roster:       byTable[no],
			})
			t.tables = append(t.tables, tableName(t.id, t.round, no))
		}
	}

	c.mu.Lock()
	c.ts[t.id] = t
	if t.state == StateActive {
		c.armLevelClock(t)
	}
	c.mu.Unlock()

	c.bindTables(t.mode, bindings)
	c.logger.Info().
		Str("tournament", t.id).
		Str("state", string(t.state)).
		Int("round", t.round).
		Int("players", len(t.players)).
		Msg("tournament resumed")
	return nil
}

// Shutdown stops every blind clock. Channels are torn down by the arena.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.ts {
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
	}
}

// persistPlayer mirrors one player row. Caller holds the lock.
func (c *Controller) persistPlayer(t *tournament, p *Player) {
	if c.store == nil {
		return
	}
	if err := c.store.UpsertTournamentPlayer(t.id, p.Login, p.Seat, p.Chips, p.EliminatedRank); err != nil {
		c.logger.Error().Err(err).Str("tournament", t.id).Str("login", p.Login).Msg("store write failed")
	}
}

// persistResults mirrors a round's results. Caller holds the lock.
func (c *Controller) persistResults(t *tournament, results []store.RoundResultRow) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveRoundResults(t.id, results); err != nil {
		c.logger.Error().Err(err).Str("tournament", t.id).Msg("store write failed")
	}
}

// persistState mirrors state, level and round. Caller holds the lock.
func (c *Controller) persistState(t *tournament) {
	if c.store == nil {
		return
	}
	if err := c.store.SetTournamentState(t.id, string(t.state), t.levelIdx, t.round); err != nil {
		c.logger.Error().Err(err).Str("tournament", t.id).Msg("store write failed")
	}
}
