package heuristics

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// Config tunes streak, tilt, and turn-duration shaping. Zero values are
// replaced by the defaults so config files only override what they need.
type Config struct {
	// StreakWindow is the number of recent round outcomes kept per player.
	StreakWindow int

	// TiltMin and TiltMax bound the tilt score.
	TiltMin float64
	TiltMax float64

	// TiltClampAt is the tilt score at which bet clamping switches on, and
	// TiltClamp the fraction of available balance a clamped bet may reach.
	TiltClampAt float64
	TiltClamp   float64

	// TimeoutWindow is how far back turn timeouts count; AFKThreshold is how
	// many inside the window mark a player away.
	TimeoutWindow time.Duration
	AFKThreshold  int

	// TurnMin, TurnBase, and TurnMax bound blackjack turn durations.
	TurnMin  time.Duration
	TurnBase time.Duration
	TurnMax  time.Duration
}

// DefaultConfig returns the standard shaping parameters.
func DefaultConfig() Config {
	return Config{
		StreakWindow:  10,
		TiltMin:       -3,
		TiltMax:       3,
		TiltClampAt:   2,
		TiltClamp:     0.25,
		TimeoutWindow: 10 * time.Minute,
		AFKThreshold:  3,
		TurnMin:       4 * time.Second,
		TurnBase:      12 * time.Second,
		TurnMax:       20 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StreakWindow <= 0 {
		c.StreakWindow = d.StreakWindow
	}
	if c.TiltMin == 0 && c.TiltMax == 0 {
		c.TiltMin, c.TiltMax = d.TiltMin, d.TiltMax
	}
	if c.TiltClampAt == 0 {
		c.TiltClampAt = d.TiltClampAt
	}
	if c.TiltClamp == 0 {
		c.TiltClamp = d.TiltClamp
	}
	if c.TimeoutWindow <= 0 {
		c.TimeoutWindow = d.TimeoutWindow
	}
	if c.AFKThreshold <= 0 {
		c.AFKThreshold = d.AFKThreshold
	}
	if c.TurnMin <= 0 {
		c.TurnMin = d.TurnMin
	}
	if c.TurnBase <= 0 {
		c.TurnBase = d.TurnBase
	}
	if c.TurnMax <= 0 {
		c.TurnMax = d.TurnMax
	}
	return c
}

// Record is a point-in-time view of a player's heuristic state, exported on
// player update events and the admin stats endpoint.
type Record struct {
	Login    string  `json:"login"`
	Streak   int     `json:"streak"`
	Tilt     float64 `json:"tilt"`
	AFK      bool    `json:"afk"`
	Rounds   int     `json:"rounds"`
	Timeouts int     `json:"timeouts"`
}

type playerRecord struct {
	outcomes []int
	tilt     float64
	timeouts []time.Time
	rounds   int
}

// Tracker accumulates per-login outcome streaks, tilt, and turn timeouts and
// turns them into turn durations and bet clamps. All methods are safe for
// concurrent use; channels on the same server share one tracker so a player's
// reputation follows them between tables.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	clock   quartz.Clock
	records map[string]*playerRecord
}

// NewTracker builds a tracker with the given shaping config.
func NewTracker(cfg Config, clock quartz.Clock) *Tracker {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Tracker{
		cfg:     cfg.withDefaults(),
		clock:   clock,
		records: make(map[string]*playerRecord),
	}
}

func (t *Tracker) record(login string) *playerRecord {
	rec, ok := t.records[login]
	if !ok {
		rec = &playerRecord{}
		t.records[login] = rec
	}
	return rec
}

func (t *Tracker) push(rec *playerRecord, outcome int) {
	rec.outcomes = append(rec.outcomes, outcome)
	if excess := len(rec.outcomes) - t.cfg.StreakWindow; excess > 0 {
		rec.outcomes = rec.outcomes[excess:]
	}
}

func (t *Tracker) clampTilt(v float64) float64 {
	if v < t.cfg.TiltMin {
		return t.cfg.TiltMin
	}
	if v > t.cfg.TiltMax {
		return t.cfg.TiltMax
	}
	return v
}

// betRatio is the share of pre-round worth the player put at risk.
func betRatio(bet, postBetBalance int64) float64 {
	if bet <= 0 || bet+postBetBalance <= 0 {
		return 0
	}
	return float64(bet) / float64(bet+postBetBalance)
}

// RecordWin logs a won round. Winning calms tilt at half the rate losing
// raises it.
func (t *Tracker) RecordWin(login string, bet, postBetBalance int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.record(login)
	t.push(rec, 1)
	rec.tilt = t.clampTilt(rec.tilt - 0.5*betRatio(bet, postBetBalance))
	rec.rounds++
}

// RecordLoss logs a lost round and raises tilt by the bet ratio.
func (t *Tracker) RecordLoss(login string, bet, postBetBalance int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.record(login)
	t.push(rec, -1)
	rec.tilt = t.clampTilt(rec.tilt + betRatio(bet, postBetBalance))
	rec.rounds++
}

// RecordPush logs a tied round. Pushes count toward rounds played but carry
// no streak or tilt signal.
func (t *Tracker) RecordPush(login string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(login).rounds++
}

// RecordTimeout logs a turn that expired without an action.
func (t *Tracker) RecordTimeout(login string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := t.record(login)
	rec.timeouts = append(t.liveTimeouts(rec), t.clock.Now())
}

// ClearTimeouts wipes the timeout history. Called when a player acts
// voluntarily, so one lapse does not shadow them for the whole window.
func (t *Tracker) ClearTimeouts(login string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[login]; ok {
		rec.timeouts = nil
	}
}

// liveTimeouts drops timestamps older than the window. Caller holds the lock.
func (t *Tracker) liveTimeouts(rec *playerRecord) []time.Time {
	cutoff := t.clock.Now().Add(-t.cfg.TimeoutWindow)
	live := rec.timeouts[:0]
	for _, ts := range rec.timeouts {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}
	rec.timeouts = live
	return live
}

// TurnDuration shapes a blackjack turn for the player: away players get the
// floor, players with no recent timeouts get the ceiling, and each recent
// timeout walks the duration from the base toward the floor.
func (t *Tracker) TurnDuration(login string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[login]
	if !ok {
		return t.cfg.TurnMax
	}
	timeouts := len(t.liveTimeouts(rec))
	switch {
	case timeouts >= t.cfg.AFKThreshold:
		return t.cfg.TurnMin
	case timeouts > 0:
		step := (t.cfg.TurnBase - t.cfg.TurnMin) / time.Duration(t.cfg.AFKThreshold)
		d := t.cfg.TurnBase - step*time.Duration(timeouts)
		if d < t.cfg.TurnMin {
			d = t.cfg.TurnMin
		}
		return d
	default:
		return t.cfg.TurnMax
	}
}

// ClampBet limits a requested blackjack bet while the player is tilting.
func (t *Tracker) ClampBet(login string, requested, available int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[login]
	if !ok || rec.tilt < t.cfg.TiltClampAt {
		return requested
	}
	limit := int64(t.cfg.TiltClamp * float64(available))
	if requested > limit {
		return limit
	}
	return requested
}

// Snapshot returns the player's current heuristic view.
func (t *Tracker) Snapshot(login string) Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[login]
	if !ok {
		return Record{Login: login}
	}
	streak := 0
	for _, o := range rec.outcomes {
		streak += o
	}
	timeouts := len(t.liveTimeouts(rec))
	return Record{
		Login:    login,
		Streak:   streak,
		Tilt:     rec.tilt,
		AFK:      timeouts >= t.cfg.AFKThreshold,
		Rounds:   rec.rounds,
		Timeouts: timeouts,
	}
}

// Forget drops a player's record entirely.
func (t *Tracker) Forget(login string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, login)
}
