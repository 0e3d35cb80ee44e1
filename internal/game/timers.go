package game

import (
	"time"

	"github.com/coder/quartz"
)

// timerKind separates the three timer classes a channel may hold.
type timerKind int

const (
	timerBetting timerKind = iota
	timerTurn
	timerPhase
)

func (k timerKind) String() string {
	switch k {
	case timerBetting:
		return "betting"
	case timerTurn:
		return "turn"
	case timerPhase:
		return "phase"
	default:
		return "unknown"
	}
}

// tick is a timer expiry delivered through the channel inbox. The generation
// stamp lets the loop ignore ticks from timers that were since re-armed or
// cancelled.
type tick struct {
	kind timerKind
	gen  uint64
}

// timerSlot holds at most one armed timer of its kind. Arming always cancels
// the predecessor, so a channel can never hold two live betting, turn, or
// phase timers at once.
type timerSlot struct {
	kind  timerKind
	gen   uint64
	timer *quartz.Timer
}

// arm cancels any prior timer and schedules a tick after d. The enqueue
// function must deliver the tick to the channel inbox without blocking.
func (s *timerSlot) arm(clock quartz.Clock, d time.Duration, enqueue func(tick)) {
	s.cancel()
	s.gen++
	t := tick{kind: s.kind, gen: s.gen}
	s.timer = clock.AfterFunc(d, func() {
		enqueue(t)
	})
}

// cancel stops the armed timer, if any. Safe to call repeatedly.
func (s *timerSlot) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// live reports whether a delivered tick belongs to the currently armed timer.
// A consumed tick retires the slot.
func (s *timerSlot) live(t tick) bool {
	if t.gen != s.gen || s.timer == nil {
		return false
	}
	s.timer = nil
	return true
}
