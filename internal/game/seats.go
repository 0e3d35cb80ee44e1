package game

import (
	"github.com/lox/cardroom/internal/cards"
)

// Hand is one blackjack hand. A split seat plays two of these in order.
type Hand struct {
	Cards      []cards.Card
	Bet        int64
	Stood      bool
	Busted     bool
	Doubled    bool
	Surrender  bool
	FromSplit  bool
}

// Resolved reports whether the hand needs no further player action.
func (h *Hand) Resolved() bool {
	return h.Stood || h.Busted || h.Surrender || h.Natural()
}

// Natural is a dealt two-card 21. Split hands can total 21 with two cards
// but never count as naturals.
func (h *Hand) Natural() bool {
	return !h.FromSplit && cards.IsNatural(h.Cards)
}

func (h *Hand) total() cards.HandTotal {
	return cards.BlackjackValue(h.Cards)
}

func (h *Hand) view() HandView {
	t := h.total()
	return HandView{
		Cards:     h.Cards,
		Total:     t.Total,
		Soft:      t.Soft,
		Bet:       h.Bet,
		Stood:     h.Stood,
		Busted:    h.Busted,
		Doubled:   h.Doubled,
		Surrender: h.Surrender,
		Natural:   h.Natural(),
	}
}

// Seat is one occupied position. Blackjack uses Hands/ActiveHand/Insurance;
// poker uses Hole/StreetBet/Folded/AllIn/acted. Bet is the total escrowed
// this round for either mode.
type Seat struct {
	Login string
	Role  Role
	Bet   int64

	Hands      []*Hand
	ActiveHand int
	Insurance  int64

	Hole      []cards.Card
	StreetBet int64
	Folded    bool
	AllIn     bool
	acted     bool
}

// resetRound clears per-round state but keeps the seat occupied.
func (s *Seat) resetRound() {
	s.Bet = 0
	s.Hands = nil
	s.ActiveHand = 0
	s.Insurance = 0
	s.Hole = nil
	s.StreetBet = 0
	s.Folded = false
	s.AllIn = false
	s.acted = false
}

// activeHand returns the blackjack hand awaiting action, or nil when every
// hand is resolved.
func (s *Seat) activeHand() *Hand {
	for s.ActiveHand < len(s.Hands) {
		h := s.Hands[s.ActiveHand]
		if !h.Resolved() {
			return h
		}
		s.ActiveHand++
	}
	return nil
}

// seating is the ordered seat list plus the arrival-ordered waiting queue.
type seating struct {
	seats []*Seat
	queue []string
	cap   int
}

func newSeating(cap int) *seating {
	return &seating{cap: cap}
}

func (t *seating) find(login string) *Seat {
	for _, s := range t.seats {
		if s.Login == login {
			return s
		}
	}
	return nil
}

func (t *seating) seatIndex(login string) int {
	for i, s := range t.seats {
		if s.Login == login {
			return i
		}
	}
	return -1
}

// add seats the login if a seat is free, otherwise appends to the queue once.
// Returns the seat, or nil with ErrTableFull after queueing.
func (t *seating) add(login string, role Role) (*Seat, error) {
	if s := t.find(login); s != nil {
		return s, nil
	}
	if len(t.seats) >= t.cap {
		t.enqueue(login)
		return nil, ErrTableFull
	}
	s := &Seat{Login: login, Role: role}
	t.seats = append(t.seats, s)
	return s, nil
}

func (t *seating) enqueue(login string) {
	for _, q := range t.queue {
		if q == login {
			return
		}
	}
	t.queue = append(t.queue, login)
}

// promoteQueued moves a queued login to the front of the line.
func (t *seating) promoteQueued(login string) {
	for i, q := range t.queue {
		if q == login {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			break
		}
	}
	t.queue = append([]string{login}, t.queue...)
}

// dequeue pops the head of the waiting queue.
func (t *seating) dequeue() (string, bool) {
	if len(t.queue) == 0 {
		return "", false
	}
	login := t.queue[0]
	t.queue = t.queue[1:]
	return login, true
}

// remove vacates a seat. Round state for the login is discarded.
func (t *seating) remove(login string) bool {
	for i, s := range t.seats {
		if s.Login == login {
			t.seats = append(t.seats[:i], t.seats[i+1:]...)
			return true
		}
	}
	for i, q := range t.queue {
		if q == login {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (t *seating) free() int {
	return t.cap - len(t.seats)
}

// bettors returns seats with a live bet, in seat order.
func (t *seating) bettors() []*Seat {
	var out []*Seat
	for _, s := range t.seats {
		if s.Bet > 0 {
			out = append(out, s)
		}
	}
	return out
}
