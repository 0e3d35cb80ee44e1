package game

import (
	"github.com/lox/cardroom/internal/cards"
)

// ChannelView is an observer-safe snapshot of a channel. Poker hole cards
// never appear here; the dealer hole card appears only once the dealer has
// played.
type ChannelView struct {
	Name       string             `json:"name"`
	Mode       Mode               `json:"mode"`
	Phase      Phase              `json:"phase"`
	Round      uint64             `json:"round"`
	Players    []PlayerView       `json:"players,omitempty"`
	Waiting    []string           `json:"waiting,omitempty"`
	Dealer     []cards.Card       `json:"dealer,omitempty"`
	Community  []cards.Card       `json:"community,omitempty"`
	Pot        int64              `json:"pot"`
	CurrentBet int64              `json:"currentBet,omitempty"`
	Turn       string             `json:"turn,omitempty"`
	Binding    *TournamentBinding `json:"binding,omitempty"`
}

// view runs on the loop goroutine; every slice is copied out.
func (c *Channel) view() ChannelView {
	v := ChannelView{
		Name:       c.name,
		Mode:       c.cfg.Mode,
		Phase:      c.phase,
		Round:      c.round,
		Waiting:    append([]string(nil), c.seating.queue...),
		Community:  append([]cards.Card(nil), c.community...),
		Pot:        c.escrow(),
		CurrentBet: c.currentBet,
	}
	if login, ok := c.turn.current(); ok {
		v.Turn = login
	}
	switch {
	case len(c.dealer) == 0:
	case c.phase == PhaseShowdown || c.phase == PhaseSettled:
		v.Dealer = append([]cards.Card(nil), c.dealer...)
	default:
		v.Dealer = append([]cards.Card(nil), c.dealer[0])
	}
	for _, s := range c.seating.seats {
		v.Players = append(v.Players, c.playerView(s, c.cfg.Mode == ModeBlackjack))
	}
	if c.binding != nil {
		b := *c.binding
		b.Roster = append([]string(nil), c.binding.Roster...)
		v.Binding = &b
	}
	return v
}
