package game

import (
	"time"

	"github.com/lox/cardroom/internal/cards"
	"github.com/lox/cardroom/internal/heuristics"
)

// EventKind names every event the core emits.
type EventKind string

const (
	EvtBettingStarted  EventKind = "bettingStarted"
	EvtRoundStarted    EventKind = "roundStarted"
	EvtPlayerUpdate    EventKind = "playerUpdate"
	EvtPokerBetting    EventKind = "pokerBetting"
	EvtDealerUpdate    EventKind = "dealerUpdate"
	EvtSettled         EventKind = "settled"
	EvtQueueUpdate     EventKind = "queueUpdate"
	EvtReadyStatus     EventKind = "readyStatus"
	EvtTournamentLevel EventKind = "tournamentLevel"
	EvtRoundAborted    EventKind = "roundAborted"
	EvtRejected        EventKind = "rejected"
)

// Event is the envelope published to channel subscribers. Seq increases by
// one per event within a channel, in mutation order. To restricts delivery to
// a single login (hole cards, rejections); empty means broadcast.
type Event struct {
	Channel string    `json:"channel"`
	Seq     uint64    `json:"seq"`
	Kind    EventKind `json:"kind"`
	At      time.Time `json:"ts"`
	To      string    `json:"-"`
	Data    any       `json:"data"`
}

// Emitter receives every event a channel publishes. Implementations must not
// block; the fan-out drops slow subscribers rather than stall the loop.
type Emitter func(Event)

// HandView is one blackjack hand as subscribers see it.
type HandView struct {
	Cards     []cards.Card `json:"cards"`
	Total     int          `json:"total"`
	Soft      bool         `json:"soft,omitempty"`
	Bet       int64        `json:"bet"`
	Stood     bool         `json:"stood,omitempty"`
	Busted    bool         `json:"busted,omitempty"`
	Doubled   bool         `json:"doubled,omitempty"`
	Surrender bool         `json:"surrendered,omitempty"`
	Natural   bool         `json:"natural,omitempty"`
}

// PlayerView is the per-seat projection included in round events. Poker hole
// cards appear only in targeted events and at showdown.
type PlayerView struct {
	Login     string       `json:"login"`
	Seat      int          `json:"seat"`
	Role      Role         `json:"role"`
	Bet       int64        `json:"bet"`
	Balance   int64        `json:"balance"`
	Hands     []HandView   `json:"hands,omitempty"`
	Hole      []cards.Card `json:"hole,omitempty"`
	StreetBet int64        `json:"streetBet,omitempty"`
	Folded    bool         `json:"folded,omitempty"`
	AllIn     bool         `json:"allIn,omitempty"`
}

// BettingStartedData announces an open betting window.
type BettingStartedData struct {
	Mode     Mode          `json:"mode"`
	Duration time.Duration `json:"durationMs"`
	EndsAt   time.Time     `json:"endsAt"`
	MinBet   int64         `json:"minBet"`
	MaxBet   int64         `json:"maxBet"`
}

// RoundStartedData announces the deal.
type RoundStartedData struct {
	Mode         Mode         `json:"mode"`
	Round        uint64       `json:"round"`
	DealerUp     *cards.Card  `json:"dealerUp,omitempty"`
	Players      []PlayerView `json:"players"`
	Community    []cards.Card `json:"community,omitempty"`
	Pot          int64        `json:"pot"`
	CurrentBet   int64        `json:"currentBet,omitempty"`
	Turn         string       `json:"turn,omitempty"`
	ActionEndsAt time.Time    `json:"actionEndsAt,omitempty"`
}

// PlayerUpdateData carries the fields that changed for one player. Pointer
// fields are omitted when unchanged. Heuristic fields ride along after
// settlements.
type PlayerUpdateData struct {
	Login   string       `json:"login"`
	Bet     *int64       `json:"bet,omitempty"`
	Balance *int64       `json:"balance,omitempty"`
	Folded  *bool        `json:"folded,omitempty"`
	AllIn   *bool        `json:"allIn,omitempty"`
	Hands   []HandView   `json:"hands,omitempty"`
	Hole    []cards.Card `json:"hole,omitempty"`
	Turn    bool         `json:"turn,omitempty"`
	Streak  *int         `json:"streak,omitempty"`
	Tilt    *float64     `json:"tilt,omitempty"`
	AFK     *bool        `json:"afk,omitempty"`
}

// PokerBettingData is emitted after every poker action, once pot and acted
// set are consistent.
type PokerBettingData struct {
	Phase      string           `json:"phase"`
	Pot        int64            `json:"pot"`
	CurrentBet int64            `json:"currentBet"`
	StreetBets map[string]int64 `json:"streetBets"`
	Community  []cards.Card     `json:"community,omitempty"`
	Turn       string           `json:"turn,omitempty"`
}

// DealerUpdateData reveals the dealer hand during auto-play.
type DealerUpdateData struct {
	Hand  []cards.Card `json:"hand"`
	Total int          `json:"total"`
	Soft  bool         `json:"soft,omitempty"`
}

// SettledData closes a round. Payouts include every participant, zero for
// losers; House is the blackjack margin and stays zero for poker.
type SettledData struct {
	Mode       Mode                         `json:"mode"`
	Round      uint64                       `json:"round"`
	Payouts    map[string]int64             `json:"payouts"`
	Balances   map[string]int64             `json:"balances"`
	Dealer     []cards.Card                 `json:"dealer,omitempty"`
	Community  []cards.Card                 `json:"community,omitempty"`
	Reveals    map[string][]cards.Card      `json:"reveals,omitempty"`
	Winners    []string                     `json:"winners,omitempty"`
	Pot        int64                        `json:"pot,omitempty"`
	House      int64                        `json:"house,omitempty"`
	Heuristics map[string]heuristics.Record `json:"heuristics,omitempty"`
}

// QueueUpdateData reports the waiting line and table limits.
type QueueUpdateData struct {
	Waiting    []string         `json:"waiting"`
	SeatCap    int              `json:"seatCap"`
	Seated     int              `json:"seated"`
	MinBet     int64            `json:"minBet"`
	MaxBet     int64            `json:"maxBet"`
	ActiveBets map[string]int64 `json:"activeBets,omitempty"`
}

// ReadyStatusData tracks tournament table readiness.
type ReadyStatusData struct {
	Ready    []string `json:"ready"`
	Required []string `json:"required"`
	AllReady bool     `json:"allReady"`
}

// TournamentLevelData announces a blind level change.
type TournamentLevelData struct {
	TournamentID string `json:"id"`
	Level        int    `json:"level"`
	SmallBlind   int64  `json:"smallBlind"`
	BigBlind     int64  `json:"bigBlind"`
	Seconds      int    `json:"seconds"`
}

// RoundAbortedData is the only signal other subscribers get when a round is
// torn down after an internal fault; everyone was refunded.
type RoundAbortedData struct {
	Reason string `json:"reason"`
}

// RejectedData is delivered only to the offending actor.
type RejectedData struct {
	Kind   CommandKind `json:"kind"`
	Reason string      `json:"reason"`
}
