package game

import (
	"github.com/lox/cardroom/internal/cards"
)

// BlackjackMove is an AI blackjack decision.
type BlackjackMove CommandKind

const (
	MoveHit       = BlackjackMove(CmdHit)
	MoveStand     = BlackjackMove(CmdStand)
	MoveDouble    = BlackjackMove(CmdDouble)
	MoveSplit     = BlackjackMove(CmdSplit)
	MoveSurrender = BlackjackMove(CmdSurrender)
)

// PokerMove is an AI poker decision. Amount is the raise-to total and is
// ignored for the other kinds.
type PokerMove struct {
	Kind   CommandKind
	Amount int64
}

// BlackjackTurnView is the read-only projection an AI sees on its blackjack
// turn.
type BlackjackTurnView struct {
	Hand     []cards.Card
	Total    int
	Soft     bool
	DealerUp cards.Card
	Bet      int64
	Balance  int64

	CanDouble    bool
	CanSplit     bool
	CanSurrender bool
}

// PokerTurnView is the read-only projection an AI sees on its poker turn.
type PokerTurnView struct {
	Hole       []cards.Card
	Community  []cards.Card
	Pot        int64
	CurrentBet int64
	StreetBet  int64
	Stack      int64
	MinBet     int64
	MaxBet     int64
	Opponents  int
}

// BetView is what an AI sees when a betting window opens.
type BetView struct {
	Mode    Mode
	MinBet  int64
	MaxBet  int64
	Balance int64
}

// Actor decides for an AI-seated login. Decisions are synchronous; the
// channel applies them through the same legality gate as human commands, so
// an illegal decision is simply rejected and the seat auto-stands or folds.
type Actor interface {
	// Bet returns the wager when a betting window opens; 0 sits out.
	Bet(view BetView) int64

	// Blackjack returns the move for the active blackjack hand.
	Blackjack(view BlackjackTurnView) BlackjackMove

	// Poker returns the move for the active poker turn.
	Poker(view PokerTurnView) PokerMove
}
