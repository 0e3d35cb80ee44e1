package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/heuristics"
)

// Deal order for one bettor: player card, dealer up card, player card,
// dealer hole card, then dealer draws. Stacks below follow it.

func TestBlackjackSinglePlayerRound(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.stack("Ks", "9c", "7d", "6h", "5s")
	h.advance(time.Second)

	started, ok := h.events.last(EvtRoundStarted)
	require.True(t, ok)
	data := started.Data.(RoundStartedData)
	require.NotNil(t, data.DealerUp)
	assert.Equal(t, "9c", data.DealerUp.Code())
	assert.Equal(t, int64(100), data.Pot)

	h.act("alice", CmdStand)

	// Dealer 15 draws the 5 to 20; alice's 17 loses.
	settled := h.settled()
	assert.Equal(t, int64(0), settled.Payouts["alice"])
	assert.Equal(t, int64(100), settled.House)
	assert.Empty(t, settled.Winners)
	assert.Equal(t, int64(900), h.funds.Balance("alice"))

	dealer, ok := h.events.last(EvtDealerUpdate)
	require.True(t, ok)
	assert.Equal(t, 20, dealer.Data.(DealerUpdateData).Total)

	betting, _ := h.events.last(EvtBettingStarted)
	assert.Less(t, betting.Seq, started.Seq)
}

func TestBlackjackSplit(t *testing.T) {
	h := newHarness(t, bjConfig(), 200)
	h.control(CmdOpenBetting)
	h.bet("alice", 50)
	h.stack("8h", "Ts", "8c", "8d", "3d", "Ks")
	h.advance(time.Second)

	h.act("alice", CmdSplit)
	assert.Equal(t, int64(100), h.funds.Balance("alice"))

	// First sub-hand drew the 3 for 11; stand it, then the second draws the
	// king for 18 against the dealer's 18.
	h.act("alice", CmdStand)
	h.act("alice", CmdStand)

	settled := h.settled()
	assert.Equal(t, int64(50), settled.Payouts["alice"])
	assert.Equal(t, int64(150), h.funds.Balance("alice"))
	assert.Empty(t, settled.Winners)
}

func TestBlackjackNaturalPaysThreeToTwo(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.stack("As", "9c", "Kd", "6h", "5s")
	h.advance(time.Second)

	// The natural resolves without a turn.
	settled := h.settled()
	assert.Equal(t, int64(250), settled.Payouts["alice"])
	assert.Equal(t, []string{"alice"}, settled.Winners)
	assert.Equal(t, int64(1150), h.funds.Balance("alice"))
}

func TestBlackjackInsurance(t *testing.T) {
	t.Run("pays two to one against a dealer natural", func(t *testing.T) {
		h := newHarness(t, bjConfig(), 1000)
		h.control(CmdOpenBetting)
		h.bet("alice", 100)
		h.stack("Ts", "Ah", "9d", "Kc")
		h.advance(time.Second)

		h.actAmount("alice", CmdInsurance, 50)
		assert.Equal(t, int64(850), h.funds.Balance("alice"))

		h.act("alice", CmdStand)

		// Hand loses to the natural; insurance returns three times the
		// premium, so the round is a wash.
		settled := h.settled()
		assert.Equal(t, int64(150), settled.Payouts["alice"])
		assert.Equal(t, int64(1000), h.funds.Balance("alice"))
	})

	t.Run("rejected when the up card is not an ace", func(t *testing.T) {
		h := newHarness(t, bjConfig(), 1000)
		h.control(CmdOpenBetting)
		h.bet("alice", 100)
		h.stack("Ts", "9c", "9d", "6h", "2s")
		h.advance(time.Second)

		h.actAmount("alice", CmdInsurance, 50)
		assert.Equal(t, "invalidAction", h.lastRejection().Reason)
		assert.Equal(t, int64(900), h.funds.Balance("alice"))
	})

	t.Run("premium capped at half the bet", func(t *testing.T) {
		h := newHarness(t, bjConfig(), 1000)
		h.control(CmdOpenBetting)
		h.bet("alice", 100)
		h.stack("Ts", "Ah", "9d", "8c", "2s")
		h.advance(time.Second)

		h.actAmount("alice", CmdInsurance, 60)
		assert.Equal(t, "invalidPayload", h.lastRejection().Reason)
	})
}

func TestBlackjackDouble(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.stack("5h", "9c", "6d", "8d", "Ts")
	h.advance(time.Second)

	h.act("alice", CmdDouble)

	// 11 doubled into the ten for 21 against the dealer's 17.
	settled := h.settled()
	assert.Equal(t, int64(400), settled.Payouts["alice"])
	assert.Equal(t, int64(1200), h.funds.Balance("alice"))
}

func TestBlackjackSurrender(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.stack("Ts", "9c", "6d", "9d")
	h.advance(time.Second)

	h.act("alice", CmdSurrender)

	settled := h.settled()
	assert.Equal(t, int64(50), settled.Payouts["alice"])
	assert.Equal(t, int64(950), h.funds.Balance("alice"))
}

func TestBlackjackBustEndsHand(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.stack("Ts", "9c", "6d", "8d", "9h")
	h.advance(time.Second)

	h.act("alice", CmdHit)

	// 25 busts; the dealer does not draw against a dead table.
	settled := h.settled()
	assert.Equal(t, int64(0), settled.Payouts["alice"])
	assert.Len(t, settled.Dealer, 2)
}

func TestBlackjackDealerBustPaysLiveHands(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.stack("Ts", "9c", "9d", "6h", "7c")
	h.advance(time.Second)

	h.act("alice", CmdStand)

	settled := h.settled()
	assert.Equal(t, int64(200), settled.Payouts["alice"])
	assert.Equal(t, int64(1100), h.funds.Balance("alice"))
}

func TestBlackjackDealerStandsOnSoftSeventeen(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.stack("Ts", "Ac", "8d", "6h")
	h.advance(time.Second)

	h.act("alice", CmdStand)

	settled := h.settled()
	require.Len(t, settled.Dealer, 2)
	assert.Equal(t, int64(200), settled.Payouts["alice"])
}

func TestBlackjackTurnOrderFollowsSeats(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.bet("bob", 100)
	// alice 8h 6d, bob 7s 9d, dealer Ts 8c: both play, dealer 18.
	h.stack("8h", "7s", "Ts", "6d", "9d", "8c")
	h.advance(time.Second)

	turns := func() []string {
		var out []string
		for _, ev := range h.events.filter(EvtPlayerUpdate) {
			data := ev.Data.(PlayerUpdateData)
			if data.Turn {
				out = append(out, data.Login)
			}
		}
		return out
	}

	require.Equal(t, []string{"alice"}, turns())
	h.act("bob", CmdStand)
	assert.Equal(t, "invalidAction", h.lastRejection().Reason)

	h.act("alice", CmdStand)
	require.Equal(t, []string{"alice", "bob"}, turns())
	h.act("bob", CmdStand)

	settled := h.settled()
	assert.Equal(t, int64(0), settled.Payouts["alice"])
	assert.Equal(t, int64(0), settled.Payouts["bob"])
}

func TestBlackjackTurnTimeoutAutoStands(t *testing.T) {
	tcfg := heuristics.DefaultConfig()
	tcfg.TurnBase = 12 * time.Second
	tcfg.TurnMax = 12 * time.Second
	h := newHarnessTracker(t, bjConfig(), 1000, tcfg)

	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.stack("Ks", "9c", "7d", "6h", "5s")
	h.advance(time.Second)
	require.Equal(t, PhaseAction, h.barrier().Phase)

	// No action inside the 12s turn: the hand auto-stands and the lapse is
	// recorded, shortening alice's next turn.
	h.advance(12 * time.Second)

	settled := h.settled()
	assert.Equal(t, int64(0), settled.Payouts["alice"])

	snap := h.tracker.Snapshot("alice")
	assert.Equal(t, 1, snap.Timeouts)
	assert.False(t, snap.AFK)
	assert.Less(t, h.tracker.TurnDuration("alice"), 12*time.Second)
}

func TestBlackjackAIPlaysItsSeat(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.actor.bet = 100
	h.actor.moves = []BlackjackMove{MoveHit, MoveStand}

	h.control(CmdAddBot)
	h.control(CmdOpenBetting)
	// Bot 9c 6d hits the 2s for 17 and stands; dealer Ts 8d stands on 18.
	h.stack("9c", "Ts", "6d", "8d", "2s")
	h.control(CmdStartNow)

	settled := h.settled()
	assert.Equal(t, int64(0), settled.Payouts["bot-basic"])
	assert.Equal(t, int64(900), h.funds.Balance("bot-basic"))

	snap := h.tracker.Snapshot("bot-basic")
	assert.Equal(t, -1, snap.Streak)
}

func TestBlackjackHeuristicsRideSettlement(t *testing.T) {
	h := newHarness(t, bjConfig(), 1000)
	h.control(CmdOpenBetting)
	h.bet("alice", 100)
	h.stack("Ks", "9c", "7d", "6h", "5s")
	h.advance(time.Second)
	h.act("alice", CmdStand)

	settled := h.settled()
	rec, ok := settled.Heuristics["alice"]
	require.True(t, ok)
	assert.Equal(t, -1, rec.Streak)
	assert.Greater(t, rec.Tilt, 0.0)
}
