package heuristics

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TurnMin = 3 * time.Second
	cfg.TurnBase = 12 * time.Second
	cfg.TurnMax = 20 * time.Second
	return cfg
}

func TestStreakWindow(t *testing.T) {
	tr := NewTracker(testConfig(), quartz.NewMock(t))

	for i := 0; i < 12; i++ {
		tr.RecordWin("alice", 10, 90)
	}
	assert.Equal(t, 10, tr.Snapshot("alice").Streak, "streak counts only the windowed outcomes")

	for i := 0; i < 4; i++ {
		tr.RecordLoss("alice", 10, 90)
	}
	// Window now holds 6 wins and 4 losses.
	assert.Equal(t, 2, tr.Snapshot("alice").Streak)
	assert.Equal(t, 16, tr.Snapshot("alice").Rounds)
}

func TestTiltAdjustments(t *testing.T) {
	tr := NewTracker(testConfig(), quartz.NewMock(t))

	// Losing half of worth raises tilt by the bet ratio.
	tr.RecordLoss("bob", 100, 100)
	assert.InDelta(t, 0.5, tr.Snapshot("bob").Tilt, 1e-9)

	// Winning the same stake only recovers half of that.
	tr.RecordWin("bob", 100, 100)
	assert.InDelta(t, 0.25, tr.Snapshot("bob").Tilt, 1e-9)
}

func TestTiltStaysBounded(t *testing.T) {
	tr := NewTracker(testConfig(), quartz.NewMock(t))

	for i := 0; i < 20; i++ {
		tr.RecordLoss("carol", 100, 0) // ratio 1.0 every time
	}
	assert.InDelta(t, 3.0, tr.Snapshot("carol").Tilt, 1e-9)

	for i := 0; i < 40; i++ {
		tr.RecordWin("carol", 100, 0)
	}
	assert.InDelta(t, -3.0, tr.Snapshot("carol").Tilt, 1e-9)
}

func TestPushOnlyCountsRounds(t *testing.T) {
	tr := NewTracker(testConfig(), quartz.NewMock(t))

	tr.RecordPush("dave")
	snap := tr.Snapshot("dave")
	assert.Equal(t, 1, snap.Rounds)
	assert.Equal(t, 0, snap.Streak)
	assert.Zero(t, snap.Tilt)
}

func TestClampBet(t *testing.T) {
	tr := NewTracker(testConfig(), quartz.NewMock(t))

	// Push tilt to the cap.
	for i := 0; i < 5; i++ {
		tr.RecordLoss("eve", 100, 0)
	}
	assert.Equal(t, int64(100), tr.ClampBet("eve", 500, 400), "tilting player limited to a quarter of available")
	assert.Equal(t, int64(50), tr.ClampBet("eve", 50, 400), "requests under the limit pass through")

	// A calm player is never clamped.
	tr.RecordWin("frank", 10, 990)
	assert.Equal(t, int64(500), tr.ClampBet("frank", 500, 400))
	assert.Equal(t, int64(500), tr.ClampBet("unknown", 500, 400))
}

func TestTurnDurationShaping(t *testing.T) {
	mock := quartz.NewMock(t)
	tr := NewTracker(testConfig(), mock)

	assert.Equal(t, 20*time.Second, tr.TurnDuration("gina"), "unknown players get the full turn")

	tr.RecordWin("gina", 10, 90)
	assert.Equal(t, 20*time.Second, tr.TurnDuration("gina"), "no recent timeouts keeps the full turn")

	tr.RecordTimeout("gina")
	assert.Equal(t, 9*time.Second, tr.TurnDuration("gina"), "one timeout steps down from the base")
	assert.False(t, tr.Snapshot("gina").AFK)

	tr.RecordTimeout("gina")
	assert.Equal(t, 6*time.Second, tr.TurnDuration("gina"))

	tr.RecordTimeout("gina")
	assert.Equal(t, 3*time.Second, tr.TurnDuration("gina"), "at the threshold the floor applies")
	assert.True(t, tr.Snapshot("gina").AFK)
}

func TestTimeoutsAgeOut(t *testing.T) {
	mock := quartz.NewMock(t)
	tr := NewTracker(testConfig(), mock)

	tr.RecordTimeout("hank")
	tr.RecordTimeout("hank")
	tr.RecordTimeout("hank")
	assert.True(t, tr.Snapshot("hank").AFK)

	mock.Advance(11 * time.Minute)
	snap := tr.Snapshot("hank")
	assert.False(t, snap.AFK, "timeouts outside the window no longer count")
	assert.Equal(t, 0, snap.Timeouts)
	assert.Equal(t, 20*time.Second, tr.TurnDuration("hank"))
}

func TestClearTimeouts(t *testing.T) {
	tr := NewTracker(testConfig(), quartz.NewMock(t))

	tr.RecordTimeout("iris")
	tr.RecordTimeout("iris")
	assert.Equal(t, 2, tr.Snapshot("iris").Timeouts)

	tr.ClearTimeouts("iris")
	assert.Equal(t, 0, tr.Snapshot("iris").Timeouts)
	assert.Equal(t, 20*time.Second, tr.TurnDuration("iris"))
}

func TestForget(t *testing.T) {
	tr := NewTracker(testConfig(), quartz.NewMock(t))

	tr.RecordLoss("jack", 50, 50)
	tr.Forget("jack")
	snap := tr.Snapshot("jack")
	assert.Zero(t, snap.Tilt)
	assert.Equal(t, 0, snap.Rounds)
}
