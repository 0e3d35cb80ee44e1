package server

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterEnforcesLimit(t *testing.T) {
	mock := quartz.NewMock(t)
	rl := NewRateLimiter(mock, 3, time.Second)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("alice", "placeBet"), "hit %d", i)
	}
	assert.False(t, rl.Allow("alice", "placeBet"))

	// Other actors and other kinds count separately.
	assert.True(t, rl.Allow("bob", "placeBet"))
	assert.True(t, rl.Allow("alice", "hit"))
}

func TestRateLimiterSlidesWindow(t *testing.T) {
	mock := quartz.NewMock(t)
	rl := NewRateLimiter(mock, 2, time.Second)

	assert.True(t, rl.Allow("alice", "raise"))
	mock.Advance(600 * time.Millisecond)
	assert.True(t, rl.Allow("alice", "raise"))
	assert.False(t, rl.Allow("alice", "raise"))

	// The first hit ages out; the second is still inside the window.
	mock.Advance(600 * time.Millisecond)
	assert.True(t, rl.Allow("alice", "raise"))
	assert.False(t, rl.Allow("alice", "raise"))

	mock.Advance(2 * time.Second)
	assert.True(t, rl.Allow("alice", "raise"))
}

func TestRateLimiterRejectionsDoNotExtend(t *testing.T) {
	mock := quartz.NewMock(t)
	rl := NewRateLimiter(mock, 1, time.Second)

	assert.True(t, rl.Allow("alice", "subscribe"))
	for i := 0; i < 10; i++ {
		assert.False(t, rl.Allow("alice", "subscribe"))
	}

	// Rejected attempts are not recorded, so the window opens on schedule.
	mock.Advance(time.Second + time.Millisecond)
	assert.True(t, rl.Allow("alice", "subscribe"))
}

func TestRateLimiterForget(t *testing.T) {
	mock := quartz.NewMock(t)
	rl := NewRateLimiter(mock, 1, time.Minute)

	assert.True(t, rl.Allow("alice", "placeBet"))
	assert.True(t, rl.Allow("alice", "hit"))
	assert.False(t, rl.Allow("alice", "placeBet"))

	rl.Forget("alice")
	assert.True(t, rl.Allow("alice", "placeBet"))
	assert.True(t, rl.Allow("alice", "hit"))
}
