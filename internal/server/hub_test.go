package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/auth"
	"github.com/lox/cardroom/internal/game"
)

// newTestSession builds a session with no connection behind it. The hub only
// touches the send and done channels, so frames can be read straight off send.
func newTestSession(id string, buffer int) *Session {
	return &Session{
		id:   id,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func recvFrame(t *testing.T, s *Session) Envelope {
	t.Helper()
	select {
	case payload := <-s.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(payload, &env))
		return env
	default:
		t.Fatalf("session %s: no frame queued", s.ID())
		return Envelope{}
	}
}

func requireNoFrame(t *testing.T, s *Session) {
	t.Helper()
	select {
	case payload := <-s.send:
		t.Fatalf("session %s: unexpected frame %s", s.ID(), payload)
	default:
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop(), NewMetrics())
	a := newTestSession("a", 8)
	b := newTestSession("b", 8)
	c := newTestSession("c", 8)
	hub.Subscribe(a, "casino")
	hub.Subscribe(b, "casino")
	hub.Subscribe(c, "elsewhere")

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hub.Publish(game.Event{
		Channel: "casino",
		Seq:     7,
		Kind:    game.EvtQueueUpdate,
		At:      at,
		Data:    game.QueueUpdateData{Waiting: []string{"alice"}, SeatCap: 7, MinBet: 10, MaxBet: 100},
	})

	for _, s := range []*Session{a, b} {
		env := recvFrame(t, s)
		assert.Equal(t, "queueUpdate", env.Type)
		assert.Equal(t, "casino", env.Channel)
		assert.Equal(t, uint64(7), env.Seq)
		assert.True(t, env.TS.Equal(at))

		var data game.QueueUpdateData
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, []string{"alice"}, data.Waiting)
	}
	requireNoFrame(t, c)
}

func TestHubTargetedEvent(t *testing.T) {
	hub := NewHub(zerolog.Nop(), NewMetrics())
	alice := newTestSession("s1", 8)
	alice.setIdentity(auth.Identity{Login: "alice", Role: game.RolePlayer})
	bob := newTestSession("s2", 8)
	bob.setIdentity(auth.Identity{Login: "bob", Role: game.RolePlayer})
	spectator := newTestSession("s3", 8)
	for _, s := range []*Session{alice, bob, spectator} {
		hub.Subscribe(s, "casino")
	}

	hub.Publish(game.Event{
		Channel: "casino",
		Kind:    game.EvtRejected,
		To:      "alice",
		Data:    game.RejectedData{Kind: game.CmdHit, Reason: "outOfPhase"},
	})

	env := recvFrame(t, alice)
	assert.Equal(t, "rejected", env.Type)
	requireNoFrame(t, bob)
	requireNoFrame(t, spectator)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	metrics := NewMetrics()
	hub := NewHub(zerolog.Nop(), metrics)
	slow := newTestSession("slow", 1)
	hub.Subscribe(slow, "casino")

	for i := 0; i < 3; i++ {
		hub.Publish(game.Event{Channel: "casino", Kind: game.EvtQueueUpdate, Seq: uint64(i)})
	}

	// The first frame fit; the other two were dropped, not queued.
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.EventsDropped))
	env := recvFrame(t, slow)
	assert.Equal(t, uint64(0), env.Seq)
	requireNoFrame(t, slow)
}

func TestHubSubscriptionBookkeeping(t *testing.T) {
	metrics := NewMetrics()
	hub := NewHub(zerolog.Nop(), metrics)
	a := newTestSession("a", 1)
	b := newTestSession("b", 1)

	hub.Subscribe(a, "casino")
	hub.Subscribe(a, "casino") // idempotent
	hub.Subscribe(a, "lounge")
	hub.Subscribe(b, "casino")

	assert.Equal(t, 2, hub.Subscribers("casino"))
	assert.Equal(t, map[string]int{"casino": 2, "lounge": 1}, hub.Counts())
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.Subscribers))

	hub.Unsubscribe(b, "casino")
	assert.Equal(t, 1, hub.Subscribers("casino"))

	hub.DropSession(a)
	assert.Equal(t, 0, hub.Subscribers("casino"))
	assert.Empty(t, hub.Counts())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Subscribers))
}

func TestHubRoundMetrics(t *testing.T) {
	metrics := NewMetrics()
	hub := NewHub(zerolog.Nop(), metrics)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hub.Publish(game.Event{Channel: "casino", Kind: game.EvtRoundStarted, At: start})
	hub.Publish(game.Event{
		Channel: "casino",
		Kind:    game.EvtSettled,
		At:      start.Add(42 * time.Second),
		Data:    game.SettledData{Mode: game.ModePoker, Round: 1},
	})

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RoundsSettled.WithLabelValues("poker")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.RoundsSettled.WithLabelValues("blackjack")))
}
