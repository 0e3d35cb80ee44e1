package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/ai"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/wallet"
)

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	logger := zerolog.Nop()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	funds, err := wallet.New(logger, nil, cfg.Server.DefaultBalance)
	require.NoError(t, err)
	metrics := NewMetrics()
	hub := NewHub(logger, metrics)
	arena := game.NewArena(game.Deps{
		Logger:  logger,
		Funds:   funds,
		Emitter: hub.Publish,
		Bots:    ai.Factory(logger),
	})
	t.Cleanup(arena.Shutdown)

	return NewServer(Deps{
		Logger:  logger,
		Config:  cfg,
		Arena:   arena,
		Auth:    stubAuthorizer{},
		Hub:     hub,
		Metrics: metrics,
	})
}

func startTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := newTestServer(t, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, env *Envelope) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(env))
}

// wsAwait reads frames until one of the wanted type arrives. Interleaved
// events for other subscribers are skipped.
func wsAwait(t *testing.T, conn *websocket.Conn, msgType string) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %s", msgType)
		if env.Type == msgType {
			return env
		}
	}
}

func wsAuth(t *testing.T, conn *websocket.Conn, token string) {
	t.Helper()
	raw, err := json.Marshal(AuthData{Token: token})
	require.NoError(t, err)
	wsSend(t, conn, &Envelope{Type: TypeAuth, Data: raw})
	wsAwait(t, conn, TypeWelcome)
}

func wsSubscribe(t *testing.T, conn *websocket.Conn, channel, mode string) {
	t.Helper()
	env := &Envelope{Type: TypeSubscribe, Channel: channel}
	if mode != "" {
		raw, err := json.Marshal(SubscribeData{Mode: mode})
		require.NoError(t, err)
		env.Data = raw
	}
	wsSend(t, conn, env)
	wsAwait(t, conn, TypeSubscribed)
}

func TestWebSocketSession(t *testing.T) {
	_, ts := startTestServer(t)

	host := dialWS(t, ts)
	wsAuth(t, host, "host:admin")
	wsSubscribe(t, host, "casino", "blackjack")

	alice := dialWS(t, ts)
	wsAuth(t, alice, "alice")
	wsSubscribe(t, alice, "casino", "")

	wsSend(t, host, &Envelope{Type: string(game.CmdOpenBetting), Channel: "casino"})
	wsAwait(t, alice, "bettingStarted")

	raw, err := json.Marshal(CommandData{Amount: 25})
	require.NoError(t, err)
	wsSend(t, alice, &Envelope{Type: string(game.CmdPlaceBet), Channel: "casino", Data: raw})

	env := wsAwait(t, alice, "playerUpdate")
	assert.Equal(t, "casino", env.Channel)
	var update game.PlayerUpdateData
	require.NoError(t, json.Unmarshal(env.Data, &update))
	assert.Equal(t, "alice", update.Login)
	require.NotNil(t, update.Bet)
	assert.Equal(t, int64(25), *update.Bet)
	require.NotNil(t, update.Balance)
	assert.Equal(t, int64(975), *update.Balance)
}

func TestWebSocketMalformedFrame(t *testing.T) {
	_, ts := startTestServer(t)

	conn := dialWS(t, ts)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	env := wsAwait(t, conn, TypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(env.Data, &errData))
	assert.Equal(t, "invalidPayload", errData.Code)
}

func TestWebSocketSessionCount(t *testing.T) {
	srv, ts := startTestServer(t)

	a := dialWS(t, ts)
	_ = dialWS(t, ts)
	require.Eventually(t, func() bool { return srv.SessionCount() == 2 }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := newTestServer(t, func(cfg *Config) {
		cfg.Server.Addr = "127.0.0.1:0"
		cfg.Server.AdminAddr = "127.0.0.1:0"
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
