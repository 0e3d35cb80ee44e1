package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/auth"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/history"
	"github.com/lox/cardroom/internal/store"
	"github.com/lox/cardroom/internal/wallet"
)

type adminHarness struct {
	t       *testing.T
	ts      *httptest.Server
	arena   *game.Arena
	hub     *Hub
	history *history.Manager
	roles   *auth.Directory
}

func newAdminHarness(t *testing.T, secret string) *adminHarness {
	t.Helper()
	logger := zerolog.Nop()
	clock := quartz.NewMock(t)

	funds, err := wallet.New(logger, nil, 1000)
	require.NoError(t, err)
	metrics := NewMetrics()
	hub := NewHub(logger, metrics)
	arena := game.NewArena(game.Deps{
		Logger:  logger,
		Clock:   clock,
		Funds:   funds,
		Emitter: hub.Publish,
	})
	t.Cleanup(arena.Shutdown)

	hist := history.New(logger, nil, history.Config{Clock: clock})
	roles, err := auth.NewDirectory(logger, nil, nil)
	require.NoError(t, err)

	api := NewAdminAPI(AdminDeps{
		Logger:  logger,
		Arena:   arena,
		Hub:     hub,
		History: hist,
		Roles:   roles,
		Metrics: metrics,
		Secret:  secret,
	})
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)

	return &adminHarness{t: t, ts: ts, arena: arena, hub: hub, history: hist, roles: roles}
}

func (h *adminHarness) get(path, secret string) *http.Response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.ts.URL+path, nil)
	require.NoError(h.t, err)
	if secret != "" {
		req.Header.Set("X-Admin-Secret", secret)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestAdminHealthAndMetrics(t *testing.T) {
	h := newAdminHarness(t, "")

	resp := h.get("/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.get("/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "cardroom_events_dropped_total")
	assert.Contains(t, buf.String(), "cardroom_active_channels")
}

func TestAdminSecretGuard(t *testing.T) {
	h := newAdminHarness(t, "hunter2")

	assert.Equal(t, http.StatusForbidden, h.get("/admin/channels", "").StatusCode)
	assert.Equal(t, http.StatusForbidden, h.get("/admin/channels", "wrong").StatusCode)
	assert.Equal(t, http.StatusOK, h.get("/admin/channels", "hunter2").StatusCode)

	// Health and metrics stay open for probes and scrapers.
	assert.Equal(t, http.StatusOK, h.get("/healthz", "").StatusCode)
	assert.Equal(t, http.StatusOK, h.get("/metrics", "").StatusCode)
}

func TestAdminChannelsAndStats(t *testing.T) {
	h := newAdminHarness(t, "")
	_, err := h.arena.Ensure("casino", game.DefaultConfig(game.ModeBlackjack))
	require.NoError(t, err)
	h.hub.Subscribe(newTestSession("watcher", 8), "casino")

	resp := h.get("/admin/channels", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var views []game.ChannelView
	decodeBody(t, resp, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "casino", views[0].Name)
	assert.Equal(t, game.ModeBlackjack, views[0].Mode)

	resp = h.get("/admin/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats StatsResponse
	decodeBody(t, resp, &stats)
	assert.Equal(t, 1, stats.Channels)
	assert.Equal(t, map[string]int{"casino": 1}, stats.Subscribers)
	assert.Empty(t, stats.Tournaments)
}

func TestAdminHistory(t *testing.T) {
	h := newAdminHarness(t, "")
	h.history.RecordRound("casino", game.ModeBlackjack, 3, 42, game.SettledData{
		Mode:    game.ModeBlackjack,
		Round:   3,
		Payouts: map[string]int64{"alice": 100},
	})

	resp := h.get("/admin/history?channel=casino", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var records []store.RoundRecord
	decodeBody(t, resp, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "casino", records[0].Channel)
	assert.Equal(t, int64(3), records[0].RoundNo)

	resp = h.get("/admin/history?channel=quiet-table", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records = nil
	decodeBody(t, resp, &records)
	assert.Empty(t, records)

	assert.Equal(t, http.StatusBadRequest, h.get("/admin/history?channel=Not+Valid", "").StatusCode)
}

func TestAdminRole(t *testing.T) {
	h := newAdminHarness(t, "")

	post := func(body string) *http.Response {
		resp, err := http.Post(h.ts.URL+"/admin/role", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := post(`{"login":"Bob","role":"streamer"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	identity, err := h.roles.Authorize(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, game.RoleStreamer, identity.Role)

	assert.Equal(t, http.StatusBadRequest, post(`{"login":"bob","role":"king"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`{"login":"no spaces","role":"admin"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).StatusCode)

	getResp := h.get("/admin/role", "")
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}
