package tui

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/lox/cardroom/internal/cards"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/server"
)

func frame(t *testing.T, kind string, data any) server.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return server.Envelope{
		Type:    kind,
		Channel: "casino",
		Data:    raw,
		TS:      time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func TestModelRendersEvents(t *testing.T) {
	m := NewModel("casino")

	m = apply(t, m, EventMsg{Env: frame(t, server.TypeWelcome, server.WelcomeData{Login: "alice", Role: game.RolePlayer})})
	require.Contains(t, m.status, "authenticated as alice")

	m = apply(t, m, EventMsg{Env: frame(t, server.TypeSubscribed, server.SubscribedData{
		Channel: "casino",
		View:    game.ChannelView{Name: "casino", Mode: game.ModeBlackjack, Phase: game.PhaseIdle},
	})})
	require.Contains(t, m.status, "watching #casino")
	require.Equal(t, "blackjack", m.mode)

	m = apply(t, m, EventMsg{Env: frame(t, string(game.EvtBettingStarted), game.BettingStartedData{
		MinBet: 10,
		MaxBet: 100,
		EndsAt: time.Date(2025, 6, 1, 12, 30, 30, 0, time.UTC),
	})})
	require.Len(t, m.lines, 1)
	require.Contains(t, m.View(), "betting open  min 10  max 100")

	m = apply(t, m, EventMsg{Env: frame(t, string(game.EvtSettled), game.SettledData{
		Round:   3,
		Winners: []string{"alice"},
		Pot:     60,
	})})
	require.Contains(t, m.View(), "round 3 settled  winners alice  pot 60")
}

func TestModelQuitKeys(t *testing.T) {
	m := NewModel("casino")

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd, "key %s should quit", key.String())
		require.IsType(t, tea.QuitMsg{}, cmd())
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	require.Nil(t, cmd)
}

func TestModelLogRing(t *testing.T) {
	m := NewModel("casino")
	for i := 0; i < maxLogLines+25; i++ {
		m = apply(t, m, EventMsg{Env: frame(t, string(game.EvtQueueUpdate), game.QueueUpdateData{Seated: i, SeatCap: 7})})
	}
	require.Len(t, m.lines, maxLogLines)
	require.Contains(t, m.lines[len(m.lines)-1], fmt.Sprintf("%d/7 seated", maxLogLines+24))
}

func TestModelDisconnect(t *testing.T) {
	m := NewModel("casino")
	m = apply(t, m, DisconnectedMsg{Err: fmt.Errorf("read tcp: use of closed network connection")})
	require.Equal(t, "disconnected", m.status)
	require.Contains(t, m.View(), "connection closed  q to quit")
}

func TestFormatPlayerUpdate(t *testing.T) {
	bet := int64(50)
	balance := int64(950)
	folded := true
	line := formatPlayerUpdate(game.PlayerUpdateData{
		Login:   "alice",
		Bet:     &bet,
		Balance: &balance,
	})
	require.Equal(t, "alice  bet 50  balance 950", line)

	line = formatPlayerUpdate(game.PlayerUpdateData{Login: "bob", Folded: &folded})
	require.Equal(t, "bob  folds", line)
}

func TestFormatSettledFallsBackToPayouts(t *testing.T) {
	line := formatSettled(game.SettledData{
		Round:   7,
		Payouts: map[string]int64{"carol": 40, "alice": 0, "bob": 20},
	})
	require.Equal(t, "round 7 settled  winners bob, carol", line)
}

func TestRenderCardsKeepsOrder(t *testing.T) {
	hand := []cards.Card{cards.MustParse("As"), cards.MustParse("Th")}
	out := renderCards(hand)
	require.Contains(t, out, "A♠")
	require.Contains(t, out, "T♥")
}
