// Package tui renders a channel's live event stream for the watch command.
// It speaks the same envelope format the server emits and stays read-only;
// commands go through a real client, not this viewer.
package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/cardroom/internal/cards"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/server"
)

const maxLogLines = 500

// EventMsg delivers one server frame to the model.
type EventMsg struct {
	Env server.Envelope
}

// DisconnectedMsg reports that the read loop ended.
type DisconnectedMsg struct {
	Err error
}

// Model is the bubbletea model for the watch view.
type Model struct {
	channel string
	mode    string
	status  string
	lines   []string
	width   int
	height  int
	closed  bool
}

// NewModel creates a watch model for a channel.
func NewModel(channel string) Model {
	return Model{
		channel: channel,
		status:  "connecting...",
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case EventMsg:
		m.apply(msg.Env)
	case DisconnectedMsg:
		m.closed = true
		m.status = "disconnected"
		if msg.Err != nil {
			m.push(ErrorStyle.Render(fmt.Sprintf("connection closed: %v", msg.Err)))
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	title := fmt.Sprintf(" cardroom  #%s", m.channel)
	if m.mode != "" {
		title += fmt.Sprintf("  %s", m.mode)
	}
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(title+" ") + "\n")
	b.WriteString(StatusStyle.Render(m.status) + "\n\n")

	visible := m.lines
	if m.height > 0 {
		avail := m.height - 4
		if avail < 1 {
			avail = 1
		}
		if len(visible) > avail {
			visible = visible[len(visible)-avail:]
		}
	}
	for _, line := range visible {
		b.WriteString(line + "\n")
	}
	footer := "q to quit"
	if m.closed {
		footer = "connection closed  " + footer
	}
	b.WriteString(StatusStyle.Render(footer))
	return b.String()
}

func (m *Model) push(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
}

func (m *Model) apply(env server.Envelope) {
	switch env.Type {
	case server.TypeWelcome:
		var d server.WelcomeData
		if decode(env.Data, &d) {
			m.status = fmt.Sprintf("authenticated as %s (%s)", d.Login, d.Role)
		}
		return
	case server.TypeSubscribed:
		var d server.SubscribedData
		if decode(env.Data, &d) {
			m.mode = string(d.View.Mode)
			m.status = fmt.Sprintf("watching #%s  phase %s  %d seated", d.Channel, d.View.Phase, len(d.View.Players))
		}
		return
	case server.TypeError:
		var d server.ErrorData
		decode(env.Data, &d)
		m.push(stamp(env, ErrorStyle.Render(strings.TrimSpace(fmt.Sprintf("error: %s %s", d.Code, d.Message)))))
		return
	}
	m.push(stamp(env, formatEvent(env)))
}

// stamp prefixes a rendered line with the frame's send time.
func stamp(env server.Envelope, line string) string {
	if env.TS.IsZero() {
		return line
	}
	return TimestampStyle.Render(env.TS.Format("15:04:05")) + "  " + line
}

func decode(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// formatEvent renders one event frame as a log line. Unknown kinds fall back
// to the raw payload so new server events stay visible.
func formatEvent(env server.Envelope) string {
	switch game.EventKind(env.Type) {
	case game.EvtBettingStarted:
		var d game.BettingStartedData
		if decode(env.Data, &d) {
			return EventStyle.Render(fmt.Sprintf("betting open  min %d  max %d  closes %s",
				d.MinBet, d.MaxBet, d.EndsAt.Format("15:04:05")))
		}
	case game.EvtRoundStarted:
		var d game.RoundStartedData
		if decode(env.Data, &d) {
			parts := []string{fmt.Sprintf("round %d dealt  %d players", d.Round, len(d.Players))}
			if d.DealerUp != nil {
				parts = append(parts, "dealer shows "+renderCards([]cards.Card{*d.DealerUp}))
			}
			if d.Pot > 0 {
				parts = append(parts, fmt.Sprintf("pot %d", d.Pot))
			}
			if d.Turn != "" {
				parts = append(parts, "first to act "+d.Turn)
			}
			return EventStyle.Render(strings.Join(parts, "  "))
		}
	case game.EvtPlayerUpdate:
		var d game.PlayerUpdateData
		if decode(env.Data, &d) {
			return EventStyle.Render(formatPlayerUpdate(d))
		}
	case game.EvtPokerBetting:
		var d game.PokerBettingData
		if decode(env.Data, &d) {
			parts := []string{fmt.Sprintf("%s  pot %d  bet %d", d.Phase, d.Pot, d.CurrentBet)}
			if len(d.Community) > 0 {
				parts = append(parts, "board "+renderCards(d.Community))
			}
			if d.Turn != "" {
				parts = append(parts, "turn "+d.Turn)
			}
			return EventStyle.Render(strings.Join(parts, "  "))
		}
	case game.EvtDealerUpdate:
		var d game.DealerUpdateData
		if decode(env.Data, &d) {
			line := fmt.Sprintf("dealer %s (%d)", renderCards(d.Hand), d.Total)
			if d.Soft {
				line += " soft"
			}
			return EventStyle.Render(line)
		}
	case game.EvtSettled:
		var d game.SettledData
		if decode(env.Data, &d) {
			return SettledStyle.Render(formatSettled(d))
		}
	case game.EvtQueueUpdate:
		var d game.QueueUpdateData
		if decode(env.Data, &d) {
			return StatusStyle.Render(fmt.Sprintf("%d/%d seated  %d waiting", d.Seated, d.SeatCap, len(d.Waiting)))
		}
	case game.EvtReadyStatus:
		var d game.ReadyStatusData
		if decode(env.Data, &d) {
			line := fmt.Sprintf("ready %d/%d", len(d.Ready), len(d.Required))
			if d.AllReady {
				line += "  all ready"
			}
			return StatusStyle.Render(line)
		}
	case game.EvtTournamentLevel:
		var d game.TournamentLevelData
		if decode(env.Data, &d) {
			return WarningStyle.Render(fmt.Sprintf("blinds %d/%d  level %d", d.SmallBlind, d.BigBlind, d.Level))
		}
	case game.EvtRoundAborted:
		var d game.RoundAbortedData
		if decode(env.Data, &d) {
			return ErrorStyle.Render("round aborted: " + d.Reason)
		}
	case game.EvtRejected:
		var d game.RejectedData
		if decode(env.Data, &d) {
			return ErrorStyle.Render(fmt.Sprintf("rejected: %s (%s)", d.Reason, d.Kind))
		}
	}
	return StatusStyle.Render(strings.TrimSpace(env.Type + " " + string(env.Data)))
}

func formatPlayerUpdate(d game.PlayerUpdateData) string {
	parts := []string{d.Login}
	if d.Bet != nil {
		parts = append(parts, fmt.Sprintf("bet %d", *d.Bet))
	}
	if d.Balance != nil {
		parts = append(parts, fmt.Sprintf("balance %d", *d.Balance))
	}
	if d.Folded != nil && *d.Folded {
		parts = append(parts, "folds")
	}
	if d.AllIn != nil && *d.AllIn {
		parts = append(parts, "all-in")
	}
	for _, h := range d.Hands {
		parts = append(parts, fmt.Sprintf("%s (%d)", renderCards(h.Cards), h.Total))
	}
	if len(d.Hole) > 0 {
		parts = append(parts, "hole "+renderCards(d.Hole))
	}
	if d.Turn {
		parts = append(parts, "to act")
	}
	if d.Streak != nil {
		parts = append(parts, fmt.Sprintf("streak %+d", *d.Streak))
	}
	if d.Tilt != nil {
		parts = append(parts, fmt.Sprintf("tilt %.2f", *d.Tilt))
	}
	if d.AFK != nil && *d.AFK {
		parts = append(parts, WarningStyle.Render("afk"))
	}
	return strings.Join(parts, "  ")
}

func formatSettled(d game.SettledData) string {
	winners := d.Winners
	if len(winners) == 0 {
		for login, amount := range d.Payouts {
			if amount > 0 {
				winners = append(winners, login)
			}
		}
		sort.Strings(winners)
	}
	line := fmt.Sprintf("round %d settled", d.Round)
	if len(winners) > 0 {
		line += "  winners " + strings.Join(winners, ", ")
	} else {
		line += "  no winners"
	}
	if d.Pot > 0 {
		line += fmt.Sprintf("  pot %d", d.Pot)
	}
	if d.House != 0 {
		line += fmt.Sprintf("  house %+d", d.House)
	}
	return line
}

// renderCards formats a hand with red suits highlighted.
func renderCards(hand []cards.Card) string {
	parts := make([]string, len(hand))
	for i, c := range hand {
		s := c.String()
		if c.Suit == cards.Hearts || c.Suit == cards.Diamonds {
			s = RedCardStyle.Render(s)
		}
		parts[i] = s
	}
	return strings.Join(parts, " ")
}
