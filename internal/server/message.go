package server

import (
	"encoding/json"
	"time"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/tournament"
)

// Envelope is the frame every websocket message travels in, both directions.
// For events Type is the event kind and Seq/TS come from the channel loop;
// for client commands Type is the command kind and the rest of the payload
// rides in Data.
type Envelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
}

// Session message types, alongside the command and event kinds.
const (
	TypeAuth        = "auth"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeLobby       = "lobby"

	TypeWelcome    = "welcome"
	TypeSubscribed = "subscribed"
	TypeError      = "error"
)

// NewEnvelope wraps a payload, stamping the send time.
func NewEnvelope(msgType, channel string, data any) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: msgType, Channel: channel, Data: raw, TS: time.Now()}, nil
}

// decode unpacks the data payload. An absent payload decodes as zero values.
func (e *Envelope) decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Client → server payloads.

// AuthData carries the connection token for the first-message handshake.
type AuthData struct {
	Token string `json:"token"`
}

// SubscribeData selects the mode when a subscription creates the channel.
// Existing channels keep their mode regardless.
type SubscribeData struct {
	Mode string `json:"mode,omitempty"`
}

// CommandData is the flat payload shared by every command kind; unused
// fields stay empty. Amount is the bet, raise-to, or insurance value; Target
// the persona for addBot or the bot login for kickBot. The tournament kinds
// use the rest.
type CommandData struct {
	Amount int64  `json:"amount,omitempty"`
	Target string `json:"target,omitempty"`

	ID            string             `json:"id,omitempty"`
	Login         string             `json:"login,omitempty"`
	Mode          string             `json:"mode,omitempty"`
	StartingChips int64              `json:"startingChips,omitempty"`
	TableSize     int                `json:"tableSize,omitempty"`
	Cutoffs       []int              `json:"cutoffs,omitempty"`
	Levels        []tournament.Level `json:"levels,omitempty"`
	Round         int                `json:"round,omitempty"`
	Table         int                `json:"table,omitempty"`
	SmallBlind    int64              `json:"smallBlind,omitempty"`
	BigBlind      int64              `json:"bigBlind,omitempty"`
	Roster        []string           `json:"roster,omitempty"`
}

// Server → client payloads.

// WelcomeData confirms authentication.
type WelcomeData struct {
	Login string    `json:"login"`
	Role  game.Role `json:"role"`
}

// SubscribedData confirms a subscription with the channel's current state.
type SubscribedData struct {
	Channel string           `json:"channel"`
	View    game.ChannelView `json:"view"`
}

// ErrorData reports a failure to the offending session only. Code is the
// terse reason; no internals leak.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// TournamentCreatedData answers createTournament.
type TournamentCreatedData struct {
	ID string `json:"id"`
}

// TournamentPlayerData answers addTournamentPlayer.
type TournamentPlayerData struct {
	ID    string `json:"id"`
	Login string `json:"login"`
	Seat  int    `json:"seat"`
}

// TournamentBracketData answers generateBracket with the bound table
// channels.
type TournamentBracketData struct {
	ID     string   `json:"id"`
	Tables []string `json:"tables"`
}

// TournamentStateData answers startTournament and advanceRound.
type TournamentStateData struct {
	ID    string          `json:"id"`
	State string          `json:"state"`
	View  tournament.View `json:"view"`
}

// eventEnvelope converts a core event for the wire. The To field never
// leaves the process; targeting happens at fan-out.
func eventEnvelope(ev game.Event) (*Envelope, error) {
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Type:    string(ev.Kind),
		Channel: ev.Channel,
		Data:    raw,
		Seq:     ev.Seq,
		TS:      ev.At,
	}, nil
}

// errorEnvelope builds an actor-local failure frame.
func errorEnvelope(channel, code, message string) *Envelope {
	env, err := NewEnvelope(TypeError, channel, ErrorData{Code: code, Message: message})
	if err != nil {
		// ErrorData cannot fail to marshal.
		panic(err)
	}
	return env
}
