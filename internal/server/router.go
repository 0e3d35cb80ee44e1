package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/ai"
	"github.com/lox/cardroom/internal/auth"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/store"
	"github.com/lox/cardroom/internal/tournament"
)

const authTimeout = 5 * time.Second

// Router turns websocket envelopes into typed commands. It authenticates
// sessions, applies the rate limiter, validates channel names, and forwards
// channel commands to the arena and tournament commands to the controller.
// Every mutation requires an authenticated session; spectating does not.
type Router struct {
	logger  zerolog.Logger
	cfg     *Config
	arena   *game.Arena
	ctrl    *tournament.Controller
	auth    auth.Authorizer
	hub     *Hub
	limiter *RateLimiter
	metrics *Metrics
	store   *store.Store
}

// RouterDeps wires the router's collaborators. Store may be nil for
// ephemeral play; Controller may be nil when tournaments are disabled.
type RouterDeps struct {
	Logger     zerolog.Logger
	Config     *Config
	Arena      *game.Arena
	Controller *tournament.Controller
	Auth       auth.Authorizer
	Hub        *Hub
	Limiter    *RateLimiter
	Metrics    *Metrics
	Store      *store.Store
}

// NewRouter builds a router over the shared collaborators.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		logger:  deps.Logger.With().Str("component", "router").Logger(),
		cfg:     deps.Config,
		arena:   deps.Arena,
		ctrl:    deps.Controller,
		auth:    deps.Auth,
		hub:     deps.Hub,
		limiter: deps.Limiter,
		metrics: deps.Metrics,
		store:   deps.Store,
	}
}

// Handle processes one inbound envelope on the session's read goroutine.
func (r *Router) Handle(s *Session, env *Envelope) {
	switch env.Type {
	case TypeAuth:
		r.handleAuth(s, env)
	case TypeSubscribe:
		r.handleSubscribe(s, env)
	case TypeUnsubscribe:
		r.handleUnsubscribe(s, env)
	case TypeLobby:
		r.handleLobby(s, env)
	default:
		r.handleCommand(s, env)
	}
}

// Disconnected tears down per-session router state.
func (r *Router) Disconnected(s *Session) {
	r.hub.DropSession(s)
	r.limiter.Forget(s.ID())
	if login := s.Login(); login != "" {
		r.limiter.Forget(login)
	}
	r.logger.Debug().Str("session", s.ID()).Str("login", s.Login()).Msg("session disconnected")
}

func (r *Router) handleAuth(s *Session, env *Envelope) {
	var data AuthData
	if err := env.decode(&data); err != nil {
		s.sendEnvelope(errorEnvelope("", "invalidPayload", "malformed auth payload"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()
	identity, err := r.auth.Authorize(ctx, data.Token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		r.metrics.Rejected.WithLabelValues("unauthorized").Inc()
		s.sendEnvelope(errorEnvelope("", "unauthorized", "token rejected"))
		return
	case err != nil:
		r.logger.Warn().Err(err).Str("session", s.ID()).Msg("authorization unavailable")
		s.sendEnvelope(errorEnvelope("", "unavailable", "authorization unavailable"))
		return
	}

	s.setIdentity(identity)
	r.logger.Info().
		Str("session", s.ID()).
		Str("login", identity.Login).
		Str("role", string(identity.Role)).
		Msg("session authenticated")

	welcome, err := NewEnvelope(TypeWelcome, "", WelcomeData{Login: identity.Login, Role: identity.Role})
	if err != nil {
		return
	}
	s.sendEnvelope(welcome)
}

func (r *Router) handleSubscribe(s *Session, env *Envelope) {
	if !r.limiter.Allow(r.actorKey(s), TypeSubscribe) {
		r.rateLimited(s, env.Channel)
		return
	}

	name := normalizeChannel(env.Channel)
	if !game.ValidChannelName(name) {
		s.sendEnvelope(errorEnvelope(env.Channel, "invalidPayload", "invalid channel name"))
		return
	}

	ch, ok := r.arena.Get(name)
	if !ok {
		var data SubscribeData
		if err := env.decode(&data); err != nil {
			s.sendEnvelope(errorEnvelope(name, "invalidPayload", "malformed subscribe payload"))
			return
		}
		var err error
		ch, err = r.arena.Ensure(name, r.subscribeConfig(name, data.Mode))
		if err != nil {
			r.ensureFailed(s, name, err)
			return
		}
	}

	r.hub.Subscribe(s, name)
	r.sendSubscribed(s, ch)
}

// subscribeConfig resolves settings for a channel created by subscription:
// a configured standing table keeps its block, anything else gets the base
// config for the requested mode.
func (r *Router) subscribeConfig(name, mode string) game.Config {
	for _, block := range r.cfg.Channels {
		if block.Name == name {
			return r.cfg.ChannelConfig(block)
		}
	}
	m := game.Mode(mode)
	if !m.Valid() {
		m = game.ModeBlackjack
	}
	return r.cfg.GameConfig(m)
}

func (r *Router) handleUnsubscribe(s *Session, env *Envelope) {
	r.hub.Unsubscribe(s, normalizeChannel(env.Channel))
}

// handleLobby mints an unused lobby code, starts the channel, and
// subscribes the caller in one step.
func (r *Router) handleLobby(s *Session, env *Envelope) {
	identity, authed := s.Identity()
	if !authed {
		r.unauthorized(s, env.Channel)
		return
	}
	if !r.limiter.Allow(identity.Login, TypeLobby) {
		r.rateLimited(s, env.Channel)
		return
	}

	var data SubscribeData
	if err := env.decode(&data); err != nil {
		s.sendEnvelope(errorEnvelope("", "invalidPayload", "malformed lobby payload"))
		return
	}
	mode := game.Mode(data.Mode)
	if !mode.Valid() {
		mode = game.ModeBlackjack
	}

	code := r.arena.LobbyCode()
	ch, err := r.arena.Ensure(code, r.cfg.GameConfig(mode))
	if err != nil {
		r.ensureFailed(s, code, err)
		return
	}
	r.hub.Subscribe(s, code)
	r.sendSubscribed(s, ch)
}

func (r *Router) handleCommand(s *Session, env *Envelope) {
	kind := game.CommandKind(env.Type)
	if !knownKind(kind) {
		s.sendEnvelope(errorEnvelope(env.Channel, "invalidPayload", "unknown message type"))
		return
	}

	identity, authed := s.Identity()
	if !authed {
		r.unauthorized(s, env.Channel)
		return
	}
	if !r.limiter.Allow(identity.Login, string(kind)) {
		r.rateLimited(s, env.Channel)
		return
	}

	var data CommandData
	if err := env.decode(&data); err != nil {
		s.sendEnvelope(errorEnvelope(env.Channel, "invalidPayload", "malformed command payload"))
		return
	}

	if tournamentKind(kind) {
		r.handleTournament(s, env, kind, identity, data)
		return
	}

	name := normalizeChannel(env.Channel)
	if !game.ValidChannelName(name) {
		s.sendEnvelope(errorEnvelope(env.Channel, "invalidPayload", "invalid channel name"))
		return
	}
	ch, ok := r.arena.Get(name)
	if !ok {
		s.sendEnvelope(errorEnvelope(name, "invalidPayload", "unknown channel"))
		return
	}

	if kind == game.CmdAddBot && !ai.ValidPersona(data.Target) {
		s.sendEnvelope(errorEnvelope(name, "invalidPayload", "unknown persona"))
		return
	}

	role := identity.Role
	// A login subscribed to its own channel runs that table.
	if identity.Login == name && !role.CanControl() {
		role = game.RoleStreamer
	}

	cmd := game.Command{
		Channel: name,
		Actor:   identity.Login,
		Role:    role,
		Kind:    kind,
		Amount:  data.Amount,
		Target:  data.Target,
	}
	if kind == game.CmdBindTournamentTable {
		cmd.Bind = &game.TournamentBinding{
			TournamentID: data.ID,
			Round:        data.Round,
			Table:        data.Table,
			SmallBlind:   data.SmallBlind,
			BigBlind:     data.BigBlind,
			Roster:       data.Roster,
		}
	}

	if !ch.Submit(cmd) {
		r.metrics.Rejected.WithLabelValues("busy").Inc()
		s.sendEnvelope(errorEnvelope(name, "busy", "channel queue full"))
		return
	}
	r.metrics.Commands.WithLabelValues(string(kind)).Inc()

	// The bot set survives restarts. Outcomes are decided on the loop, so a
	// rejected add leaves a spare row that reseating tolerates.
	if r.store != nil && role.CanControl() {
		switch kind {
		case game.CmdAddBot:
			persona := data.Target
			if persona == "" {
				persona = ai.PersonaBasic
			}
			if err := r.store.AddBotSeat(name, persona); err != nil {
				r.logger.Error().Err(err).Str("channel", name).Msg("bot seat write failed")
			}
		case game.CmdKickBot:
			if persona := botPersona(data.Target); persona != "" {
				if err := r.store.RemoveBotSeat(name, persona); err != nil {
					r.logger.Error().Err(err).Str("channel", name).Msg("bot seat delete failed")
				}
			}
		}
	}
}

func (r *Router) handleTournament(s *Session, env *Envelope, kind game.CommandKind, identity auth.Identity, data CommandData) {
	if r.ctrl == nil {
		s.sendEnvelope(errorEnvelope(env.Channel, "unavailable", "tournaments disabled"))
		return
	}
	if !identity.Role.CanAdminister() {
		r.unauthorized(s, env.Channel)
		return
	}

	var reply any
	var err error
	switch kind {
	case game.CmdCreateTournament:
		mode := game.Mode(data.Mode)
		if data.Mode == "" {
			mode = game.ModePoker
		}
		var id string
		id, err = r.ctrl.Create(mode, data.StartingChips, data.TableSize, data.Cutoffs, data.Levels)
		reply = TournamentCreatedData{ID: id}
	case game.CmdAddTournamentPlayer:
		var seat int
		seat, err = r.ctrl.AddPlayer(data.ID, data.Login)
		reply = TournamentPlayerData{ID: data.ID, Login: data.Login, Seat: seat}
	case game.CmdGenerateBracket:
		var tables []string
		tables, err = r.ctrl.GenerateBracket(data.ID)
		reply = TournamentBracketData{ID: data.ID, Tables: tables}
	case game.CmdStartTournament:
		err = r.ctrl.Start(data.ID)
		reply = r.tournamentState(data.ID)
	case game.CmdAdvanceRound:
		err = r.ctrl.AdvanceRound(data.ID)
		reply = r.tournamentState(data.ID)
	}

	if err != nil {
		reason := game.Reason(err)
		r.metrics.Rejected.WithLabelValues(reason).Inc()
		r.logger.Warn().
			Str("login", identity.Login).
			Str("kind", string(kind)).
			Str("reason", reason).
			Msg("tournament command rejected")
		s.sendEnvelope(errorEnvelope(env.Channel, reason, ""))
		return
	}
	r.metrics.Commands.WithLabelValues(string(kind)).Inc()

	out, envErr := NewEnvelope(string(kind), "", reply)
	if envErr != nil {
		r.logger.Error().Err(envErr).Str("kind", string(kind)).Msg("reply marshal failed")
		return
	}
	s.sendEnvelope(out)
}

func (r *Router) tournamentState(id string) TournamentStateData {
	view, _ := r.ctrl.Snapshot(id)
	return TournamentStateData{ID: id, State: string(view.State), View: view}
}

func (r *Router) sendSubscribed(s *Session, ch *game.Channel) {
	view, ok := ch.View()
	if !ok {
		s.sendEnvelope(errorEnvelope(ch.Name(), "unavailable", "channel stopped"))
		return
	}
	env, err := NewEnvelope(TypeSubscribed, ch.Name(), SubscribedData{Channel: ch.Name(), View: view})
	if err != nil {
		return
	}
	s.sendEnvelope(env)
}

func (r *Router) ensureFailed(s *Session, name string, err error) {
	if errors.Is(err, game.ErrShuttingDown) {
		s.sendEnvelope(errorEnvelope(name, "unavailable", "server shutting down"))
		return
	}
	s.sendEnvelope(errorEnvelope(name, game.Reason(err), ""))
}

func (r *Router) unauthorized(s *Session, channel string) {
	r.metrics.Rejected.WithLabelValues("unauthorized").Inc()
	s.sendEnvelope(errorEnvelope(channel, "unauthorized", ""))
}

func (r *Router) rateLimited(s *Session, channel string) {
	r.metrics.Rejected.WithLabelValues("rateLimited").Inc()
	s.sendEnvelope(errorEnvelope(channel, "rateLimited", ""))
}

// actorKey is the limiter identity: the login once authenticated, the
// connection id before that.
func (r *Router) actorKey(s *Session) string {
	if login := s.Login(); login != "" {
		return login
	}
	return s.ID()
}

func normalizeChannel(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// botPersona recovers the persona from a minted bot login such as
// bot-aggressive-2. Anything else returns empty.
func botPersona(login string) string {
	rest, ok := strings.CutPrefix(login, "bot-")
	if !ok {
		return ""
	}
	idx := strings.LastIndex(rest, "-")
	if idx <= 0 {
		return ""
	}
	return rest[:idx]
}

func knownKind(kind game.CommandKind) bool {
	switch kind {
	case game.CmdPlaceBet, game.CmdHit, game.CmdStand, game.CmdDouble,
		game.CmdSplit, game.CmdSurrender, game.CmdInsurance, game.CmdCheck,
		game.CmdCall, game.CmdRaise, game.CmdFold, game.CmdReady,
		game.CmdOpenBetting, game.CmdStartNow, game.CmdForceAdvance,
		game.CmdAddBot, game.CmdKickBot, game.CmdBindTournamentTable,
		game.CmdCreateTournament, game.CmdAddTournamentPlayer,
		game.CmdGenerateBracket, game.CmdAdvanceRound, game.CmdStartTournament:
		return true
	default:
		return false
	}
}

// tournamentKind lists the kinds handled by the controller rather than a
// channel loop. Binding stays with the channel.
func tournamentKind(kind game.CommandKind) bool {
	switch kind {
	case game.CmdCreateTournament, game.CmdAddTournamentPlayer,
		game.CmdGenerateBracket, game.CmdAdvanceRound, game.CmdStartTournament:
		return true
	default:
		return false
	}
}
