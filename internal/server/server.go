// Package server is the transport layer: it upgrades websockets, routes the
// JSON command envelopes onto channel loops and the tournament controller,
// fans events back out to subscribers, and serves the admin API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/cardroom/internal/auth"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/history"
	"github.com/lox/cardroom/internal/store"
	"github.com/lox/cardroom/internal/tournament"
)

const shutdownGrace = 5 * time.Second

// Deps are the server's collaborators, built by the serve command. Hub and
// Metrics are shared with the arena: the hub is the emitter every channel
// publishes through.
type Deps struct {
	Logger     zerolog.Logger
	Clock      quartz.Clock
	Config     *Config
	Arena      *game.Arena
	Controller *tournament.Controller
	Auth       auth.Authorizer
	Store      *store.Store
	History    *history.Manager
	Roles      *auth.Directory
	Hub        *Hub
	Metrics    *Metrics
}

// Server owns the two listeners (websocket and admin) and the session set.
type Server struct {
	logger   zerolog.Logger
	cfg      *Config
	clock    quartz.Clock
	arena    *game.Arena
	hub      *Hub
	router   *Router
	admin    http.Handler
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// NewServer wires the router, limiter, and admin surface over the deps.
func NewServer(deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	logger := deps.Logger.With().Str("component", "server").Logger()

	limiter := NewRateLimiter(deps.Clock, deps.Config.Server.RateLimit, deps.Config.RateWindow())
	router := NewRouter(RouterDeps{
		Logger:     deps.Logger,
		Config:     deps.Config,
		Arena:      deps.Arena,
		Controller: deps.Controller,
		Auth:       deps.Auth,
		Hub:        deps.Hub,
		Limiter:    limiter,
		Metrics:    deps.Metrics,
		Store:      deps.Store,
	})
	admin := NewAdminAPI(AdminDeps{
		Logger:     deps.Logger,
		Arena:      deps.Arena,
		Controller: deps.Controller,
		Hub:        deps.Hub,
		History:    deps.History,
		Roles:      deps.Roles,
		Metrics:    deps.Metrics,
		Secret:     deps.Config.Server.AdminSecret,
	})
	deps.Metrics.RegisterChannelGauge(func() float64 {
		return float64(len(deps.Arena.Names()))
	})

	return &Server{
		logger: logger,
		cfg:    deps.Config,
		clock:  deps.Clock,
		arena:  deps.Arena,
		hub:    deps.Hub,
		router: router,
		admin:  admin.Handler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients come from anywhere; the auth handshake is the gate.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[*Session]struct{}),
	}
}

// Handler builds the websocket mux, exported so tests can mount it on
// httptest servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Run serves both listeners until ctx is cancelled, then drains them
// gracefully and closes every session.
func (s *Server) Run(ctx context.Context) error {
	wsSrv := &http.Server{Addr: s.cfg.Server.Addr, Handler: s.Handler()}
	adminSrv := &http.Server{Addr: s.cfg.Server.AdminAddr, Handler: s.admin}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", wsSrv.Addr).Msg("websocket listener up")
		if err := wsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.logger.Info().Str("addr", adminSrv.Addr).Msg("admin listener up")
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.reapLoop(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down listeners")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = adminSrv.Shutdown(shutdownCtx)
		err := wsSrv.Shutdown(shutdownCtx)
		s.closeSessions()
		return err
	})
	return g.Wait()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := newSession(s.logger, conn, s.router)
	s.track(sess)
	s.logger.Debug().Str("session", sess.ID()).Str("remote", r.RemoteAddr).Msg("session connected")

	go sess.writePump()
	go func() {
		sess.readPump()
		s.untrack(sess)
	}()
}

func (s *Server) track(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = struct{}{}
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

// SessionCount reports live connections.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	open := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		open = append(open, sess)
	}
	s.mu.Unlock()
	for _, sess := range open {
		sess.close()
	}
}

// reapLoop periodically collects idle ad-hoc channels. Each pass re-arms the
// next one so a mock clock can step it deterministically.
func (s *Server) reapLoop(ctx context.Context) {
	interval := s.cfg.ReapInterval()
	if interval <= 0 {
		return
	}
	ticks := make(chan struct{}, 1)
	arm := func() {
		s.clock.AfterFunc(interval, func() {
			select {
			case ticks <- struct{}{}:
			default:
			}
		})
	}
	arm()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if n := s.arena.Reap(); n > 0 {
				s.logger.Info().Int("released", n).Msg("idle channels reaped")
			}
			arm()
		}
	}
}
