package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/auth"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Outbound buffer per session; the hub drops events past this.
	sendBuffer = 64
)

// Session is one websocket client. It stays anonymous until the first auth
// frame resolves; spectating needs no identity, mutations do.
type Session struct {
	id     string
	logger zerolog.Logger
	conn   *websocket.Conn
	router *Router

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	identity auth.Identity
	authed   bool
}

func newSession(logger zerolog.Logger, conn *websocket.Conn, router *Router) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		logger: logger.With().Str("component", "session").Str("session", id).Logger(),
		conn:   conn,
		router: router,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// ID returns the per-connection identifier, used as the limiter key before
// authentication.
func (s *Session) ID() string { return s.id }

// Identity returns the resolved identity, if the session has authenticated.
func (s *Session) Identity() (auth.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.authed
}

// Login returns the authenticated login, or empty for spectators.
func (s *Session) Login() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authed {
		return ""
	}
	return s.identity.Login
}

func (s *Session) setIdentity(id auth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	s.authed = true
}

// trySend queues a frame without blocking. False means the buffer was full
// or the session already closed.
func (s *Session) trySend(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

func (s *Session) sendEnvelope(env *Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		s.logger.Error().Err(err).Str("type", env.Type).Msg("envelope marshal failed")
		return
	}
	if !s.trySend(payload) {
		s.logger.Debug().Str("type", env.Type).Msg("reply dropped, buffer full")
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// readPump consumes frames until the peer goes away, handing each envelope
// to the router on this goroutine.
func (s *Session) readPump() {
	defer func() {
		s.router.Disconnected(s)
		_ = s.conn.Close()
		s.close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn().Err(err).Msg("unexpected websocket close")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.sendEnvelope(errorEnvelope("", "invalidPayload", "malformed frame"))
			continue
		}
		s.router.Handle(s, &env)
	}
}

// writePump owns all writes to the connection, including keepalive pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		s.close()
	}()

	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
