package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/game"
)

// Hub fans channel events out to subscribed sessions. Delivery never blocks:
// a session whose buffer is full has the event dropped and counted, so a slow
// reader can never stall a channel loop. Targeted events (hole cards,
// rejections) reach only sessions authenticated as the addressee.
type Hub struct {
	logger  zerolog.Logger
	metrics *Metrics

	mu         sync.RWMutex
	subs       map[string]map[*Session]struct{}
	roundStart map[string]time.Time
}

// NewHub builds an empty fan-out.
func NewHub(logger zerolog.Logger, metrics *Metrics) *Hub {
	return &Hub{
		logger:     logger.With().Str("component", "hub").Logger(),
		metrics:    metrics,
		subs:       make(map[string]map[*Session]struct{}),
		roundStart: make(map[string]time.Time),
	}
}

// Subscribe adds the session to a channel's delivery set.
func (h *Hub) Subscribe(s *Session, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[channel]
	if !ok {
		set = make(map[*Session]struct{})
		h.subs[channel] = set
	}
	if _, ok := set[s]; ok {
		return
	}
	set[s] = struct{}{}
	h.metrics.Subscribers.Inc()
}

// Unsubscribe removes one subscription.
func (h *Hub) Unsubscribe(s *Session, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s, channel)
}

// DropSession removes the session from every channel, called on disconnect.
func (h *Hub) DropSession(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel := range h.subs {
		h.removeLocked(s, channel)
	}
}

func (h *Hub) removeLocked(s *Session, channel string) {
	set, ok := h.subs[channel]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	h.metrics.Subscribers.Dec()
	if len(set) == 0 {
		delete(h.subs, channel)
	}
}

// Subscribers counts the delivery set for one channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

// Counts snapshots subscriber counts per channel for the admin API.
func (h *Hub) Counts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.subs))
	for channel, set := range h.subs {
		out[channel] = len(set)
	}
	return out
}

// Publish delivers one event. It is the Emitter every channel is built with
// and runs on the channel's loop goroutine, so everything here stays
// non-blocking.
func (h *Hub) Publish(ev game.Event) {
	h.observeRound(ev)

	env, err := eventEnvelope(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", ev.Channel).Str("kind", string(ev.Kind)).Msg("event marshal failed")
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", ev.Channel).Msg("envelope marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.Channel] {
		if ev.To != "" && s.Login() != ev.To {
			continue
		}
		if !s.trySend(payload) {
			h.metrics.EventsDropped.Inc()
			h.logger.Warn().
				Str("channel", ev.Channel).
				Str("kind", string(ev.Kind)).
				Str("session", s.ID()).
				Msg("event dropped, subscriber buffer full")
		}
	}
}

// observeRound feeds the settlement metrics from the event stream. Durations
// use the event timestamps so they follow the channel's clock.
func (h *Hub) observeRound(ev game.Event) {
	switch ev.Kind {
	case game.EvtRoundStarted:
		h.mu.Lock()
		h.roundStart[ev.Channel] = ev.At
		h.mu.Unlock()
	case game.EvtSettled:
		h.mu.Lock()
		started, ok := h.roundStart[ev.Channel]
		delete(h.roundStart, ev.Channel)
		h.mu.Unlock()
		if ok {
			h.metrics.RoundSeconds.Observe(ev.At.Sub(started).Seconds())
		}
		if data, isSettled := ev.Data.(game.SettledData); isSettled {
			h.metrics.RoundsSettled.WithLabelValues(string(data.Mode)).Inc()
		}
	}
}
