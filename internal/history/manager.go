// Package history keeps settled round records for replay and the admin API.
// Each channel gets a bounded in-memory ring; when a store is attached every
// record is also written through, so history survives restarts and released
// channels.
package history

import (
	"encoding/json"
	"sync"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/store"
)

// Config tunes the manager.
type Config struct {
	// Depth is how many rounds each channel keeps in memory.
	Depth int
	// Clock stamps records; tests inject a mock.
	Clock quartz.Clock
}

// Manager implements game.RoundRecorder. RecordRound runs on channel loop
// goroutines, so it must not block on anything slower than the store write
// the wallet already performs there.
type Manager struct {
	logger zerolog.Logger
	store  *store.Store
	clock  quartz.Clock
	depth  int

	mu    sync.RWMutex
	rings map[string][]store.RoundRecord
}

// New builds a manager. A nil store keeps history in memory only.
func New(logger zerolog.Logger, st *store.Store, cfg Config) *Manager {
	if cfg.Depth <= 0 {
		cfg.Depth = 64
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	return &Manager{
		logger: logger.With().Str("component", "history").Logger(),
		store:  st,
		clock:  cfg.Clock,
		depth:  cfg.Depth,
		rings:  make(map[string][]store.RoundRecord),
	}
}

// RecordRound appends one settled round. The settled payload is kept verbatim
// as the record summary.
func (m *Manager) RecordRound(channel string, mode game.Mode, round uint64, seed int64, data game.SettledData) {
	summary, err := json.Marshal(data)
	if err != nil {
		m.logger.Error().Err(err).Str("channel", channel).Msg("round summary encode failed")
		return
	}
	rec := store.RoundRecord{
		ID:        uuid.NewString(),
		Channel:   channel,
		Mode:      string(mode),
		RoundNo:   int64(round),
		Seed:      seed,
		SettledAt: m.clock.Now(),
		Summary:   summary,
	}

	m.mu.Lock()
	ring := append(m.rings[channel], rec)
	if len(ring) > m.depth {
		ring = ring[len(ring)-m.depth:]
	}
	m.rings[channel] = ring
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveRoundRecord(rec); err != nil {
			m.logger.Error().Err(err).Str("channel", channel).Msg("round record write failed")
		}
	}
}

// Recent returns up to n records for a channel, newest first. The ring serves
// when it has enough; otherwise the store fills in rounds recorded before the
// last restart.
func (m *Manager) Recent(channel string, n int) []store.RoundRecord {
	if n <= 0 {
		n = m.depth
	}

	m.mu.RLock()
	ring := m.rings[channel]
	if len(ring) > n {
		ring = ring[len(ring)-n:]
	}
	recent := make([]store.RoundRecord, 0, len(ring))
	for i := len(ring) - 1; i >= 0; i-- {
		recent = append(recent, ring[i])
	}
	m.mu.RUnlock()

	if len(recent) >= n || m.store == nil {
		return recent
	}
	records, err := m.store.RecentRounds(channel, n)
	if err != nil {
		m.logger.Error().Err(err).Str("channel", channel).Msg("round history read failed")
		return recent
	}
	return records
}

// Forget drops a channel's ring, typically when the channel is released. The
// store rows stay; Recent falls back to them.
func (m *Manager) Forget(channel string) {
	m.mu.Lock()
	delete(m.rings, channel)
	m.mu.Unlock()
}
