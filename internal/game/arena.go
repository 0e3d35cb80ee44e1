package game

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"regexp"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/randutil"
)

// ErrShuttingDown is returned by Ensure once the arena has stopped.
var ErrShuttingDown = errors.New("game: arena shutting down")

var channelNameRE = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidChannelName reports whether a name is usable as a channel identifier.
func ValidChannelName(name string) bool {
	return channelNameRE.MatchString(name)
}

// Codes avoid look-alike characters so they survive being read aloud.
const lobbyAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

type arenaEntry struct {
	ch         *Channel
	cancel     context.CancelFunc
	persistent bool
}

// Arena owns every live channel. Channels are created on demand, each with
// its own goroutine, and stopped together at shutdown. Persistent channels
// come from server config and survive reaping; ad-hoc lobbies are reaped
// once they empty out.
type Arena struct {
	logger zerolog.Logger
	deps   Deps

	mu      sync.RWMutex
	entries map[string]*arenaEntry
	rng     *rand.Rand
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// NewArena builds an empty registry sharing deps across all channels.
func NewArena(deps Deps) *Arena {
	ctx, cancel := context.WithCancel(context.Background())
	return &Arena{
		logger:  deps.Logger.With().Str("component", "arena").Logger(),
		deps:    deps,
		entries: make(map[string]*arenaEntry),
		rng:     randutil.New(randutil.CryptoSeed()),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Ensure returns the named channel, creating and starting it if needed. An
// existing channel must match the requested mode.
func (a *Arena) Ensure(name string, cfg Config) (*Channel, error) {
	return a.ensure(name, cfg, false)
}

// EnsurePersistent is Ensure for configured standing tables, which the
// reaper never removes.
func (a *Arena) EnsurePersistent(name string, cfg Config) (*Channel, error) {
	return a.ensure(name, cfg, true)
}

func (a *Arena) ensure(name string, cfg Config, persistent bool) (*Channel, error) {
	if !ValidChannelName(name) {
		return nil, fmt.Errorf("%w: channel name %q", ErrInvalidPayload, name)
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("%w: mode %q", ErrInvalidPayload, cfg.Mode)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrShuttingDown
	}
	if e, ok := a.entries[name]; ok {
		if e.ch.Mode() != cfg.Mode {
			return nil, fmt.Errorf("%w: channel %q already runs %s", ErrInvalidPayload, name, e.ch.Mode())
		}
		if persistent {
			e.persistent = true
		}
		return e.ch, nil
	}

	ch := New(name, cfg, a.deps)
	ctx, cancel := context.WithCancel(a.ctx)
	a.entries[name] = &arenaEntry{ch: ch, cancel: cancel, persistent: persistent}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ch.Run(ctx)
	}()
	a.logger.Info().
		Str("channel", name).
		Str("mode", string(cfg.Mode)).
		Bool("persistent", persistent).
		Msg("channel created")
	return ch, nil
}

// Get returns a live channel by name.
func (a *Arena) Get(name string) (*Channel, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[name]
	if !ok {
		return nil, false
	}
	return e.ch, true
}

// LobbyCode reserves nothing; it returns a lobby channel name that is not
// currently in use.
func (a *Arena) LobbyCode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	for {
		b := make([]byte, 6)
		for i := range b {
			b[i] = lobbyAlphabet[a.rng.IntN(len(lobbyAlphabet))]
		}
		name := "lobby-" + string(b)
		if _, ok := a.entries[name]; !ok {
			return name
		}
	}
}

// Names lists live channel names, sorted.
func (a *Arena) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List snapshots every live channel. Channels that stop mid-iteration are
// skipped.
func (a *Arena) List() []ChannelView {
	a.mu.RLock()
	chans := make([]*Channel, 0, len(a.entries))
	for _, e := range a.entries {
		chans = append(chans, e.ch)
	}
	a.mu.RUnlock()

	views := make([]ChannelView, 0, len(chans))
	for _, ch := range chans {
		if v, ok := ch.View(); ok {
			views = append(views, v)
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// Release stops and removes one channel, waiting for its loop to exit.
func (a *Arena) Release(name string) bool {
	a.mu.Lock()
	e, ok := a.entries[name]
	if ok {
		delete(a.entries, name)
	}
	a.mu.Unlock()
	if !ok {
		return false
	}
	e.cancel()
	<-e.ch.stopped
	a.logger.Info().Str("channel", name).Msg("channel released")
	return true
}

// Reap releases ad-hoc channels that have gone quiet: idle phase, no seats,
// no queue, no tournament binding. Returns how many were removed.
func (a *Arena) Reap() int {
	a.mu.RLock()
	candidates := make(map[string]*Channel, len(a.entries))
	for name, e := range a.entries {
		if !e.persistent {
			candidates[name] = e.ch
		}
	}
	a.mu.RUnlock()

	reaped := 0
	for name, ch := range candidates {
		v, ok := ch.View()
		if !ok {
			continue
		}
		if v.Phase != PhaseIdle || len(v.Players) > 0 || len(v.Waiting) > 0 || v.Binding != nil {
			continue
		}
		if a.Release(name) {
			reaped++
		}
	}
	return reaped
}

// Shutdown stops every channel and waits for their loops to exit. The arena
// cannot be reused afterwards.
func (a *Arena) Shutdown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
	a.logger.Info().Msg("arena stopped")
}
