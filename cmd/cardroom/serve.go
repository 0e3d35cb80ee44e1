package main

import (
	"fmt"
	"os"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/cardroom/cmd/cardroom/shared"
	"github.com/lox/cardroom/internal/ai"
	"github.com/lox/cardroom/internal/auth"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/heuristics"
	"github.com/lox/cardroom/internal/history"
	"github.com/lox/cardroom/internal/server"
	"github.com/lox/cardroom/internal/store"
	"github.com/lox/cardroom/internal/tournament"
	"github.com/lox/cardroom/internal/wallet"
)

// ServeCmd runs the cardroom server
type ServeCmd struct {
	Config    string `kong:"default='cardroom.hcl',help='Path to the HCL config file'"`
	Addr      string `kong:"help='Override the websocket listen address'"`
	AdminAddr string `kong:"help='Override the admin listen address'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
	LogJSON   bool   `kong:"name='log-json',help='Structured JSON logs instead of console output'"`
	Seed      *int64 `kong:"help='Deterministic RNG seed (optional)'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	if c.AdminAddr != "" {
		cfg.Server.AdminAddr = c.AdminAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var logger zerolog.Logger
	if c.LogJSON {
		logger = shared.SetupStructuredLogger(c.Debug)
	} else {
		logger = shared.SetupLogger(c.Debug)
	}

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
	} else {
		seed = time.Now().UnixNano()
		logger.Info().Int64("seed", seed).Msg("Using random seed")
	}

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	funds, err := wallet.New(logger, st, cfg.Server.DefaultBalance)
	if err != nil {
		return err
	}

	clock := quartz.NewReal()
	tracker := heuristics.NewTracker(cfg.HeuristicsConfig(), clock)
	hist := history.New(logger, st, history.Config{Clock: clock})

	roles, err := auth.NewDirectory(logger, st, cfg.Server.Admins)
	if err != nil {
		return err
	}
	var authorizer auth.Authorizer = roles
	if cfg.Server.AuthURL != "" {
		logger.Info().Str("url", cfg.Server.AuthURL).Msg("Using external auth service")
		authorizer = auth.NewHTTPAuthorizer(cfg.Server.AuthURL, cfg.Server.AdminSecret)
	}

	metrics := server.NewMetrics()
	hub := server.NewHub(logger, metrics)

	ctrl := tournament.New(tournament.Deps{
		Logger:        logger,
		Clock:         clock,
		Store:         st,
		Settings:      cfg.TournamentSettings(),
		ChannelConfig: cfg.GameConfig(game.ModePoker),
		Seed:          seed,
	})

	arena := game.NewArena(game.Deps{
		Logger:   logger,
		Clock:    clock,
		Funds:    funds,
		Tracker:  tracker,
		Emitter:  hub.Publish,
		Recorder: hist,
		Observer: ctrl,
		Stacks:   ctrl,
		Bots:     ai.Factory(logger),
	})
	ctrl.AttachArena(arena)

	for i, block := range cfg.Channels {
		gc := cfg.ChannelConfig(block)
		if c.Seed != nil {
			// Distinct per-table seeds so standing tables don't share shuffles.
			gc.Seed = seed + int64(i) + 1
		}
		ch, err := arena.EnsurePersistent(block.Name, gc)
		if err != nil {
			return fmt.Errorf("failed to create channel %q: %w", block.Name, err)
		}
		for _, persona := range block.Bots {
			ch.Submit(game.Command{
				Channel: block.Name,
				Actor:   "server",
				Role:    game.RoleAdmin,
				Kind:    game.CmdAddBot,
				Target:  persona,
			})
		}
	}

	if err := ctrl.Resume(); err != nil {
		logger.Error().Err(err).Msg("Tournament resume failed")
	}
	reseatBots(logger, st, arena)

	srv := server.NewServer(server.Deps{
		Logger:     logger,
		Clock:      clock,
		Config:     cfg,
		Arena:      arena,
		Controller: ctrl,
		Auth:       authorizer,
		Store:      st,
		History:    hist,
		Roles:      roles,
		Hub:        hub,
		Metrics:    metrics,
	})

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("admin_addr", cfg.Server.AdminAddr).
		Str("store", cfg.StorePath()).
		Int("channels", len(cfg.Channels)).
		Int64("default_balance", cfg.Server.DefaultBalance).
		Msg("Starting cardroom server")

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	err = srv.Run(ctx)

	arena.Shutdown()
	ctrl.Shutdown()
	return err
}

// reseatBots restores runtime-added bots recorded in the store. Rows for
// channels that no longer exist are skipped; config bots were already seated
// and are not recorded.
func reseatBots(logger zerolog.Logger, st *store.Store, arena *game.Arena) {
	seats, err := st.BotSeats()
	if err != nil {
		logger.Error().Err(err).Msg("Bot reseat load failed")
		return
	}
	for _, seat := range seats {
		ch, ok := arena.Get(seat.Channel)
		if !ok {
			logger.Debug().Str("channel", seat.Channel).Str("persona", seat.Persona).Msg("Skipping bot seat for released channel")
			continue
		}
		ch.Submit(game.Command{
			Channel: seat.Channel,
			Actor:   "server",
			Role:    game.RoleAdmin,
			Kind:    game.CmdAddBot,
			Target:  seat.Persona,
		})
	}
}
