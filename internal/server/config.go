package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/heuristics"
	"github.com/lox/cardroom/internal/tournament"
)

// Config is the complete server configuration, decoded from an HCL file.
type Config struct {
	Server     ServerBlock      `hcl:"server,block"`
	Game       *GameBlock       `hcl:"game,block"`
	Heuristics *HeuristicsBlock `hcl:"heuristics,block"`
	Tournament *TournamentBlock `hcl:"tournament_defaults,block"`
	Channels   []ChannelBlock   `hcl:"channel,block"`
}

// ServerBlock contains listener and platform settings.
type ServerBlock struct {
	Addr           string   `hcl:"addr,optional"`
	AdminAddr      string   `hcl:"admin_addr,optional"`
	DataDir        string   `hcl:"data_dir,optional"`
	DefaultChannel string   `hcl:"default_channel,optional"`
	DefaultBalance int64    `hcl:"default_balance,optional"`
	Admins         []string `hcl:"admins,optional"`
	AuthURL        string   `hcl:"auth_url,optional"`
	AdminSecret    string   `hcl:"admin_secret,optional"`
	RateLimit      int      `hcl:"rate_limit,optional"`
	RateWindowMs   int      `hcl:"rate_window_ms,optional"`
	ReapIntervalMs int      `hcl:"reap_interval_ms,optional"`
}

// GameBlock sets the round defaults every channel starts from.
type GameBlock struct {
	MinBet          int64 `hcl:"min_bet,optional"`
	MaxBet          int64 `hcl:"max_bet,optional"`
	BettingWindowMs int   `hcl:"betting_window_ms,optional"`
	BetCooldownMs   int   `hcl:"bet_cooldown_ms,optional"`
	TurnTimeoutMs   int   `hcl:"turn_timeout_ms,optional"`
	SettleDelayMs   int   `hcl:"settle_delay_ms,optional"`
	Decks           int   `hcl:"decks,optional"`
	AutoReopen      bool  `hcl:"auto_reopen,optional"`
}

// HeuristicsBlock tunes streak, tilt, and turn shaping.
type HeuristicsBlock struct {
	StreakWindow    int     `hcl:"streak_window,optional"`
	TiltMin         float64 `hcl:"tilt_min,optional"`
	TiltMax         float64 `hcl:"tilt_max,optional"`
	TiltClampAt     float64 `hcl:"tilt_clamp_at,optional"`
	TiltClamp       float64 `hcl:"tilt_clamp,optional"`
	TimeoutWindowMs int     `hcl:"timeout_window_ms,optional"`
	AFKThreshold    int     `hcl:"afk_threshold,optional"`
	TurnMinMs       int     `hcl:"turn_min_ms,optional"`
	TurnBaseMs      int     `hcl:"turn_base_ms,optional"`
	TurnMaxMs       int     `hcl:"turn_max_ms,optional"`
}

// TournamentBlock sets the defaults applied to new tournaments.
type TournamentBlock struct {
	TableSize     int   `hcl:"table_size,optional"`
	StartingChips int64 `hcl:"starting_chips,optional"`
	IncludeTies   *bool `hcl:"include_ties,optional"`
}

// ChannelBlock declares a standing table created at boot. Bots lists personas
// seated when the channel comes up.
type ChannelBlock struct {
	Name       string   `hcl:"name,label"`
	Mode       string   `hcl:"mode"`
	MinBet     int64    `hcl:"min_bet,optional"`
	MaxBet     int64    `hcl:"max_bet,optional"`
	Decks      int      `hcl:"decks,optional"`
	AutoReopen *bool    `hcl:"auto_reopen,optional"`
	Bots       []string `hcl:"bots,optional"`
}

// DefaultConfig returns the configuration used when no file is present: one
// persistent blackjack channel on the default listener.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerBlock{
			Addr:           ":8080",
			AdminAddr:      ":8081",
			DataDir:        "data",
			DefaultChannel: "lobby",
			DefaultBalance: 1000,
			RateLimit:      8,
			RateWindowMs:   10000,
			ReapIntervalMs: 60000,
		},
		Channels: []ChannelBlock{
			{Name: "lobby", Mode: string(game.ModeBlackjack)},
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config: %s", diags.Error())
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.AdminAddr == "" {
		c.Server.AdminAddr = def.Server.AdminAddr
	}
	if c.Server.DataDir == "" {
		c.Server.DataDir = def.Server.DataDir
	}
	if c.Server.DefaultChannel == "" {
		c.Server.DefaultChannel = def.Server.DefaultChannel
	}
	if c.Server.DefaultBalance == 0 {
		c.Server.DefaultBalance = def.Server.DefaultBalance
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = def.Server.RateLimit
	}
	if c.Server.RateWindowMs == 0 {
		c.Server.RateWindowMs = def.Server.RateWindowMs
	}
	if c.Server.ReapIntervalMs == 0 {
		c.Server.ReapIntervalMs = def.Server.ReapIntervalMs
	}
	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}
}

// Validate checks the configuration for contradictions before boot.
func (c *Config) Validate() error {
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("rate_limit must be positive, got %d", c.Server.RateLimit)
	}
	if c.Server.DefaultBalance < 0 {
		return fmt.Errorf("default_balance must not be negative, got %d", c.Server.DefaultBalance)
	}
	if !game.ValidChannelName(c.Server.DefaultChannel) {
		return fmt.Errorf("invalid default_channel %q", c.Server.DefaultChannel)
	}

	if g := c.Game; g != nil {
		if g.MinBet < 0 || g.MaxBet < 0 {
			return fmt.Errorf("bet limits must not be negative")
		}
		if g.MinBet > 0 && g.MaxBet > 0 && g.MinBet > g.MaxBet {
			return fmt.Errorf("min_bet %d exceeds max_bet %d", g.MinBet, g.MaxBet)
		}
	}

	if t := c.Tournament; t != nil {
		if t.TableSize < 0 || t.TableSize == 1 {
			return fmt.Errorf("tournament table_size must be at least 2, got %d", t.TableSize)
		}
		if t.StartingChips < 0 {
			return fmt.Errorf("tournament starting_chips must not be negative, got %d", t.StartingChips)
		}
	}

	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if !game.ValidChannelName(ch.Name) {
			return fmt.Errorf("channel %q: invalid name", ch.Name)
		}
		if seen[ch.Name] {
			return fmt.Errorf("channel %q: declared twice", ch.Name)
		}
		seen[ch.Name] = true
		if !game.Mode(ch.Mode).Valid() {
			return fmt.Errorf("channel %q: unknown mode %q", ch.Name, ch.Mode)
		}
		if ch.MinBet > 0 && ch.MaxBet > 0 && ch.MinBet > ch.MaxBet {
			return fmt.Errorf("channel %q: min_bet %d exceeds max_bet %d", ch.Name, ch.MinBet, ch.MaxBet)
		}
	}
	return nil
}

// StorePath is the sqlite database location under the data dir.
func (c *Config) StorePath() string {
	return filepath.Join(c.Server.DataDir, "cardroom.db")
}

// RateWindow returns the sliding window span for the command limiter.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.Server.RateWindowMs) * time.Millisecond
}

// ReapInterval returns how often idle ad-hoc channels are collected.
func (c *Config) ReapInterval() time.Duration {
	return time.Duration(c.Server.ReapIntervalMs) * time.Millisecond
}

// GameConfig builds the base channel settings for a mode, starting from the
// engine defaults and applying the game block on top.
func (c *Config) GameConfig(mode game.Mode) game.Config {
	cfg := game.DefaultConfig(mode)
	g := c.Game
	if g == nil {
		return cfg
	}
	if g.MinBet > 0 {
		cfg.MinBet = g.MinBet
	}
	if g.MaxBet > 0 {
		cfg.MaxBet = g.MaxBet
	}
	if g.BettingWindowMs > 0 {
		cfg.BettingWindow = time.Duration(g.BettingWindowMs) * time.Millisecond
	}
	if g.BetCooldownMs > 0 {
		cfg.BetCooldown = time.Duration(g.BetCooldownMs) * time.Millisecond
	}
	if g.TurnTimeoutMs > 0 {
		cfg.TurnTimeout = time.Duration(g.TurnTimeoutMs) * time.Millisecond
	}
	if g.SettleDelayMs > 0 {
		cfg.SettleDelay = time.Duration(g.SettleDelayMs) * time.Millisecond
	}
	if g.Decks > 0 {
		cfg.Decks = g.Decks
	}
	cfg.AutoReopen = g.AutoReopen
	return cfg
}

// ChannelConfig resolves one standing table: base game config plus the
// channel block overrides.
func (c *Config) ChannelConfig(block ChannelBlock) game.Config {
	cfg := c.GameConfig(game.Mode(block.Mode))
	if block.MinBet > 0 {
		cfg.MinBet = block.MinBet
	}
	if block.MaxBet > 0 {
		cfg.MaxBet = block.MaxBet
	}
	if block.Decks > 0 {
		cfg.Decks = block.Decks
	}
	if block.AutoReopen != nil {
		cfg.AutoReopen = *block.AutoReopen
	}
	return cfg
}

// HeuristicsConfig maps the heuristics block onto the tracker settings.
func (c *Config) HeuristicsConfig() heuristics.Config {
	cfg := heuristics.DefaultConfig()
	h := c.Heuristics
	if h == nil {
		return cfg
	}
	if h.StreakWindow > 0 {
		cfg.StreakWindow = h.StreakWindow
	}
	if h.TiltMin != 0 || h.TiltMax != 0 {
		cfg.TiltMin = h.TiltMin
		cfg.TiltMax = h.TiltMax
	}
	if h.TiltClampAt != 0 {
		cfg.TiltClampAt = h.TiltClampAt
	}
	if h.TiltClamp != 0 {
		cfg.TiltClamp = h.TiltClamp
	}
	if h.TimeoutWindowMs > 0 {
		cfg.TimeoutWindow = time.Duration(h.TimeoutWindowMs) * time.Millisecond
	}
	if h.AFKThreshold > 0 {
		cfg.AFKThreshold = h.AFKThreshold
	}
	if h.TurnMinMs > 0 {
		cfg.TurnMin = time.Duration(h.TurnMinMs) * time.Millisecond
	}
	if h.TurnBaseMs > 0 {
		cfg.TurnBase = time.Duration(h.TurnBaseMs) * time.Millisecond
	}
	if h.TurnMaxMs > 0 {
		cfg.TurnMax = time.Duration(h.TurnMaxMs) * time.Millisecond
	}
	return cfg
}

// TournamentSettings maps the tournament_defaults block onto the controller
// settings.
func (c *Config) TournamentSettings() tournament.Settings {
	s := tournament.DefaultSettings()
	t := c.Tournament
	if t == nil {
		return s
	}
	if t.TableSize > 0 {
		s.TableSize = t.TableSize
	}
	if t.StartingChips > 0 {
		s.StartingChips = t.StartingChips
	}
	if t.IncludeTies != nil {
		s.IncludeTies = *t.IncludeTies
	}
	return s
}
