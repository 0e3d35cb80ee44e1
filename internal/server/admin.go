package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/lox/cardroom/internal/auth"
	"github.com/lox/cardroom/internal/game"
	"github.com/lox/cardroom/internal/history"
	"github.com/lox/cardroom/internal/store"
	"github.com/lox/cardroom/internal/tournament"
)

// AdminAPI serves the operational endpoints on the admin listener: health,
// metrics, channel and tournament snapshots, round history, and role
// management. Everything under /admin/ requires the shared secret when one
// is configured.
type AdminAPI struct {
	logger  zerolog.Logger
	arena   *game.Arena
	ctrl    *tournament.Controller
	hub     *Hub
	history *history.Manager
	roles   *auth.Directory
	metrics *Metrics
	secret  string
}

// AdminDeps wires the admin surface. Controller, History, and Roles may be
// nil; their endpoints degrade to empty answers or 404s.
type AdminDeps struct {
	Logger     zerolog.Logger
	Arena      *game.Arena
	Controller *tournament.Controller
	Hub        *Hub
	History    *history.Manager
	Roles      *auth.Directory
	Metrics    *Metrics
	Secret     string
}

// NewAdminAPI builds the admin surface.
func NewAdminAPI(deps AdminDeps) *AdminAPI {
	return &AdminAPI{
		logger:  deps.Logger.With().Str("component", "admin").Logger(),
		arena:   deps.Arena,
		ctrl:    deps.Controller,
		hub:     deps.Hub,
		history: deps.History,
		roles:   deps.Roles,
		metrics: deps.Metrics,
		secret:  deps.Secret,
	}
}

// Handler builds the admin mux.
func (a *AdminAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/admin/channels", a.guarded(a.handleChannels))
	mux.HandleFunc("/admin/stats", a.guarded(a.handleStats))
	mux.HandleFunc("/admin/history", a.guarded(a.handleHistory))
	mux.HandleFunc("/admin/role", a.guarded(a.handleRole))
	return mux
}

func (a *AdminAPI) guarded(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.secret != "" && r.Header.Get("X-Admin-Secret") != a.secret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (a *AdminAPI) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *AdminAPI) handleChannels(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, a.arena.List())
}

// StatsResponse is the /admin/stats snapshot.
type StatsResponse struct {
	Channels    int               `json:"channels"`
	Subscribers map[string]int    `json:"subscribers"`
	Tournaments []tournament.View `json:"tournaments"`
}

func (a *AdminAPI) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := StatsResponse{
		Channels:    len(a.arena.Names()),
		Subscribers: a.hub.Counts(),
	}
	if a.ctrl != nil {
		stats.Tournaments = a.ctrl.List()
	}
	a.writeJSON(w, stats)
}

func (a *AdminAPI) handleHistory(w http.ResponseWriter, r *http.Request) {
	channel := normalizeChannel(r.URL.Query().Get("channel"))
	if !game.ValidChannelName(channel) {
		http.Error(w, "invalid channel", http.StatusBadRequest)
		return
	}
	if a.history == nil {
		a.writeJSON(w, []store.RoundRecord{})
		return
	}
	a.writeJSON(w, a.history.Recent(channel, 0))
}

// RoleRequest sets a stored role through the directory authorizer.
type RoleRequest struct {
	Login string `json:"login"`
	Role  string `json:"role"`
}

func (a *AdminAPI) handleRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.roles == nil {
		http.Error(w, "role directory not configured", http.StatusNotFound)
		return
	}

	var req RoleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	if err := a.roles.SetRole(req.Login, role); err != nil {
		http.Error(w, "invalid login", http.StatusBadRequest)
		return
	}
	a.writeJSON(w, map[string]string{"login": req.Login, "role": string(role)})
}

func (a *AdminAPI) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error().Err(err).Msg("admin response write failed")
	}
}
