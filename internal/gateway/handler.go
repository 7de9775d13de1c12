package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
)

// Handler serves the WebSocket entry points.
type Handler struct {
	manager  *ConnectionManager
	commands *CommandRouter
	logger   zerolog.Logger
}

// NewHandler builds the gateway HTTP handler.
func NewHandler(manager *ConnectionManager, commands *CommandRouter, logger zerolog.Logger) *Handler {
	return &Handler{
		manager:  manager,
		commands: commands,
		logger:   logger.With().Str("component", "gateway-http").Logger(),
	}
}

// Register mounts the gateway routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/match", h.serveMatch)
	mux.HandleFunc("GET /ws/tournament", h.serveTournament)
	mux.HandleFunc("GET /ws/stats", h.serveStats)
}

// serveMatch joins a client to a live match feed. The client receives the
// current snapshot immediately, then every committed transition.
func (h *Handler) serveMatch(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match_id")
	if matchID == "" {
		http.Error(w, "match_id is required", http.StatusBadRequest)
		return
	}
	if _, ok := h.commands.engine.Get(matchID); !ok {
		http.Error(w, "match not found", http.StatusNotFound)
		return
	}

	conn, err := h.manager.UpgradeConnection(w, r, events.MatchTopic(matchID), matchID)
	if err != nil {
		return
	}
	h.commands.sendSnapshot(conn)
}

// serveTournament joins a client to a bracket feed. Tournament sockets are
// read-only; bracket snapshots arrive after every recorded result.
func (h *Handler) serveTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID := r.URL.Query().Get("tournament_id")
	if tournamentID == "" {
		http.Error(w, "tournament_id is required", http.StatusBadRequest)
		return
	}
	if _, err := h.manager.UpgradeConnection(w, r, events.TournamentTopic(tournamentID), ""); err != nil {
		return
	}
}

func (h *Handler) serveStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.manager.Stats()); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode gateway stats")
	}
}
