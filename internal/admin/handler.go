// Package admin is the moderator-facing REST surface: tournament creation,
// result entry, byes, and launching live matches against bracket pairings.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/bracket"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/match"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/store"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/tournament"
)

// Handler serves the admin REST API.
type Handler struct {
	tournaments *tournament.Service
	engine      *match.Engine
	logger      zerolog.Logger

	// launchMu serializes launches so the check-create-attach sequence
	// cannot interleave and spawn two live matches for one pairing
	launchMu sync.Mutex
}

// NewHandler builds the admin handler.
func NewHandler(tournaments *tournament.Service, engine *match.Engine, logger zerolog.Logger) *Handler {
	return &Handler{
		tournaments: tournaments,
		engine:      engine,
		logger:      logger.With().Str("component", "admin").Logger(),
	}
}

// Register mounts the admin routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tournaments", h.createTournament)
	mux.HandleFunc("GET /api/tournaments", h.listTournaments)
	mux.HandleFunc("GET /api/tournaments/{id}", h.getTournament)
	mux.HandleFunc("GET /api/tournaments/{id}/match-for-teams", h.matchForTeams)
	mux.HandleFunc("GET /api/tournaments/{id}/completed-matches", h.completedMatches)
	mux.HandleFunc("POST /api/tournaments/{id}/matches/{matchID}/result", h.recordResult)
	mux.HandleFunc("POST /api/tournaments/{id}/matches/{matchID}/bye", h.grantBye)
	mux.HandleFunc("POST /api/tournaments/{id}/matches/{matchID}/launch", h.launchMatch)
	mux.HandleFunc("GET /api/matches/{id}", h.getLiveMatch)
}

type createTournamentRequest struct {
	Name       string                   `json:"name"`
	Teams      map[models.TeamID]string `json:"teams"`
	Moderators []string                 `json:"moderators,omitempty"`
	InitialBye models.TeamID            `json:"initial_bye,omitempty"`
}

func (h *Handler) createTournament(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.tournaments.Create(r.Context(), tournament.CreateParams{
		Name:       req.Name,
		Teams:      req.Teams,
		Moderators: req.Moderators,
		InitialBye: req.InitialBye,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) listTournaments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.tournaments.List(r.Context(), parseLimit(r, 50))
	if err != nil {
		h.serverError(w, err, "list tournaments failed")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) getTournament(w http.ResponseWriter, r *http.Request) {
	doc, err := h.tournaments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.notFoundOrError(w, err, "get tournament failed")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type resultRequest struct {
	WinnerID models.TeamID         `json:"winner_id"`
	LoserID  models.TeamID         `json:"loser_id"`
	Scores   map[models.TeamID]any `json:"scores,omitempty"`
}

// recordResult records a manually adjudicated outcome for a bracket match.
// Duplicate submissions are harmless; the bracket ignores results for
// completed matches.
func (h *Handler) recordResult(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WinnerID == "" || req.LoserID == "" {
		writeError(w, http.StatusBadRequest, "winner_id and loser_id are required")
		return
	}
	doc, err := h.tournaments.RecordResult(r.Context(), r.PathValue("id"), models.MatchID(r.PathValue("matchID")), bracket.Result{
		WinnerID: req.WinnerID,
		LoserID:  req.LoserID,
		Scores:   req.Scores,
	})
	if err != nil {
		h.notFoundOrError(w, err, "record result failed")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type byeRequest struct {
	TeamID models.TeamID `json:"team_id"`
}

func (h *Handler) grantBye(w http.ResponseWriter, r *http.Request) {
	var req byeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" {
		writeError(w, http.StatusBadRequest, "team_id is required")
		return
	}
	doc, err := h.tournaments.GrantBye(r.Context(), r.PathValue("id"), models.MatchID(r.PathValue("matchID")), req.TeamID)
	if err != nil {
		h.notFoundOrError(w, err, "grant bye failed")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// launchMatch creates a live match for a bracket pairing and binds the two
// together. Clients then join the returned live match id over the gateway.
func (h *Handler) launchMatch(w http.ResponseWriter, r *http.Request) {
	h.launchMu.Lock()
	defer h.launchMu.Unlock()

	tournamentID := r.PathValue("id")
	matchID := models.MatchID(r.PathValue("matchID"))

	doc, err := h.tournaments.Get(r.Context(), tournamentID)
	if err != nil {
		h.notFoundOrError(w, err, "launch match failed")
		return
	}
	bm, ok := doc.State.Matches[matchID]
	if !ok {
		writeError(w, http.StatusNotFound, "bracket match not found")
		return
	}
	if bm.Status == models.MatchCompleted {
		writeError(w, http.StatusConflict, "bracket match already completed")
		return
	}
	if bm.LiveMatchID != "" {
		if live, running := h.engine.Get(bm.LiveMatchID); running {
			writeJSON(w, http.StatusOK, live)
			return
		}
	}

	live, err := h.engine.Create(r.Context(), tournamentID, bm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.tournaments.AttachLiveMatch(r.Context(), tournamentID, matchID, live.ID); err != nil {
		h.serverError(w, err, "attach live match failed")
		return
	}
	writeJSON(w, http.StatusCreated, live)
}

// matchForTeams locates the open bracket match pairing two teams, used when
// players reconnect knowing only who they are playing.
func (h *Handler) matchForTeams(w http.ResponseWriter, r *http.Request) {
	a := models.TeamID(r.URL.Query().Get("team_a"))
	b := models.TeamID(r.URL.Query().Get("team_b"))
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "team_a and team_b are required")
		return
	}
	m, ok, err := h.tournaments.FindMatchForTeams(r.Context(), r.PathValue("id"), a, b)
	if err != nil {
		h.notFoundOrError(w, err, "match lookup failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no open match for these teams")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) completedMatches(w http.ResponseWriter, r *http.Request) {
	recs, err := h.tournaments.ListCompletedMatches(r.Context(), r.PathValue("id"), parseLimit(r, 100))
	if err != nil {
		h.serverError(w, err, "list completed matches failed")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) getLiveMatch(w http.ResponseWriter, r *http.Request) {
	live, ok := h.engine.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "live match not found")
		return
	}
	writeJSON(w, http.StatusOK, live)
}

func (h *Handler) notFoundOrError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.serverError(w, err, msg)
}

func (h *Handler) serverError(w http.ResponseWriter, err error, msg string) {
	h.logger.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

func parseLimit(r *http.Request, def int64) int64 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
