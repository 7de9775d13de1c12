package bracket

import (
	"slices"
	"time"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// GrantMatchBye advances teamID without play. Legal only while the match is
// in a pre-live status with both slots filled; the bye is synthesized as a
// 0-0 result and routed through RecordMatchResult so progression logic is
// reused, not duplicated.
func GrantMatchBye(s models.TournamentState, matchID models.MatchID, teamID models.TeamID, at time.Time) models.TournamentState {
	m, ok := s.Matches[matchID]
	if !ok || teamID == "" {
		return s
	}
	if m.Status != models.MatchPending && m.Status != models.MatchScheduled {
		return s
	}
	if m.Teams[0] == "" || m.Teams[1] == "" || !m.HasTeam(teamID) {
		return s
	}
	other := m.OtherTeam(teamID)
	return RecordMatchResult(s, matchID, Result{
		WinnerID: teamID,
		LoserID:  other,
		Scores:   map[models.TeamID]any{teamID: 0, other: 0},
		Kind:     "bye",
		At:       at,
	})
}

// AttachLiveMatch binds a bracket match to a live match id without touching
// score state. The first attach flips the tournament to active and stamps
// StartedAt.
func AttachLiveMatch(s models.TournamentState, matchID models.MatchID, liveMatchID string, now time.Time) models.TournamentState {
	m, ok := s.Matches[matchID]
	if !ok || liveMatchID == "" || m.Status == models.MatchCompleted {
		return s
	}
	next := s
	next.Matches = cloneMap(s.Matches)
	m.LiveMatchID = liveMatchID
	m.Status = models.MatchActive
	next.Matches[matchID] = m
	if next.Status == models.TournamentPending {
		next.Status = models.TournamentActive
	}
	if next.StartedAt == nil {
		at := now
		next.StartedAt = &at
	}
	return next
}

// DetachLiveMatch clears the live-match binding. A still-active match drops
// back to scheduled; a completed match keeps its result.
func DetachLiveMatch(s models.TournamentState, matchID models.MatchID) models.TournamentState {
	m, ok := s.Matches[matchID]
	if !ok || m.LiveMatchID == "" {
		return s
	}
	next := s
	next.Matches = cloneMap(s.Matches)
	m.LiveMatchID = ""
	if m.Status == models.MatchActive {
		m.Status = models.MatchScheduled
	}
	next.Matches[matchID] = m
	return next
}

// FindMatchForTeams returns the first non-completed match pairing the two
// teams in either slot order, for reconnection scenarios.
func FindMatchForTeams(s models.TournamentState, a, b models.TeamID) (models.BracketMatch, bool) {
	if a == "" || b == "" {
		return models.BracketMatch{}, false
	}
	ids := make([]models.MatchID, 0, len(s.Matches))
	for id := range s.Matches {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		m := s.Matches[id]
		if m.Status == models.MatchCompleted {
			continue
		}
		if (m.Teams[0] == a && m.Teams[1] == b) || (m.Teams[0] == b && m.Teams[1] == a) {
			return m, true
		}
	}
	return models.BracketMatch{}, false
}
