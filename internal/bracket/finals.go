package bracket

import (
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// maybeScheduleGrandFinal creates the grand final once both bracket
// champions exist.
func maybeScheduleGrandFinal(s models.TournamentState) models.TournamentState {
	if s.Champions.Winners == "" || s.Champions.Losers == "" || s.Finals.FinalMatchID != "" {
		return s
	}

	stageID := models.StageID("grand-final")
	matchID := models.MatchID("grand-final-m1")
	next := s
	next.Matches = cloneMap(s.Matches)
	next.Stages = cloneMap(s.Stages)

	next.Matches[matchID] = models.BracketMatch{
		ID:          matchID,
		StageID:     stageID,
		Bracket:     models.BracketFinals,
		Teams:       [2]models.TeamID{s.Champions.Winners, s.Champions.Losers},
		Status:      models.MatchPending,
		ModeratorID: nextModerator(&next),
	}
	next.Stages[stageID] = models.Stage{
		ID:       stageID,
		Label:    "Grand Final",
		Bracket:  models.BracketFinals,
		Order:    stageOrder(models.BracketFinals, 0),
		MatchIDs: []models.MatchID{matchID},
	}
	next.Finals.FinalMatchID = matchID
	return next
}

// resolveFinals handles a completed finals match. A losers-bracket champion
// winning the first grand final forces one reset match — unless the defeated
// winners-bracket champion only got there off the round-1 bye. The reset
// match, when played, is final regardless of outcome.
func resolveFinals(s models.TournamentState, m models.BracketMatch, res Result) models.TournamentState {
	switch m.ID {
	case s.Finals.ResetMatchID:
		return completeTournament(s, res)
	case s.Finals.FinalMatchID:
		if res.WinnerID == s.Champions.Losers && res.LoserID != s.InitialByeTeamID {
			return scheduleResetMatch(s)
		}
		return completeTournament(s, res)
	}
	return s
}

func scheduleResetMatch(s models.TournamentState) models.TournamentState {
	if s.Finals.ResetMatchID != "" {
		return s
	}

	stageID := models.StageID("grand-final-reset")
	matchID := models.MatchID("grand-final-reset-m1")
	next := s
	next.Matches = cloneMap(s.Matches)
	next.Stages = cloneMap(s.Stages)

	next.Matches[matchID] = models.BracketMatch{
		ID:          matchID,
		StageID:     stageID,
		Bracket:     models.BracketFinals,
		Teams:       [2]models.TeamID{s.Champions.Winners, s.Champions.Losers},
		Status:      models.MatchPending,
		ModeratorID: nextModerator(&next),
	}
	next.Stages[stageID] = models.Stage{
		ID:       stageID,
		Label:    "Grand Final Reset",
		Bracket:  models.BracketFinals,
		Order:    stageOrder(models.BracketFinals, 1),
		MatchIDs: []models.MatchID{matchID},
	}
	next.Finals.ResetMatchID = matchID
	return next
}

func completeTournament(s models.TournamentState, res Result) models.TournamentState {
	s.ChampionID = res.WinnerID
	s.Status = models.TournamentCompleted
	if !res.At.IsZero() {
		at := res.At
		s.CompletedAt = &at
	}
	return s
}
