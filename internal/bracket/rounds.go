package bracket

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// scheduleNextRound creates the next round for a bracket once its latest
// round has no unfinished matches. Entrants come from the bracket's queue
// minus eliminated teams, seeded by total points descending (ties broken by
// id). An odd entrant count byes the points leader into the following round.
// A queue of exactly one team crowns that bracket's champion; an empty queue
// does nothing — the losers bracket is allowed to stall until more teams
// drop down.
func scheduleNextRound(s models.TournamentState, side models.BracketSide) models.TournamentState {
	if side == models.BracketFinals {
		return s
	}
	rounds := roundsFor(s, side)
	if len(rounds) > 0 && !roundComplete(s, rounds[len(rounds)-1]) {
		return s
	}

	queue := queueFor(s, side)
	eligible := make([]models.TeamID, 0, len(queue))
	for _, id := range queue {
		if !s.Records[id].Eliminated {
			eligible = append(eligible, id)
		}
	}
	switch len(eligible) {
	case 0:
		return s
	case 1:
		// a lone team in the losers queue is only the bracket champion once
		// no winners match can drop another team down
		if side == models.BracketLosers && !losersBracketDrained(s) {
			return s
		}
		return recordChampion(s, side, eligible[0])
	}

	roundNum := 1
	if len(rounds) > 0 {
		roundNum = rounds[len(rounds)-1].Round + 1
	}

	seeded := seedByPoints(s, eligible)
	entrants := seeded
	var byes []models.TeamID
	if len(seeded)%2 == 1 {
		byes = []models.TeamID{seeded[0]}
		entrants = seeded[1:]
	}

	stageID := models.StageID(fmt.Sprintf("%s-round-%d", side, roundNum))
	next := s
	next.Matches = cloneMap(s.Matches)
	next.Stages = cloneMap(s.Stages)

	matchIDs := make([]models.MatchID, 0, len(entrants)/2)
	for i := 0; i+1 < len(entrants); i += 2 {
		id := models.MatchID(fmt.Sprintf("%s-m%d", stageID, i/2+1))
		next.Matches[id] = models.BracketMatch{
			ID:          id,
			StageID:     stageID,
			Bracket:     side,
			Teams:       [2]models.TeamID{entrants[i], entrants[i+1]},
			Status:      models.MatchPending,
			ModeratorID: nextModerator(&next),
		}
		matchIDs = append(matchIDs, id)
	}
	next.Stages[stageID] = models.Stage{
		ID:       stageID,
		Label:    fmt.Sprintf("%s Round %d", sideLabel(side), roundNum),
		Bracket:  side,
		Order:    stageOrder(side, roundNum),
		MatchIDs: matchIDs,
	}

	meta := models.RoundMeta{
		Round:    roundNum,
		Entrants: seeded,
		Byes:     byes,
		MatchIDs: matchIDs,
	}
	next = setRounds(next, side, append(slices.Clone(rounds), meta))
	return setQueue(next, side, slices.Clone(byes))
}

// seedByPoints orders entrants by accumulated points descending, breaking
// ties by id so pairing stays deterministic.
func seedByPoints(s models.TournamentState, teams []models.TeamID) []models.TeamID {
	out := slices.Clone(teams)
	slices.SortFunc(out, func(a, b models.TeamID) int {
		if c := cmp.Compare(s.Records[b].Points, s.Records[a].Points); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return out
}

// losersBracketDrained reports that no future entrant can reach the losers
// queue: the winners bracket has crowned its champion and every non-finals
// match has resolved.
func losersBracketDrained(s models.TournamentState) bool {
	if s.Champions.Winners == "" {
		return false
	}
	for _, m := range s.Matches {
		if m.Bracket != models.BracketFinals && m.Status != models.MatchCompleted {
			return false
		}
	}
	return true
}

// recordChampion crowns the side's champion and empties its queue. The
// champion advances to the finals, so nothing on that side awaits assignment
// any longer; a stale entry would otherwise linger in the terminal snapshot
// once the champion picks up a finals loss.
func recordChampion(s models.TournamentState, side models.BracketSide, team models.TeamID) models.TournamentState {
	switch side {
	case models.BracketWinners:
		if s.Champions.Winners == "" {
			s.Champions.Winners = team
		}
	case models.BracketLosers:
		if s.Champions.Losers == "" {
			s.Champions.Losers = team
		}
	}
	return setQueue(s, side, nil)
}

func roundComplete(s models.TournamentState, r models.RoundMeta) bool {
	for _, id := range r.MatchIDs {
		if s.Matches[id].Status != models.MatchCompleted {
			return false
		}
	}
	return true
}

func roundsFor(s models.TournamentState, side models.BracketSide) []models.RoundMeta {
	if side == models.BracketWinners {
		return s.Rounds.Winners
	}
	return s.Rounds.Losers
}

func setRounds(s models.TournamentState, side models.BracketSide, rounds []models.RoundMeta) models.TournamentState {
	if side == models.BracketWinners {
		s.Rounds.Winners = rounds
	} else {
		s.Rounds.Losers = rounds
	}
	return s
}

func queueFor(s models.TournamentState, side models.BracketSide) []models.TeamID {
	if side == models.BracketWinners {
		return s.Queues.Winners
	}
	return s.Queues.Losers
}

func setQueue(s models.TournamentState, side models.BracketSide, queue []models.TeamID) models.TournamentState {
	if side == models.BracketWinners {
		s.Queues.Winners = queue
	} else {
		s.Queues.Losers = queue
	}
	return s
}

func sideLabel(side models.BracketSide) string {
	if side == models.BracketWinners {
		return "Winners"
	}
	return "Losers"
}

// stageOrder keeps winners rounds ahead of losers rounds ahead of finals in
// display order; scheduling never depends on it.
func stageOrder(side models.BracketSide, roundNum int) int {
	switch side {
	case models.BracketWinners:
		return roundNum
	case models.BracketLosers:
		return 100 + roundNum
	default:
		return 200 + roundNum
	}
}
