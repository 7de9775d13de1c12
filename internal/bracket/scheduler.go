// Package bracket implements the double-elimination scheduler as pure
// state-transition functions. Every exported operation takes the current
// TournamentState value and returns a new one built by copying only the
// touched paths; given the same state and event it always produces the same
// result, so transitions are safe to replay.
package bracket

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/numeric"
)

// Result is a terminal match outcome fed back into the scheduler. Scores may
// arrive as raw numbers, numeric strings, or extended-JSON wrappers; they are
// normalized before any record is touched.
type Result struct {
	WinnerID models.TeamID
	LoserID  models.TeamID
	Scores   map[models.TeamID]any
	Kind     string // history tag, "result" unless set (e.g. "bye")
	At       time.Time
}

// Options tunes tournament initialization.
type Options struct {
	// Rand drives the entrant shuffle and round-1 bye pick. Nil falls back to
	// the global source; tests inject a seeded generator.
	Rand *rand.Rand
	// InitialBye pins the round-1 bye instead of picking one at random. It is
	// ignored when the entrant count is even or the team is unknown.
	InitialBye models.TeamID
}

// Initialize shuffles the roster, selects a round-1 bye when the entrant
// count is odd, pairs the remaining teams sequentially, and creates the
// round-1 winners stage. Moderators are assigned round-robin.
func Initialize(teams []models.TeamID, moderators []string, opts Options) (models.TournamentState, error) {
	if len(teams) < 2 {
		return models.TournamentState{}, errors.New("tournament requires at least two teams")
	}
	seen := make(map[models.TeamID]struct{}, len(teams))
	for _, id := range teams {
		if id == "" {
			return models.TournamentState{}, errors.New("empty team id")
		}
		if _, dup := seen[id]; dup {
			return models.TournamentState{}, fmt.Errorf("duplicate team id %q", id)
		}
		seen[id] = struct{}{}
	}

	rng := opts.Rand
	shuffled := slices.Clone(teams)
	if rng != nil {
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
	} else {
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
	}

	s := models.TournamentState{
		Status:     models.TournamentPending,
		Records:    make(map[models.TeamID]models.TeamRecord, len(teams)),
		Stages:     make(map[models.StageID]models.Stage),
		Matches:    make(map[models.MatchID]models.BracketMatch),
		Moderators: slices.Clone(moderators),
	}
	for _, id := range teams {
		s.Records[id] = models.TeamRecord{}
	}

	entrants := shuffled
	var byes []models.TeamID
	if len(shuffled)%2 == 1 {
		bye := pickInitialBye(shuffled, opts, rng)
		rec := s.Records[bye]
		rec.InitialBye = true
		s.Records[bye] = rec
		s.InitialByeTeamID = bye
		s.Queues.Winners = []models.TeamID{bye}
		byes = []models.TeamID{bye}

		entrants = make([]models.TeamID, 0, len(shuffled)-1)
		for _, id := range shuffled {
			if id != bye {
				entrants = append(entrants, id)
			}
		}
	}

	stageID := models.StageID("winners-round-1")
	matchIDs := make([]models.MatchID, 0, len(entrants)/2)
	for i := 0; i+1 < len(entrants); i += 2 {
		id := models.MatchID(fmt.Sprintf("%s-m%d", stageID, i/2+1))
		s.Matches[id] = models.BracketMatch{
			ID:          id,
			StageID:     stageID,
			Bracket:     models.BracketWinners,
			Teams:       [2]models.TeamID{entrants[i], entrants[i+1]},
			Status:      models.MatchPending,
			ModeratorID: nextModerator(&s),
		}
		matchIDs = append(matchIDs, id)
	}
	s.Stages[stageID] = models.Stage{
		ID:       stageID,
		Label:    "Winners Round 1",
		Bracket:  models.BracketWinners,
		Order:    stageOrder(models.BracketWinners, 1),
		MatchIDs: matchIDs,
	}
	s.Rounds.Winners = []models.RoundMeta{{
		Round:    1,
		Entrants: shuffled,
		Byes:     byes,
		MatchIDs: matchIDs,
	}}
	return s, nil
}

// RecordMatchResult applies a terminal match outcome: it completes the match,
// updates both team records, routes winner and loser into the right bracket
// queues, and materializes any rounds or finals the result unblocks. Unknown
// or already-completed matches and results missing either team id leave the
// state untouched, which makes duplicate completion calls idempotent.
func RecordMatchResult(s models.TournamentState, matchID models.MatchID, res Result) models.TournamentState {
	m, ok := s.Matches[matchID]
	if !ok || m.Status == models.MatchCompleted {
		return s
	}
	if res.WinnerID == "" || res.LoserID == "" {
		return s
	}
	if _, ok := s.Records[res.WinnerID]; !ok {
		return s
	}
	if _, ok := s.Records[res.LoserID]; !ok {
		return s
	}

	scores := numeric.CoerceScores(res.Scores)
	kind := res.Kind
	if kind == "" {
		kind = "result"
	}

	next := s
	next.Matches = cloneMap(s.Matches)
	next.Records = cloneMap(s.Records)

	m.History = append(slices.Clone(m.History), models.MatchHistoryEntry{
		Kind:     kind,
		WinnerID: res.WinnerID,
		LoserID:  res.LoserID,
		Scores:   scores,
		At:       res.At,
	})
	m.Status = models.MatchCompleted
	m.WinnerID = res.WinnerID
	m.LoserID = res.LoserID
	next.Matches[matchID] = m

	w := next.Records[res.WinnerID]
	w.Wins++
	w.Points += scores[res.WinnerID]
	next.Records[res.WinnerID] = w

	l := next.Records[res.LoserID]
	l.Losses++
	l.Eliminated = l.Losses >= 2
	l.Points += scores[res.LoserID]
	next.Records[res.LoserID] = l

	next = updateProgress(next, next.Matches[matchID])
	if m.Bracket == models.BracketFinals {
		return resolveFinals(next, next.Matches[matchID], res)
	}
	return scheduleDependentStages(next)
}

// updateProgress routes a completed match's teams into bracket queues and
// marks round metadata. The loser of a winners match drops to the losers
// queue unless eliminated; the loser of a losers match is out of the
// tournament and enters nothing.
func updateProgress(s models.TournamentState, m models.BracketMatch) models.TournamentState {
	switch m.Bracket {
	case models.BracketWinners:
		s.Queues.Winners = enqueue(s.Queues.Winners, m.WinnerID)
		if !s.Records[m.LoserID].Eliminated {
			s.Queues.Losers = enqueue(s.Queues.Losers, m.LoserID)
		}
		s = markRoundResult(s, models.BracketWinners, m)
	case models.BracketLosers:
		s.Queues.Losers = enqueue(s.Queues.Losers, m.WinnerID)
		s = markRoundResult(s, models.BracketLosers, m)
	case models.BracketFinals:
		// finals never feed the queues
	}
	return s
}

func scheduleDependentStages(s models.TournamentState) models.TournamentState {
	s = scheduleNextRound(s, models.BracketWinners)
	s = scheduleNextRound(s, models.BracketLosers)
	return maybeScheduleGrandFinal(s)
}

func markRoundResult(s models.TournamentState, side models.BracketSide, m models.BracketMatch) models.TournamentState {
	rounds := roundsFor(s, side)
	idx := -1
	for i := range rounds {
		if slices.Contains(rounds[i].MatchIDs, m.ID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	updated := slices.Clone(rounds)
	r := updated[idx]
	r.Results.Winners = append(slices.Clone(r.Results.Winners), m.WinnerID)
	r.Results.Losers = append(slices.Clone(r.Results.Losers), m.LoserID)
	r.Completed = roundComplete(s, r)
	updated[idx] = r
	return setRounds(s, side, updated)
}

func pickInitialBye(shuffled []models.TeamID, opts Options, rng *rand.Rand) models.TeamID {
	if opts.InitialBye != "" && slices.Contains(shuffled, opts.InitialBye) {
		return opts.InitialBye
	}
	if rng != nil {
		return shuffled[rng.Intn(len(shuffled))]
	}
	return shuffled[rand.Intn(len(shuffled))]
}

// nextModerator hands out moderators round-robin; the cursor only advances
// when a moderator exists.
func nextModerator(s *models.TournamentState) string {
	if len(s.Moderators) == 0 {
		return ""
	}
	m := s.Moderators[s.ModeratorCursor%len(s.Moderators)]
	s.ModeratorCursor++
	return m
}

func enqueue(queue []models.TeamID, id models.TeamID) []models.TeamID {
	if id == "" || slices.Contains(queue, id) {
		return queue
	}
	return append(slices.Clone(queue), id)
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
