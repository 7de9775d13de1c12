package bracket

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

func teamIDs(n int) []models.TeamID {
	out := make([]models.TeamID, n)
	for i := range out {
		out[i] = models.TeamID(fmt.Sprintf("team-%02d", i+1))
	}
	return out
}

func playedResult(winner, loser models.TeamID) Result {
	return Result{
		WinnerID: winner,
		LoserID:  loser,
		Scores:   map[models.TeamID]any{winner: 10, loser: 5},
		At:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// openMatches returns non-completed non-finals-pending matches sorted by id.
func openMatches(s models.TournamentState) []models.BracketMatch {
	var out []models.BracketMatch
	for _, m := range s.Matches {
		if m.Status != models.MatchCompleted {
			out = append(out, m)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].ID < out[i].ID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// runToCompletion resolves every open match with the lexicographically
// smaller team winning until the tournament completes.
func runToCompletion(t *testing.T, s models.TournamentState) models.TournamentState {
	t.Helper()
	for i := 0; i < 200; i++ {
		if s.Status == models.TournamentCompleted {
			return s
		}
		open := openMatches(s)
		require.NotEmpty(t, open, "tournament stalled with no open matches")
		m := open[0]
		winner, loser := m.Teams[0], m.Teams[1]
		if loser < winner {
			winner, loser = loser, winner
		}
		s = RecordMatchResult(s, m.ID, playedResult(winner, loser))
		assertQueuesHoldOnlyStandingTeams(t, s)
	}
	t.Fatal("tournament did not complete within step budget")
	return s
}

// assertQueuesHoldOnlyStandingTeams checks that bracket queues only ever list
// teams still awaiting assignment: never an eliminated team, never a crowned
// champion.
func assertQueuesHoldOnlyStandingTeams(t *testing.T, s models.TournamentState) {
	t.Helper()
	for _, q := range [][]models.TeamID{s.Queues.Winners, s.Queues.Losers} {
		for _, id := range q {
			assert.False(t, s.Records[id].Eliminated, "eliminated team %s still queued", id)
			assert.NotEqual(t, s.Champions.Winners, id, "winners champion %s still queued", id)
			assert.NotEqual(t, s.Champions.Losers, id, "losers champion %s still queued", id)
		}
	}
}

func TestInitializeEvenRoster(t *testing.T) {
	s, err := Initialize(teamIDs(4), []string{"mod-a", "mod-b"}, Options{Rand: rand.New(rand.NewSource(7))})
	require.NoError(t, err)

	assert.Equal(t, models.TournamentPending, s.Status)
	assert.Empty(t, s.InitialByeTeamID)
	assert.Len(t, s.Matches, 2)
	assert.Len(t, s.Records, 4)
	assert.Empty(t, s.Queues.Winners)

	stage, ok := s.Stages["winners-round-1"]
	require.True(t, ok)
	assert.Len(t, stage.MatchIDs, 2)

	// moderators alternate round-robin
	mods := map[string]bool{}
	for _, id := range stage.MatchIDs {
		mods[s.Matches[id].ModeratorID] = true
	}
	assert.Equal(t, map[string]bool{"mod-a": true, "mod-b": true}, mods)

	require.Len(t, s.Rounds.Winners, 1)
	assert.Equal(t, 1, s.Rounds.Winners[0].Round)
	assert.Len(t, s.Rounds.Winners[0].Entrants, 4)
}

func TestInitializeOddRosterPinnedBye(t *testing.T) {
	s, err := Initialize(teamIDs(3), nil, Options{
		Rand:       rand.New(rand.NewSource(7)),
		InitialBye: "team-02",
	})
	require.NoError(t, err)

	assert.Equal(t, models.TeamID("team-02"), s.InitialByeTeamID)
	assert.True(t, s.Records["team-02"].InitialBye)
	assert.Equal(t, []models.TeamID{"team-02"}, s.Queues.Winners)
	assert.Len(t, s.Matches, 1)

	var m models.BracketMatch
	for _, mm := range s.Matches {
		m = mm
	}
	assert.False(t, m.HasTeam("team-02"))
}

func TestInitializeRejectsBadRosters(t *testing.T) {
	_, err := Initialize([]models.TeamID{"solo"}, nil, Options{})
	assert.Error(t, err)

	_, err = Initialize([]models.TeamID{"a", "a"}, nil, Options{})
	assert.Error(t, err)

	_, err = Initialize([]models.TeamID{"a", ""}, nil, Options{})
	assert.Error(t, err)
}

func TestRecordMatchResultUpdatesRecordsAndQueues(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	m := openMatches(s)[0]
	winner, loser := m.Teams[0], m.Teams[1]
	next := RecordMatchResult(s, m.ID, playedResult(winner, loser))

	assert.Equal(t, models.MatchCompleted, next.Matches[m.ID].Status)
	assert.Equal(t, winner, next.Matches[m.ID].WinnerID)
	assert.Equal(t, 1, next.Records[winner].Wins)
	assert.Equal(t, 10.0, next.Records[winner].Points)
	assert.Equal(t, 1, next.Records[loser].Losses)
	assert.False(t, next.Records[loser].Eliminated)
	assert.Contains(t, next.Queues.Winners, winner)
	assert.Contains(t, next.Queues.Losers, loser)

	// the original value is untouched
	assert.Equal(t, models.MatchPending, s.Matches[m.ID].Status)
	assert.Zero(t, s.Records[winner].Wins)
}

func TestRecordMatchResultIdempotent(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	m := openMatches(s)[0]
	res := playedResult(m.Teams[0], m.Teams[1])
	once := RecordMatchResult(s, m.ID, res)
	twice := RecordMatchResult(once, m.ID, res)

	assert.Equal(t, once.Records, twice.Records)
	assert.Equal(t, once.Queues, twice.Queues)
	assert.Equal(t, once.Matches[m.ID], twice.Matches[m.ID])
}

func TestRecordMatchResultIgnoresBadInput(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	m := openMatches(s)[0]
	assert.Equal(t, s, RecordMatchResult(s, "no-such-match", playedResult(m.Teams[0], m.Teams[1])))
	assert.Equal(t, s, RecordMatchResult(s, m.ID, Result{WinnerID: m.Teams[0]}))
	assert.Equal(t, s, RecordMatchResult(s, m.ID, Result{WinnerID: "stranger", LoserID: m.Teams[1]}))
}

func TestScoresCoercedFromWireShapes(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	m := openMatches(s)[0]
	winner, loser := m.Teams[0], m.Teams[1]
	next := RecordMatchResult(s, m.ID, Result{
		WinnerID: winner,
		LoserID:  loser,
		Scores: map[models.TeamID]any{
			winner: map[string]any{"$numberInt": "25"},
			loser:  "15",
		},
		At: time.Now(),
	})
	assert.Equal(t, 25.0, next.Records[winner].Points)
	assert.Equal(t, 15.0, next.Records[loser].Points)
}

func TestLoneLoserDoesNotBecomeChampionEarly(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	m := openMatches(s)[0]
	next := RecordMatchResult(s, m.ID, playedResult(m.Teams[0], m.Teams[1]))
	assert.Empty(t, next.Champions.Losers)
	assert.Empty(t, next.Finals.FinalMatchID)
}

func TestRunToCompletionSizes(t *testing.T) {
	for n := 2; n <= 9; n++ {
		t.Run(fmt.Sprintf("teams-%d", n), func(t *testing.T) {
			opts := Options{Rand: rand.New(rand.NewSource(int64(n)))}
			s, err := Initialize(teamIDs(n), []string{"mod-a"}, opts)
			require.NoError(t, err)

			final := runToCompletion(t, s)
			assert.Equal(t, models.TournamentCompleted, final.Status)
			assert.NotEmpty(t, final.ChampionID)
			require.NotNil(t, final.CompletedAt)

			// the champion is standing; every other team was eliminated or
			// lost the last finals match
			assert.Less(t, final.Records[final.ChampionID].Losses, 2)
			for id, rec := range final.Records {
				if id == final.ChampionID {
					continue
				}
				if !rec.Eliminated {
					// only the grand-final loser can survive with one loss
					assert.Equal(t, 1, rec.Losses, "team %s not eliminated with %d losses", id, rec.Losses)
				}
			}
			for _, m := range final.Matches {
				assert.Equal(t, models.MatchCompleted, m.Status, "match %s left open", m.ID)
			}

			// nobody awaits assignment once the tournament is over
			assert.Empty(t, final.Queues.Winners)
			assert.Empty(t, final.Queues.Losers)
		})
	}
}

// TestQueuesNeverHoldEliminatedTeams drives tournaments of varying sizes with
// randomized outcomes and checks the queue invariant after every single
// transition, including the terminal one where a finals loss eliminates a
// bracket champion.
func TestQueuesNeverHoldEliminatedTeams(t *testing.T) {
	for n := 2; n <= 12; n++ {
		for seed := int64(1); seed <= 20; seed++ {
			t.Run(fmt.Sprintf("teams-%d-seed-%d", n, seed), func(t *testing.T) {
				rng := rand.New(rand.NewSource(seed))
				s, err := Initialize(teamIDs(n), nil, Options{Rand: rng})
				require.NoError(t, err)

				for i := 0; i < 400 && s.Status != models.TournamentCompleted; i++ {
					open := openMatches(s)
					require.NotEmpty(t, open, "tournament stalled with no open matches")
					m := open[rng.Intn(len(open))]
					winner, loser := m.Teams[0], m.Teams[1]
					if rng.Intn(2) == 1 {
						winner, loser = loser, winner
					}
					s = RecordMatchResult(s, m.ID, playedResult(winner, loser))
					assertQueuesHoldOnlyStandingTeams(t, s)
				}
				require.Equal(t, models.TournamentCompleted, s.Status)
				assert.Empty(t, s.Queues.Winners)
				assert.Empty(t, s.Queues.Losers)
			})
		}
	}
}

func TestGrandFinalResetWhenLosersChampionWinsFirstFinal(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(3))})
	require.NoError(t, err)

	// drive until the grand final exists, then force the losers-bracket
	// champion to win it
	for i := 0; i < 50 && s.Finals.FinalMatchID == ""; i++ {
		m := openMatches(s)[0]
		winner, loser := m.Teams[0], m.Teams[1]
		if loser < winner {
			winner, loser = loser, winner
		}
		s = RecordMatchResult(s, m.ID, playedResult(winner, loser))
	}
	require.NotEmpty(t, s.Finals.FinalMatchID)

	gf := s.Matches[s.Finals.FinalMatchID]
	require.Equal(t, s.Champions.Winners, gf.Teams[0])
	require.Equal(t, s.Champions.Losers, gf.Teams[1])

	s = RecordMatchResult(s, gf.ID, playedResult(s.Champions.Losers, s.Champions.Winners))
	require.NotEmpty(t, s.Finals.ResetMatchID, "losers champion win must force a reset match")
	assert.NotEqual(t, models.TournamentCompleted, s.Status)

	// the reset match is final regardless of outcome
	reset := s.Matches[s.Finals.ResetMatchID]
	s = RecordMatchResult(s, reset.ID, playedResult(s.Champions.Winners, s.Champions.Losers))
	assert.Equal(t, models.TournamentCompleted, s.Status)
	assert.Equal(t, s.Champions.Winners, s.ChampionID)

	// the losers champion just took its second loss; the terminal snapshot
	// must not keep it (or anyone) queued
	assert.True(t, s.Records[s.Champions.Losers].Eliminated)
	assert.Empty(t, s.Queues.Winners)
	assert.Empty(t, s.Queues.Losers)
}

func TestNoResetWhenWinnersChampionWinsFirstFinal(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(3))})
	require.NoError(t, err)

	for i := 0; i < 50 && s.Finals.FinalMatchID == ""; i++ {
		m := openMatches(s)[0]
		winner, loser := m.Teams[0], m.Teams[1]
		if loser < winner {
			winner, loser = loser, winner
		}
		s = RecordMatchResult(s, m.ID, playedResult(winner, loser))
	}
	require.NotEmpty(t, s.Finals.FinalMatchID)

	gf := s.Matches[s.Finals.FinalMatchID]
	s = RecordMatchResult(s, gf.ID, playedResult(s.Champions.Winners, s.Champions.Losers))
	assert.Empty(t, s.Finals.ResetMatchID)
	assert.Equal(t, models.TournamentCompleted, s.Status)
	assert.Equal(t, s.Champions.Winners, s.ChampionID)
}

func TestRoundTwoByeGoesToPointsLeader(t *testing.T) {
	// six teams: winners round 1 has three matches, so three winners queue up
	// and the next round byes the points leader
	s, err := Initialize(teamIDs(6), nil, Options{Rand: rand.New(rand.NewSource(5))})
	require.NoError(t, err)
	require.Len(t, s.Rounds.Winners[0].MatchIDs, 3)

	round1 := s.Rounds.Winners[0].MatchIDs
	scores := []float64{30, 50, 10}
	var leaders []models.TeamID
	for i, id := range round1 {
		m := s.Matches[id]
		s = RecordMatchResult(s, id, Result{
			WinnerID: m.Teams[0],
			LoserID:  m.Teams[1],
			Scores:   map[models.TeamID]any{m.Teams[0]: scores[i], m.Teams[1]: 0},
			At:       time.Now(),
		})
		leaders = append(leaders, m.Teams[0])
	}

	require.Len(t, s.Rounds.Winners, 2)
	round2 := s.Rounds.Winners[1]
	require.Len(t, round2.Byes, 1)
	assert.Equal(t, leaders[1], round2.Byes[0], "bye must go to the 50-point winner")
	assert.Equal(t, []models.TeamID{leaders[1]}, s.Queues.Winners)
}

func TestGrantMatchBye(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	m := openMatches(s)[0]
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	next := GrantMatchBye(s, m.ID, m.Teams[1], at)

	got := next.Matches[m.ID]
	assert.Equal(t, models.MatchCompleted, got.Status)
	assert.Equal(t, m.Teams[1], got.WinnerID)
	require.Len(t, got.History, 1)
	assert.Equal(t, "bye", got.History[0].Kind)
	assert.Zero(t, next.Records[m.Teams[1]].Points)

	// a bye for a non-participant is ignored
	assert.Equal(t, s, GrantMatchBye(s, m.ID, "stranger", at))
}

func TestAttachDetachLiveMatch(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	m := openMatches(s)[0]
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	attached := AttachLiveMatch(s, m.ID, "live-1", now)
	assert.Equal(t, "live-1", attached.Matches[m.ID].LiveMatchID)
	assert.Equal(t, models.MatchActive, attached.Matches[m.ID].Status)
	assert.Equal(t, models.TournamentActive, attached.Status)
	require.NotNil(t, attached.StartedAt)
	assert.Equal(t, now, *attached.StartedAt)

	detached := DetachLiveMatch(attached, m.ID)
	assert.Empty(t, detached.Matches[m.ID].LiveMatchID)
	assert.Equal(t, models.MatchScheduled, detached.Matches[m.ID].Status)
}

func TestFindMatchForTeams(t *testing.T) {
	s, err := Initialize(teamIDs(4), nil, Options{Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, err)

	m := openMatches(s)[0]
	found, ok := FindMatchForTeams(s, m.Teams[1], m.Teams[0])
	require.True(t, ok)
	assert.Equal(t, m.ID, found.ID)

	_, ok = FindMatchForTeams(s, m.Teams[0], "stranger")
	assert.False(t, ok)

	done := RecordMatchResult(s, m.ID, playedResult(m.Teams[0], m.Teams[1]))
	_, ok = FindMatchForTeams(done, m.Teams[0], m.Teams[1])
	assert.False(t, ok)
}
