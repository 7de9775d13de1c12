package match

import (
	"context"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/bracket"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// Pause freezes an in-progress match. The timer keeps its remaining time and
// the pending expiry callback is invalidated by the sequence bump.
func (e *Engine) Pause(ctx context.Context, matchID string) Outcome {
	return e.withEntry(matchID, func(en *entry) Outcome {
		st := en.state
		if st.Status != models.LiveInProgress {
			return reject(RejectBadState)
		}
		st.EventSeq++
		e.cancelPendingLocked(en)
		if st.Timer != nil {
			t := st.Timer.Pause(e.clock.Now())
			st.Timer = &t
		}
		st.Status = models.LivePaused
		e.commitLocked(en, events.EventMatchPaused)
		return accept(false)
	})
}

// Resume re-anchors the frozen timer at a fresh deadline and rearms expiry.
func (e *Engine) Resume(ctx context.Context, matchID string) Outcome {
	return e.withEntry(matchID, func(en *entry) Outcome {
		st := en.state
		if st.Status != models.LivePaused {
			return reject(RejectBadState)
		}
		st.EventSeq++
		st.Status = models.LiveInProgress
		if st.Timer != nil && st.Timer.Status == models.TimerPaused {
			t := st.Timer.Resume(e.clock.Now())
			st.Timer = &t
			e.scheduleExpiryLocked(en, t.Deadline)
		}
		e.commitLocked(en, events.EventMatchResumed)
		return accept(false)
	})
}

// Reset throws the match back to a fresh coin toss: scores zeroed, a new
// question queue drawn, all progress discarded. The bracket is untouched.
func (e *Engine) Reset(ctx context.Context, matchID string) Outcome {
	return e.withEntry(matchID, func(en *entry) Outcome {
		st := en.state
		if st.Status == models.LiveCompleted {
			return reject(RejectBadState)
		}
		e.logger.Info().Str("match_id", st.ID).Msg("match reset by moderator")
		st.EventSeq++
		e.resetLocked(ctx, en)
		return accept(false)
	})
}

// resetLocked rewinds the match to the coin-toss phase. A failed question
// redraw keeps the existing queue rather than blocking the reset.
func (e *Engine) resetLocked(ctx context.Context, en *entry) {
	st := en.state
	e.cancelPendingLocked(en)
	if qs, err := e.source.DrawQuestions(ctx, st.TournamentID, 2*e.rules.QuestionsPerTeam); err != nil {
		e.logger.Warn().
			Err(err).
			Str("match_id", st.ID).
			Msg("question redraw failed; reusing existing queue")
	} else if len(qs) > 0 {
		st.Questions = qs
	}
	for _, team := range st.Teams {
		if team != "" {
			st.Scores[team] = 0
		}
	}
	st.QuestionIndex = 0
	st.TurnOrder = nil
	st.ActiveTeamID = ""
	st.AwaitingSteal = false
	st.Timer = nil
	st.Results = nil
	st.CoinToss = models.CoinToss{Status: models.CoinTossReady}
	st.Status = models.LiveCoinToss
	e.commitLocked(en, events.EventMatchReset)
}

// finalizeLocked closes out a match whose question queue is exhausted. A tie
// never reaches the bracket; the match silently restarts from the coin toss.
// Otherwise the result is persisted, handed to the bracket, and the match
// leaves the registry.
func (e *Engine) finalizeLocked(ctx context.Context, en *entry) {
	st := en.state
	a, b := st.Teams[0], st.Teams[1]
	if st.Scores[a] == st.Scores[b] && b != "" {
		e.logger.Info().
			Str("match_id", st.ID).
			Float64("score", st.Scores[a]).
			Msg("match ended level; restarting from coin toss")
		e.resetLocked(ctx, en)
		return
	}

	winner, loser := a, b
	if st.Scores[b] > st.Scores[a] {
		winner, loser = b, a
	}
	e.cancelPendingLocked(en)
	st.Status = models.LiveCompleted
	st.Timer = nil
	st.ActiveTeamID = ""
	st.AwaitingSteal = false
	e.commitLocked(en, events.EventMatchCompleted)
	now := e.clock.Now()

	tournamentName := st.TournamentID
	teamNames := map[models.TeamID]string{}
	if e.sink != nil {
		if name, names, err := e.sink.ResolveNames(ctx, st.TournamentID); err != nil {
			e.logger.Warn().Err(err).Str("match_id", st.ID).Msg("name resolution failed for match record")
		} else {
			tournamentName = name
			teamNames = names
		}
	}
	record := &models.CompletedMatch{
		ID:                st.ID,
		TournamentID:      st.TournamentID,
		TournamentName:    tournamentName,
		TournamentMatchID: st.TournamentMatchID,
		Teams:             st.Teams,
		TeamNames:         teamNames,
		WinnerID:          winner,
		WinnerName:        teamNames[winner],
		Scores:            map[models.TeamID]float64{winner: st.Scores[winner], loser: st.Scores[loser]},
		Results:           st.Clone().Results,
		CompletedAt:       now,
	}
	go e.recordCompleted(record)

	if e.sink != nil && st.TournamentMatchID != "" {
		res := bracket.Result{
			WinnerID: winner,
			LoserID:  loser,
			Scores:   map[models.TeamID]any{winner: st.Scores[winner], loser: st.Scores[loser]},
			Kind:     "played",
			At:       now,
		}
		if err := e.sink.CompleteMatch(ctx, st.TournamentID, st.TournamentMatchID, res); err != nil {
			e.logger.Error().
				Err(err).
				Str("match_id", st.ID).
				Str("bracket_match_id", string(st.TournamentMatchID)).
				Msg("bracket result delivery failed")
		}
	}

	e.logger.Info().
		Str("match_id", st.ID).
		Str("winner_id", string(winner)).
		Float64("winner_score", st.Scores[winner]).
		Float64("loser_score", st.Scores[loser]).
		Msg("live match completed")
	e.removeEntry(st.ID)
}

func (e *Engine) recordCompleted(rec *models.CompletedMatch) {
	ctx, cancel := contextWithStoreTimeout()
	defer cancel()
	if err := e.store.InsertCompletedMatch(ctx, rec); err != nil {
		e.logger.Error().Err(err).Str("match_id", rec.ID).Msg("completed match record write failed")
	}
}
