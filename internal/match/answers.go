package match

import (
	"context"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// SubmitAnswer grades one submission for the current question. The question
// instance id pins the submission to the question the client was looking at;
// a mismatch means the match moved on and the answer is stale, not wrong.
func (e *Engine) SubmitAnswer(ctx context.Context, matchID string, teamID models.TeamID, questionInstanceID string, answerIndex int) Outcome {
	return e.withEntry(matchID, func(en *entry) Outcome {
		st := en.state
		if st.Status != models.LiveInProgress {
			return reject(RejectBadState)
		}
		q := st.CurrentQuestion()
		if q == nil {
			return reject(RejectBadState)
		}
		if questionInstanceID != "" && questionInstanceID != q.InstanceID {
			return reject(RejectStale)
		}

		now := e.clock.Now()
		if st.Timer != nil && st.Timer.Status == models.TimerRunning &&
			now.After(st.Timer.Deadline.Add(e.rules.AnswerGrace)) {
			return reject(RejectLate)
		}

		isSteal := st.AwaitingSteal
		switch {
		case !isSteal && teamID == st.ActiveTeamID:
		case isSteal && teamID == st.Opponent(st.ActiveTeamID):
		default:
			return reject(RejectWrongTurn)
		}

		correct := answerIndex >= 0 &&
			answerIndex < len(q.Question.Options) &&
			answerIndex == q.Question.AnswerIndex

		rtype := models.ResultPrimary
		if isSteal {
			rtype = models.ResultSteal
		}
		st.EventSeq++
		e.applyOutcomeLocked(ctx, en, teamID, correct, rtype)
		return accept(correct)
	})
}

// applyOutcomeLocked routes a graded submission or timeout through the
// scoring rules. Callers bump EventSeq first so the previous question clock
// is already invalidated.
func (e *Engine) applyOutcomeLocked(ctx context.Context, en *entry, teamID models.TeamID, correct bool, rtype models.QuestionResultType) {
	st := en.state
	st.Results = append(st.Results, models.QuestionResult{
		QuestionIndex: st.QuestionIndex,
		TeamID:        teamID,
		Correct:       correct,
		Type:          rtype,
		At:            e.clock.Now(),
	})
	if q := st.CurrentQuestion(); q != nil {
		go e.recordQuestionStats(q.Question.ID, correct)
	}

	evType := events.EventAnswerRecorded
	if rtype == models.ResultTimeout {
		evType = events.EventTimerExpired
	}

	switch {
	case st.AwaitingSteal:
		// a steal attempt always closes the question, right or wrong
		if correct {
			st.Scores[teamID] += e.rules.StealPoints
		}
		st.AwaitingSteal = false
		e.advanceLocked(ctx, en, evType)
	case correct:
		st.Scores[teamID] += e.rules.PrimaryPoints
		e.advanceLocked(ctx, en, evType)
	default:
		opp := st.Opponent(teamID)
		if opp == "" {
			e.advanceLocked(ctx, en, evType)
			return
		}
		st.AwaitingSteal = true
		e.armQuestionTimerLocked(en, models.TimerSteal)
		if rtype != models.ResultTimeout {
			evType = events.EventStealOpened
		}
		e.commitLocked(en, evType)
	}
}

// advanceLocked moves the cursor to the next question or finalizes the match
// when the queue is exhausted.
func (e *Engine) advanceLocked(ctx context.Context, en *entry, evType events.EventType) {
	st := en.state
	e.cancelPendingLocked(en)
	st.QuestionIndex++
	st.AwaitingSteal = false
	if st.QuestionIndex >= len(st.Questions) || st.QuestionIndex >= len(st.TurnOrder) {
		e.finalizeLocked(ctx, en)
		return
	}
	st.ActiveTeamID = st.TurnOrder[st.QuestionIndex]
	e.armQuestionTimerLocked(en, models.TimerPrimary)
	e.commitLocked(en, evType)
}
