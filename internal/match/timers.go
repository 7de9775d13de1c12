package match

import (
	"context"
	"time"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// armQuestionTimerLocked replaces the match timer with a fresh countdown and
// schedules its expiry callback.
func (e *Engine) armQuestionTimerLocked(en *entry, typ models.TimerType) {
	e.cancelPendingLocked(en)
	d := e.rules.PrimaryDuration
	if typ == models.TimerSteal {
		d = e.rules.StealDuration
	}
	t := models.NewRunningTimer(typ, d, e.clock.Now())
	en.state.Timer = &t
	e.scheduleExpiryLocked(en, t.Deadline)
}

// scheduleExpiryLocked arms the clock callback for a running timer. The
// callback captures the event sequence, question index, and deadline at
// arming time; all three must still hold when it fires.
func (e *Engine) scheduleExpiryLocked(en *entry, deadline time.Time) {
	id := en.state.ID
	seq := en.state.EventSeq
	qIdx := en.state.QuestionIndex
	wait := deadline.Sub(e.clock.Now())
	if wait < 0 {
		wait = 0
	}
	en.pending = e.clock.AfterFunc(wait, func() {
		e.handleTimerExpire(id, seq, qIdx, deadline)
	})
}

func (e *Engine) cancelPendingLocked(en *entry) {
	if en.pending != nil {
		en.pending.Stop()
		en.pending = nil
	}
}

// handleTimerExpire is the timeout path. Any accepted transition since arming
// changed EventSeq, any pause/resume replaced the deadline, and any advance
// moved the question index; a mismatch on any of the three drops the
// callback. A callback that lands before the live deadline re-arms for the
// remainder instead of firing early.
func (e *Engine) handleTimerExpire(matchID string, seq uint64, questionIndex int, deadline time.Time) {
	e.withEntry(matchID, func(en *entry) Outcome {
		st := en.state
		if st.Status != models.LiveInProgress || st.EventSeq != seq || st.QuestionIndex != questionIndex {
			return reject(RejectStale)
		}
		t := st.Timer
		if t == nil || t.Status != models.TimerRunning || !t.Deadline.Equal(deadline) {
			return reject(RejectStale)
		}
		if now := e.clock.Now(); now.Before(t.Deadline) {
			e.scheduleExpiryLocked(en, t.Deadline)
			return reject(RejectStale)
		}
		e.expireLocked(context.Background(), en)
		return accept(false)
	})
}

// expireLocked records a timeout as an incorrect answer for whichever team
// held the clock: the active team for a primary timer, its opponent for a
// steal timer.
func (e *Engine) expireLocked(ctx context.Context, en *entry) {
	st := en.state
	team := st.ActiveTeamID
	if st.AwaitingSteal {
		team = st.Opponent(st.ActiveTeamID)
	}
	e.logger.Info().
		Str("match_id", st.ID).
		Str("team_id", string(team)).
		Int("question_index", st.QuestionIndex).
		Bool("steal", st.AwaitingSteal).
		Msg("question timer expired")
	st.EventSeq++
	e.applyOutcomeLocked(ctx, en, team, false, models.ResultTimeout)
}
