package match

import (
	"context"
	"math/rand"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// FlipCoin starts the coin toss. The outcome is fixed immediately but stays
// hidden from subscribers until the reveal delay lands; force overrides the
// random draw for staged demos. Heads favors team slot 0, tails slot 1.
func (e *Engine) FlipCoin(ctx context.Context, matchID string, force *models.CoinFace) Outcome {
	return e.withEntry(matchID, func(en *entry) Outcome {
		st := en.state
		if st.Status != models.LiveCoinToss || st.CoinToss.Status != models.CoinTossReady {
			return reject(RejectBadState)
		}

		face := models.FaceHeads
		if force != nil {
			face = *force
		} else if rand.Intn(2) == 1 {
			face = models.FaceTails
		}
		winner := st.Teams[0]
		if face == models.FaceTails {
			winner = st.Teams[1]
		}

		st.EventSeq++
		st.CoinToss = models.CoinToss{
			Status:   models.CoinTossFlipping,
			WinnerID: winner,
			Result:   face,
		}

		if e.rules.CoinRevealDelay <= 0 {
			st.CoinToss.Status = models.CoinTossFlipped
			e.commitLocked(en, events.EventCoinFlipped)
			return accept(false)
		}

		id := st.ID
		seq := st.EventSeq
		e.cancelPendingLocked(en)
		en.pending = e.clock.AfterFunc(e.rules.CoinRevealDelay, func() {
			e.revealCoin(id, seq)
		})
		e.commitLocked(en, events.EventCoinFlipping)
		return accept(false)
	})
}

// revealCoin lands the flip after the animation window. A reset during the
// window bumps EventSeq, so the stale callback is dropped here.
func (e *Engine) revealCoin(matchID string, seq uint64) {
	e.withEntry(matchID, func(en *entry) Outcome {
		st := en.state
		if st.Status != models.LiveCoinToss || st.CoinToss.Status != models.CoinTossFlipping || st.EventSeq != seq {
			return reject(RejectStale)
		}
		st.EventSeq++
		st.CoinToss.Status = models.CoinTossFlipped
		e.commitLocked(en, events.EventCoinFlipped)
		return accept(false)
	})
}

// DecideFirst records the toss winner's choice of who answers first, builds
// the alternating turn order, and starts the first question clock.
func (e *Engine) DecideFirst(ctx context.Context, matchID string, deciderID, firstTeamID models.TeamID) Outcome {
	return e.withEntry(matchID, func(en *entry) Outcome {
		st := en.state
		if st.Status != models.LiveCoinToss || st.CoinToss.Status != models.CoinTossFlipped {
			return reject(RejectBadState)
		}
		if deciderID != st.CoinToss.WinnerID {
			return reject(RejectWrongTurn)
		}
		if !st.HasTeam(firstTeamID) {
			return reject(RejectBadState)
		}

		st.EventSeq++
		st.CoinToss.Status = models.CoinTossDecided
		st.CoinToss.Decision = &models.CoinTossDecision{
			DeciderID:   deciderID,
			FirstTeamID: firstTeamID,
		}
		st.TurnOrder = buildTurnOrder(firstTeamID, st.Opponent(firstTeamID), e.rules.QuestionsPerTeam)
		st.Status = models.LiveInProgress
		st.QuestionIndex = 0
		st.ActiveTeamID = st.TurnOrder[0]
		st.AwaitingSteal = false
		e.armQuestionTimerLocked(en, models.TimerPrimary)
		e.commitLocked(en, events.EventTurnDecided)

		e.logger.Info().
			Str("match_id", st.ID).
			Str("first_team", string(firstTeamID)).
			Msg("turn order decided; match in progress")
		return accept(false)
	})
}

// buildTurnOrder alternates the two teams, each holding perTeam primary
// questions. When one team's quota runs out the other keeps the remaining
// slots in sequence.
func buildTurnOrder(first, second models.TeamID, perTeam int) []models.TeamID {
	quota := map[models.TeamID]int{first: perTeam}
	total := perTeam
	if second != "" {
		quota[second] = perTeam
		total += perTeam
	}

	order := make([]models.TeamID, 0, total)
	cur := first
	for len(order) < total {
		if quota[cur] == 0 {
			if cur == first {
				cur = second
			} else {
				cur = first
			}
		}
		order = append(order, cur)
		quota[cur]--
		next := second
		if cur == second {
			next = first
		}
		if next != "" && quota[next] > 0 {
			cur = next
		}
	}
	return order
}
