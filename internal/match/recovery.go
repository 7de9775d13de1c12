package match

import (
	"context"
	"fmt"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// SnapshotLoader loads persisted non-completed live matches at startup.
type SnapshotLoader interface {
	ActiveLiveMatches(ctx context.Context) ([]*models.LiveMatch, error)
}

// Recover reloads persisted live matches after a restart and re-arms their
// clocks. A flip caught mid-reveal lands immediately since the reveal window
// died with the process; a deadline that passed while the process was down
// expires right away as a normal timeout. Returns the number of matches
// restored.
func (e *Engine) Recover(ctx context.Context, loader SnapshotLoader) (int, error) {
	snaps, err := loader.ActiveLiveMatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("load live match snapshots: %w", err)
	}

	restored := 0
	for _, st := range snaps {
		if st == nil || st.Status == models.LiveCompleted {
			continue
		}
		en := &entry{state: st}
		e.mu.Lock()
		if _, exists := e.entries[st.ID]; exists {
			e.mu.Unlock()
			continue
		}
		e.entries[st.ID] = en
		e.mu.Unlock()
		restored++

		en.mu.Lock()
		if st.Status == models.LiveCoinToss && st.CoinToss.Status == models.CoinTossFlipping {
			st.EventSeq++
			st.CoinToss.Status = models.CoinTossFlipped
			e.commitLocked(en, events.EventCoinFlipped)
		}
		if st.Status == models.LiveInProgress && st.Timer != nil && st.Timer.Status == models.TimerRunning {
			if st.Timer.Expired(e.clock.Now()) {
				e.expireLocked(ctx, en)
			} else {
				e.scheduleExpiryLocked(en, st.Timer.Deadline)
			}
		}
		status := en.state.Status
		en.mu.Unlock()

		e.logger.Info().
			Str("match_id", st.ID).
			Str("tournament_id", st.TournamentID).
			Str("status", string(status)).
			Msg("live match restored from snapshot")
	}
	return restored, nil
}
