// Package events defines the envelope and payload types pushed to real-time
// subscribers, and the in-process bus that fans them out. Topics are
// "match.<id>" for live matches and "tournament.<id>" for bracket snapshots.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// EventType labels what a broadcast envelope carries.
type EventType string

const (
	EventMatchCreated    EventType = "MatchCreated"
	EventMatchState      EventType = "MatchState"
	EventCoinFlipping    EventType = "CoinFlipping"
	EventCoinFlipped     EventType = "CoinFlipped"
	EventTurnDecided     EventType = "TurnDecided"
	EventAnswerRecorded  EventType = "AnswerRecorded"
	EventStealOpened     EventType = "StealOpened"
	EventTimerExpired    EventType = "TimerExpired"
	EventMatchPaused     EventType = "MatchPaused"
	EventMatchResumed    EventType = "MatchResumed"
	EventMatchReset      EventType = "MatchReset"
	EventMatchCompleted  EventType = "MatchCompleted"
	EventTournamentState EventType = "TournamentState"
)

// Envelope is the wire format for every broadcast event.
type Envelope struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope wraps a payload for the given topic.
func NewEnvelope(topic string, typ EventType, at time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Envelope{
		ID:        uuid.NewString(),
		Topic:     topic,
		Type:      typ,
		Timestamp: at,
		Data:      data,
	}, nil
}

// MatchTopic returns the per-match broadcast topic.
func MatchTopic(matchID string) string {
	return "match." + matchID
}

// TournamentTopic returns the per-tournament broadcast topic.
func TournamentTopic(tournamentID string) string {
	return "tournament." + tournamentID
}

// Publisher is what state owners need from the fan-out side. The NATS relay
// decorates it to mirror envelopes outside the process.
type Publisher interface {
	Publish(topic string, env Envelope) error
}

// PublicQuestion is a question as broadcast to subscribers: no answer index.
type PublicQuestion struct {
	InstanceID string   `json:"instance_id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Category   string   `json:"category,omitempty"`
}

// TimerView is the broadcast shape of a timer, with remaining time
// recomputed from the deadline at publish time.
type TimerView struct {
	Type        models.TimerType   `json:"type"`
	Status      models.TimerStatus `json:"status"`
	DurationMs  int64              `json:"duration_ms"`
	RemainingMs int64              `json:"remaining_ms"`
	Deadline    *time.Time         `json:"deadline,omitempty"`
}

// CoinTossView hides the toss result while the reveal animation runs.
type CoinTossView struct {
	Status   models.CoinTossStatus    `json:"status"`
	WinnerID models.TeamID            `json:"winner_id,omitempty"`
	Result   models.CoinFace          `json:"result,omitempty"`
	Decision *models.CoinTossDecision `json:"decision,omitempty"`
}

// MatchSnapshot is the slimmed broadcast payload for a live match. It omits
// the full question queue and the raw results array to bound message size;
// only the current question (without its answer) and the most recent result
// are included.
type MatchSnapshot struct {
	ID                string                    `json:"id"`
	TournamentID      string                    `json:"tournament_id"`
	TournamentMatchID models.MatchID            `json:"tournament_match_id"`
	Status            models.LiveMatchStatus    `json:"status"`
	Teams             [2]models.TeamID          `json:"teams"`
	Scores            map[models.TeamID]float64 `json:"scores"`
	QuestionIndex     int                       `json:"question_index"`
	QuestionCount     int                       `json:"question_count"`
	CurrentQuestion   *PublicQuestion           `json:"current_question,omitempty"`
	ActiveTeamID      models.TeamID             `json:"active_team_id,omitempty"`
	AwaitingSteal     bool                      `json:"awaiting_steal"`
	Timer             *TimerView                `json:"timer,omitempty"`
	CoinToss          CoinTossView              `json:"coin_toss"`
	LastResult        *models.QuestionResult    `json:"last_result,omitempty"`
	EventSeq          uint64                    `json:"event_seq"`
}

// SnapshotMatch builds the slim broadcast view of a live match.
func SnapshotMatch(m *models.LiveMatch, now time.Time) MatchSnapshot {
	snap := MatchSnapshot{
		ID:                m.ID,
		TournamentID:      m.TournamentID,
		TournamentMatchID: m.TournamentMatchID,
		Status:            m.Status,
		Teams:             m.Teams,
		Scores:            make(map[models.TeamID]float64, len(m.Scores)),
		QuestionIndex:     m.QuestionIndex,
		QuestionCount:     len(m.Questions),
		ActiveTeamID:      m.ActiveTeamID,
		AwaitingSteal:     m.AwaitingSteal,
		EventSeq:          m.EventSeq,
	}
	for k, v := range m.Scores {
		snap.Scores[k] = v
	}

	snap.CoinToss = CoinTossView{Status: m.CoinToss.Status, Decision: m.CoinToss.Decision}
	if m.CoinToss.Status != models.CoinTossFlipping {
		// the outcome stays hidden until the reveal lands
		snap.CoinToss.WinnerID = m.CoinToss.WinnerID
		snap.CoinToss.Result = m.CoinToss.Result
	}

	if m.Status == models.LiveInProgress || m.Status == models.LivePaused {
		if q := m.CurrentQuestion(); q != nil {
			snap.CurrentQuestion = &PublicQuestion{
				InstanceID: q.InstanceID,
				Text:       q.Question.Text,
				Options:    q.Question.Options,
				Category:   q.Question.Category,
			}
		}
	}
	if m.Timer != nil {
		tv := TimerView{
			Type:        m.Timer.Type,
			Status:      m.Timer.Status,
			DurationMs:  m.Timer.DurationMs,
			RemainingMs: m.Timer.Remaining(now).Milliseconds(),
		}
		if m.Timer.Status == models.TimerRunning {
			d := m.Timer.Deadline
			tv.Deadline = &d
		}
		snap.Timer = &tv
	}
	if len(m.Results) > 0 {
		last := m.Results[len(m.Results)-1]
		snap.LastResult = &last
	}
	return snap
}

// TournamentSnapshot is the broadcast payload for bracket updates.
type TournamentSnapshot struct {
	ID        string                    `json:"id"`
	Name      string                    `json:"name"`
	TeamNames map[models.TeamID]string  `json:"team_names"`
	State     models.TournamentState    `json:"state"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// SnapshotTournament builds the broadcast view of a tournament document.
func SnapshotTournament(t *models.Tournament) TournamentSnapshot {
	return TournamentSnapshot{
		ID:        t.ID,
		Name:      t.Name,
		TeamNames: t.TeamNames,
		State:     t.State,
		UpdatedAt: t.UpdatedAt,
	}
}
