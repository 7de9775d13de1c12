package models

import (
	"slices"
	"time"
)

// LiveMatchStatus defines the live match state machine.
type LiveMatchStatus string

const (
	LiveCoinToss   LiveMatchStatus = "coin-toss"
	LiveInProgress LiveMatchStatus = "in-progress"
	LivePaused     LiveMatchStatus = "paused"
	LiveCompleted  LiveMatchStatus = "completed"
)

// CoinTossStatus defines the sub-machine inside the coin-toss phase.
type CoinTossStatus string

const (
	CoinTossReady    CoinTossStatus = "ready"
	CoinTossFlipping CoinTossStatus = "flipping"
	CoinTossFlipped  CoinTossStatus = "flipped"
	CoinTossDecided  CoinTossStatus = "decided"
)

// CoinFace is a coin toss outcome. Heads maps to team slot 0, tails to slot 1.
type CoinFace string

const (
	FaceHeads CoinFace = "heads"
	FaceTails CoinFace = "tails"
)

// CoinTossDecision records the toss winner's choice of who answers first.
type CoinTossDecision struct {
	DeciderID   TeamID `json:"decider_id" bson:"decider_id"`
	FirstTeamID TeamID `json:"first_team_id" bson:"first_team_id"`
}

// CoinToss is the coin-toss phase state of a live match.
type CoinToss struct {
	Status   CoinTossStatus    `json:"status" bson:"status"`
	WinnerID TeamID            `json:"winner_id,omitempty" bson:"winner_id,omitempty"`
	Result   CoinFace          `json:"result,omitempty" bson:"result,omitempty"`
	Decision *CoinTossDecision `json:"decision,omitempty" bson:"decision,omitempty"`
}

// LiveMatch is the engine-owned mutable state of one real-time match. All
// mutations for a given id are serialized behind the engine's per-match lock;
// EventSeq increases monotonically per accepted transition and invalidates
// stale timer callbacks.
type LiveMatch struct {
	ID                string             `json:"id" bson:"_id"`
	TournamentID      string             `json:"tournament_id" bson:"tournament_id"`
	TournamentMatchID MatchID            `json:"tournament_match_id" bson:"tournament_match_id"`
	Teams             [2]TeamID          `json:"teams" bson:"teams"`
	Scores            map[TeamID]float64 `json:"scores" bson:"scores"`
	Questions         []QueuedQuestion   `json:"questions" bson:"questions"`
	QuestionIndex     int                `json:"question_index" bson:"question_index"`
	TurnOrder         []TeamID           `json:"turn_order,omitempty" bson:"turn_order,omitempty"`
	ActiveTeamID      TeamID             `json:"active_team_id,omitempty" bson:"active_team_id,omitempty"`
	AwaitingSteal     bool               `json:"awaiting_steal" bson:"awaiting_steal"`
	Status            LiveMatchStatus    `json:"status" bson:"status"`
	Timer             *Timer             `json:"timer,omitempty" bson:"timer,omitempty"`
	CoinToss          CoinToss           `json:"coin_toss" bson:"coin_toss"`
	EventSeq          uint64             `json:"event_seq" bson:"event_seq"`
	Results           []QuestionResult   `json:"results,omitempty" bson:"results,omitempty"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

// CurrentQuestion returns the question at the cursor, or nil when exhausted.
func (m *LiveMatch) CurrentQuestion() *QueuedQuestion {
	if m.QuestionIndex < 0 || m.QuestionIndex >= len(m.Questions) {
		return nil
	}
	return &m.Questions[m.QuestionIndex]
}

// HasTeam reports whether the team plays in this match.
func (m *LiveMatch) HasTeam(id TeamID) bool {
	return id != "" && (m.Teams[0] == id || m.Teams[1] == id)
}

// Opponent returns the opposing team, or "" for an unknown team or an
// unfilled opposing slot.
func (m *LiveMatch) Opponent(id TeamID) TeamID {
	switch id {
	case m.Teams[0]:
		return m.Teams[1]
	case m.Teams[1]:
		return m.Teams[0]
	}
	return ""
}

// Clone returns a deep copy safe for async persistence and publishing while
// the original keeps mutating under the engine lock.
func (m *LiveMatch) Clone() *LiveMatch {
	if m == nil {
		return nil
	}
	out := *m
	out.Scores = make(map[TeamID]float64, len(m.Scores))
	for k, v := range m.Scores {
		out.Scores[k] = v
	}
	out.Questions = make([]QueuedQuestion, len(m.Questions))
	for i, q := range m.Questions {
		q.Question.Options = slices.Clone(q.Question.Options)
		out.Questions[i] = q
	}
	out.TurnOrder = slices.Clone(m.TurnOrder)
	out.Results = slices.Clone(m.Results)
	if m.Timer != nil {
		t := *m.Timer
		out.Timer = &t
	}
	if m.CoinToss.Decision != nil {
		d := *m.CoinToss.Decision
		out.CoinToss.Decision = &d
	}
	return &out
}

// CompletedMatch is the historical record written once a live match finalizes,
// with display names resolved so listings need no joins.
type CompletedMatch struct {
	ID                string             `json:"id" bson:"_id"`
	TournamentID      string             `json:"tournament_id" bson:"tournament_id"`
	TournamentName    string             `json:"tournament_name" bson:"tournament_name"`
	TournamentMatchID MatchID            `json:"tournament_match_id" bson:"tournament_match_id"`
	Teams             [2]TeamID          `json:"teams" bson:"teams"`
	TeamNames         map[TeamID]string  `json:"team_names" bson:"team_names"`
	WinnerID          TeamID             `json:"winner_id" bson:"winner_id"`
	WinnerName        string             `json:"winner_name" bson:"winner_name"`
	Scores            map[TeamID]float64 `json:"scores" bson:"scores"`
	Results           []QuestionResult   `json:"results,omitempty" bson:"results,omitempty"`
	CompletedAt       time.Time          `json:"completed_at" bson:"completed_at"`
}
