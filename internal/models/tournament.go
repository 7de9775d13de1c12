package models

import (
	"slices"
	"time"
)

type (
	// TeamID identifies a roster team across the bracket and live matches.
	TeamID string
	// MatchID identifies a bracket match.
	MatchID string
	// StageID identifies a bracket stage (one round in one bracket).
	StageID string
)

// TournamentStatus defines the lifecycle of a tournament.
type TournamentStatus string

const (
	TournamentPending   TournamentStatus = "pending"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

// BracketSide is one of the parallel tracks of a double-elimination bracket.
type BracketSide string

const (
	BracketWinners BracketSide = "winners"
	BracketLosers  BracketSide = "losers"
	BracketFinals  BracketSide = "finals"
)

// MatchStatus defines the lifecycle of a bracket match.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchScheduled MatchStatus = "scheduled"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
)

// TeamRecord is a team's standing inside one tournament. A team is eliminated
// once it has two losses.
type TeamRecord struct {
	Wins       int     `json:"wins" bson:"wins"`
	Losses     int     `json:"losses" bson:"losses"`
	Points     float64 `json:"points" bson:"points"`
	Eliminated bool    `json:"eliminated" bson:"eliminated"`
	InitialBye bool    `json:"initial_bye" bson:"initial_bye"`
}

// MatchHistoryEntry is one append-only record of how a bracket match resolved.
type MatchHistoryEntry struct {
	Kind     string             `json:"kind" bson:"kind"` // "result" or "bye"
	WinnerID TeamID             `json:"winner_id" bson:"winner_id"`
	LoserID  TeamID             `json:"loser_id" bson:"loser_id"`
	Scores   map[TeamID]float64 `json:"scores" bson:"scores"`
	At       time.Time          `json:"at" bson:"at"`
}

// BracketMatch is one pairing inside the bracket. Empty TeamID slots mean the
// slot is unfilled.
type BracketMatch struct {
	ID          MatchID             `json:"id" bson:"id"`
	StageID     StageID             `json:"stage_id" bson:"stage_id"`
	Bracket     BracketSide         `json:"bracket" bson:"bracket"`
	Teams       [2]TeamID           `json:"teams" bson:"teams"`
	Status      MatchStatus         `json:"status" bson:"status"`
	WinnerID    TeamID              `json:"winner_id,omitempty" bson:"winner_id,omitempty"`
	LoserID     TeamID              `json:"loser_id,omitempty" bson:"loser_id,omitempty"`
	ModeratorID string              `json:"moderator_id,omitempty" bson:"moderator_id,omitempty"`
	LiveMatchID string              `json:"live_match_id,omitempty" bson:"live_match_id,omitempty"`
	History     []MatchHistoryEntry `json:"history,omitempty" bson:"history,omitempty"`
}

// HasTeam reports whether the given team occupies one of the match slots.
func (m BracketMatch) HasTeam(id TeamID) bool {
	return id != "" && (m.Teams[0] == id || m.Teams[1] == id)
}

// OtherTeam returns the opposing slot for the given team, or "" if the team is
// not part of the match.
func (m BracketMatch) OtherTeam(id TeamID) TeamID {
	switch id {
	case m.Teams[0]:
		return m.Teams[1]
	case m.Teams[1]:
		return m.Teams[0]
	}
	return ""
}

// Stage groups the matches of one round for display.
type Stage struct {
	ID       StageID     `json:"id" bson:"id"`
	Label    string      `json:"label" bson:"label"`
	Bracket  BracketSide `json:"bracket" bson:"bracket"`
	Order    int         `json:"order" bson:"order"`
	MatchIDs []MatchID   `json:"match_ids" bson:"match_ids"`
}

// RoundResults collects who advanced and who dropped out of one round.
type RoundResults struct {
	Winners []TeamID `json:"winners" bson:"winners"`
	Losers  []TeamID `json:"losers" bson:"losers"`
}

// RoundMeta describes one derived round of a bracket.
type RoundMeta struct {
	Round     int          `json:"round" bson:"round"`
	Entrants  []TeamID     `json:"entrants" bson:"entrants"`
	Byes      []TeamID     `json:"byes,omitempty" bson:"byes,omitempty"`
	MatchIDs  []MatchID    `json:"match_ids" bson:"match_ids"`
	Results   RoundResults `json:"results" bson:"results"`
	Completed bool         `json:"completed" bson:"completed"`
}

// BracketRounds holds the derived round history per bracket.
type BracketRounds struct {
	Winners []RoundMeta `json:"winners" bson:"winners"`
	Losers  []RoundMeta `json:"losers" bson:"losers"`
}

// BracketQueues holds teams awaiting assignment to the next round per bracket.
type BracketQueues struct {
	Winners []TeamID `json:"winners" bson:"winners"`
	Losers  []TeamID `json:"losers" bson:"losers"`
}

// Champions records each bracket's champion once decided.
type Champions struct {
	Winners TeamID `json:"winners,omitempty" bson:"winners,omitempty"`
	Losers  TeamID `json:"losers,omitempty" bson:"losers,omitempty"`
}

// FinalsInfo tracks the grand final and its optional reset match.
type FinalsInfo struct {
	FinalMatchID MatchID `json:"final_match_id,omitempty" bson:"final_match_id,omitempty"`
	ResetMatchID MatchID `json:"reset_match_id,omitempty" bson:"reset_match_id,omitempty"`
}

// TournamentState is the scheduler-owned snapshot of a double-elimination
// bracket. It is immutable: every transition produces a new value via
// copy-on-write of the touched paths.
type TournamentState struct {
	Status           TournamentStatus        `json:"status" bson:"status"`
	Records          map[TeamID]TeamRecord   `json:"records" bson:"records"`
	Stages           map[StageID]Stage       `json:"stages" bson:"stages"`
	Matches          map[MatchID]BracketMatch `json:"matches" bson:"matches"`
	Rounds           BracketRounds           `json:"rounds" bson:"rounds"`
	Queues           BracketQueues           `json:"bracket_queues" bson:"bracket_queues"`
	Champions        Champions               `json:"champions" bson:"champions"`
	Finals           FinalsInfo              `json:"finals" bson:"finals"`
	InitialByeTeamID TeamID                  `json:"initial_bye_team_id,omitempty" bson:"initial_bye_team_id,omitempty"`
	ChampionID       TeamID                  `json:"champion_id,omitempty" bson:"champion_id,omitempty"`
	Moderators       []string                `json:"moderators,omitempty" bson:"moderators,omitempty"`
	ModeratorCursor  int                     `json:"moderator_cursor" bson:"moderator_cursor"`
	UsedQuestionIDs  []string                `json:"used_question_ids,omitempty" bson:"used_question_ids,omitempty"`
	StartedAt        *time.Time              `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// Tournament is the persisted document wrapping bracket state with the
// display metadata the live engine resolves names from.
type Tournament struct {
	ID        string            `json:"id" bson:"_id"`
	Name      string            `json:"name" bson:"name"`
	TeamNames map[TeamID]string `json:"team_names" bson:"team_names"`
	State     TournamentState   `json:"state" bson:"state"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy safe to hand outside the owning coordinator.
func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	out := *t
	out.TeamNames = make(map[TeamID]string, len(t.TeamNames))
	for k, v := range t.TeamNames {
		out.TeamNames[k] = v
	}
	out.State = t.State.Clone()
	return &out
}

// Clone returns a deep copy of the bracket state.
func (s TournamentState) Clone() TournamentState {
	out := s
	out.Records = make(map[TeamID]TeamRecord, len(s.Records))
	for k, v := range s.Records {
		out.Records[k] = v
	}
	out.Stages = make(map[StageID]Stage, len(s.Stages))
	for k, v := range s.Stages {
		v.MatchIDs = slices.Clone(v.MatchIDs)
		out.Stages[k] = v
	}
	out.Matches = make(map[MatchID]BracketMatch, len(s.Matches))
	for k, v := range s.Matches {
		v.History = cloneHistory(v.History)
		out.Matches[k] = v
	}
	out.Rounds.Winners = cloneRounds(s.Rounds.Winners)
	out.Rounds.Losers = cloneRounds(s.Rounds.Losers)
	out.Queues.Winners = slices.Clone(s.Queues.Winners)
	out.Queues.Losers = slices.Clone(s.Queues.Losers)
	out.Moderators = slices.Clone(s.Moderators)
	out.UsedQuestionIDs = slices.Clone(s.UsedQuestionIDs)
	if s.StartedAt != nil {
		at := *s.StartedAt
		out.StartedAt = &at
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

func cloneHistory(in []MatchHistoryEntry) []MatchHistoryEntry {
	if in == nil {
		return nil
	}
	out := make([]MatchHistoryEntry, len(in))
	for i, e := range in {
		scores := make(map[TeamID]float64, len(e.Scores))
		for k, v := range e.Scores {
			scores[k] = v
		}
		e.Scores = scores
		out[i] = e
	}
	return out
}

func cloneRounds(in []RoundMeta) []RoundMeta {
	if in == nil {
		return nil
	}
	out := make([]RoundMeta, len(in))
	for i, r := range in {
		r.Entrants = slices.Clone(r.Entrants)
		r.Byes = slices.Clone(r.Byes)
		r.MatchIDs = slices.Clone(r.MatchIDs)
		r.Results.Winners = slices.Clone(r.Results.Winners)
		r.Results.Losers = slices.Clone(r.Results.Losers)
		out[i] = r
	}
	return out
}
