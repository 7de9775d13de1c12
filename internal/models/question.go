package models

import "time"

// Question is one multiple-choice financial literacy question from the bank.
type Question struct {
	ID          string        `json:"id" bson:"_id"`
	Text        string        `json:"text" bson:"text"`
	Options     []string      `json:"options" bson:"options"`
	AnswerIndex int           `json:"answer_index" bson:"answer_index"`
	Category    string        `json:"category,omitempty" bson:"category,omitempty"`
	Difficulty  string        `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	Stats       QuestionStats `json:"stats" bson:"stats"`
}

// QuestionStats are usage counters maintained with atomic increments in the
// store as outcomes are recorded.
type QuestionStats struct {
	TimesAsked   int `json:"times_asked" bson:"times_asked"`
	TimesCorrect int `json:"times_correct" bson:"times_correct"`
}

// QueuedQuestion is a question drawn into a live match's fixed queue. The
// instance id distinguishes this appearance from any other draw of the same
// question so stale submissions can be rejected.
type QueuedQuestion struct {
	InstanceID string   `json:"instance_id" bson:"instance_id"`
	Question   Question `json:"question" bson:"question"`
}

// QuestionResultType tags how a question outcome was produced.
type QuestionResultType string

const (
	ResultPrimary QuestionResultType = "primary"
	ResultSteal   QuestionResultType = "steal"
	ResultTimeout QuestionResultType = "timeout"
)

// QuestionResult is one entry in a live match's append-only audit trail.
type QuestionResult struct {
	QuestionIndex int                `json:"question_index" bson:"question_index"`
	TeamID        TeamID             `json:"team_id" bson:"team_id"`
	Correct       bool               `json:"correct" bson:"correct"`
	Type          QuestionResultType `json:"type" bson:"type"`
	At            time.Time          `json:"at" bson:"at"`
}
