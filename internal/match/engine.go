// Package match runs live head-to-head trivia matches: coin toss, timed
// turn-based questions with the steal mechanic, pause/resume, and
// finalization into the bracket scheduler. Every mutation for a given match
// id is serialized behind that match's lock; asynchronous timer callbacks
// acquire the same lock and are invalidated by the event-sequence,
// question-index, and deadline staleness checks.
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/bracket"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// Rules are the per-deployment match parameters.
type Rules struct {
	QuestionsPerTeam int
	PrimaryDuration  time.Duration
	StealDuration    time.Duration
	PrimaryPoints    float64
	StealPoints      float64
	// AnswerGrace tolerates network and clock skew on submissions that land
	// just after the deadline; it never extends playable time.
	AnswerGrace time.Duration
	// CoinRevealDelay is the flip animation window before the toss result is
	// broadcast. Zero reveals immediately.
	CoinRevealDelay time.Duration
}

// DefaultRules returns the standard match parameters.
func DefaultRules() Rules {
	return Rules{
		QuestionsPerTeam: 5,
		PrimaryDuration:  30 * time.Second,
		StealDuration:    15 * time.Second,
		PrimaryPoints:    10,
		StealPoints:      5,
		AnswerGrace:      1500 * time.Millisecond,
		CoinRevealDelay:  3 * time.Second,
	}
}

// RejectReason explains why a command was not applied. Rejections never
// mutate state and are recoverable by the caller.
type RejectReason string

const (
	RejectUnknownMatch RejectReason = "unknown-match"
	RejectBadState     RejectReason = "bad-state"
	RejectWrongTurn    RejectReason = "wrong-turn"
	RejectStale        RejectReason = "stale"
	RejectLate         RejectReason = "late"
)

// Outcome acknowledges a command: accepted (with grading, for answers) or
// rejected with a reason.
type Outcome struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	Correct  bool         `json:"correct,omitempty"`
}

func accept(correct bool) Outcome {
	return Outcome{Accepted: true, Correct: correct}
}

func reject(reason RejectReason) Outcome {
	return Outcome{Reason: reason}
}

// SnapshotStore persists live-match state. Writes are best effort: in-memory
// state is authoritative and a failed write is logged, never rolled back.
type SnapshotStore interface {
	UpsertLiveMatch(ctx context.Context, m *models.LiveMatch) error
	InsertCompletedMatch(ctx context.Context, rec *models.CompletedMatch) error
	IncrementQuestionStats(ctx context.Context, questionID string, correct bool) error
}

// QuestionSource draws a match's question queue, preferring questions not
// yet used in the tournament.
type QuestionSource interface {
	DrawQuestions(ctx context.Context, tournamentID string, count int) ([]models.QueuedQuestion, error)
}

// ResultSink receives terminal match results and resolves display names; the
// tournament coordinator implements it.
type ResultSink interface {
	CompleteMatch(ctx context.Context, tournamentID string, matchID models.MatchID, res bracket.Result) error
	ResolveNames(ctx context.Context, tournamentID string) (string, map[models.TeamID]string, error)
}

// Engine owns every in-flight live match. The registry map is guarded by the
// engine mutex; each match's state is guarded by its own lock so matches
// progress independently.
type Engine struct {
	rules  Rules
	clock  clockwork.Clock
	store  SnapshotStore
	source QuestionSource
	sink   ResultSink
	bus    events.Publisher
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	state   *models.LiveMatch
	pending clockwork.Timer // handle of the next scheduled callback, if any
}

// NewEngine wires the live match engine.
func NewEngine(rules Rules, clock clockwork.Clock, store SnapshotStore, source QuestionSource, sink ResultSink, bus events.Publisher, logger zerolog.Logger) *Engine {
	return &Engine{
		rules:   rules,
		clock:   clock,
		store:   store,
		source:  source,
		sink:    sink,
		bus:     bus,
		logger:  logger.With().Str("component", "match-engine").Logger(),
		entries: make(map[string]*entry),
	}
}

// Create draws the question queue and registers a fresh match in the
// coin-toss phase, bound to the given bracket match.
func (e *Engine) Create(ctx context.Context, tournamentID string, bm models.BracketMatch) (*models.LiveMatch, error) {
	if bm.Teams[0] == "" || bm.Teams[1] == "" {
		return nil, errors.New("both team slots must be filled")
	}
	questions, err := e.source.DrawQuestions(ctx, tournamentID, 2*e.rules.QuestionsPerTeam)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, errors.New("question bank is empty")
	}

	now := e.clock.Now()
	st := &models.LiveMatch{
		ID:                uuid.NewString(),
		TournamentID:      tournamentID,
		TournamentMatchID: bm.ID,
		Teams:             bm.Teams,
		Scores:            map[models.TeamID]float64{bm.Teams[0]: 0, bm.Teams[1]: 0},
		Questions:         questions,
		Status:            models.LiveCoinToss,
		CoinToss:          models.CoinToss{Status: models.CoinTossReady},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	en := &entry{state: st}

	e.mu.Lock()
	e.entries[st.ID] = en
	e.mu.Unlock()

	en.mu.Lock()
	e.commitLocked(en, events.EventMatchCreated)
	en.mu.Unlock()

	e.logger.Info().
		Str("match_id", st.ID).
		Str("tournament_id", tournamentID).
		Str("bracket_match_id", string(bm.ID)).
		Int("questions", len(questions)).
		Msg("live match created")
	return st.Clone(), nil
}

// Get returns a deep copy of a registered match's current state.
func (e *Engine) Get(matchID string) (*models.LiveMatch, bool) {
	e.mu.Lock()
	en, ok := e.entries[matchID]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.state.Clone(), true
}

// withEntry serializes fn against all other transitions for the match.
func (e *Engine) withEntry(matchID string, fn func(*entry) Outcome) Outcome {
	e.mu.Lock()
	en, ok := e.entries[matchID]
	e.mu.Unlock()
	if !ok {
		return reject(RejectUnknownMatch)
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return fn(en)
}

func (e *Engine) removeEntry(matchID string) {
	e.mu.Lock()
	delete(e.entries, matchID)
	e.mu.Unlock()
}

// commitLocked stamps the transition, kicks off the best-effort persist, and
// pushes the slimmed snapshot to subscribers. Callers bump EventSeq before
// arming timers so pending callbacks are invalidated first.
func (e *Engine) commitLocked(en *entry, typ events.EventType) {
	now := e.clock.Now()
	en.state.UpdatedAt = now
	snap := en.state.Clone()
	go e.persist(snap)

	env, err := events.NewEnvelope(events.MatchTopic(snap.ID), typ, now, events.SnapshotMatch(snap, now))
	if err != nil {
		e.logger.Error().Err(err).Str("match_id", snap.ID).Msg("failed to build broadcast envelope")
		return
	}
	if err := e.bus.Publish(env.Topic, env); err != nil {
		e.logger.Error().Err(err).Str("match_id", snap.ID).Msg("broadcast publish failed")
	}
}

func contextWithStoreTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (e *Engine) persist(snap *models.LiveMatch) {
	ctx, cancel := contextWithStoreTimeout()
	defer cancel()
	if err := e.store.UpsertLiveMatch(ctx, snap); err != nil {
		e.logger.Error().
			Err(err).
			Str("match_id", snap.ID).
			Msg("live match persist failed; in-memory state remains authoritative")
	}
}

func (e *Engine) recordQuestionStats(questionID string, correct bool) {
	ctx, cancel := contextWithStoreTimeout()
	defer cancel()
	if err := e.store.IncrementQuestionStats(ctx, questionID, correct); err != nil {
		e.logger.Warn().Err(err).Str("question_id", questionID).Msg("question stats update failed")
	}
}
