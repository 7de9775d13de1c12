// Package tournament coordinates persisted tournament documents with the
// pure bracket scheduler: it owns the in-memory working set, serializes
// transitions per process, persists after each one, and broadcasts bracket
// snapshots.
package tournament

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/bracket"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/store"
)

// Repository is what the coordinator needs from persistence.
type Repository interface {
	SaveTournament(ctx context.Context, t *models.Tournament) error
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	ListTournaments(ctx context.Context, limit int64) ([]*models.Tournament, error)
	SampleQuestions(ctx context.Context, excludeIDs []string, count int) ([]models.Question, error)
	ListCompletedMatches(ctx context.Context, tournamentID string, limit int64) ([]*models.CompletedMatch, error)
}

// Service owns tournament documents. All bracket transitions for a given
// document run under the service lock; the scheduler itself stays pure.
type Service struct {
	repo   Repository
	bus    events.Publisher
	clock  clockwork.Clock
	logger zerolog.Logger

	mu   sync.Mutex
	docs map[string]*models.Tournament
}

// NewService builds the tournament coordinator.
func NewService(repo Repository, bus events.Publisher, clock clockwork.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		clock:  clock,
		logger: logger.With().Str("component", "tournament").Logger(),
		docs:   make(map[string]*models.Tournament),
	}
}

// CreateParams describes a new tournament.
type CreateParams struct {
	Name       string
	Teams      map[models.TeamID]string // id -> display name
	Moderators []string
	InitialBye models.TeamID
}

// Create initializes a bracket for the given roster and persists it.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Tournament, error) {
	teamIDs := make([]models.TeamID, 0, len(params.Teams))
	for id := range params.Teams {
		teamIDs = append(teamIDs, id)
	}
	state, err := bracket.Initialize(teamIDs, params.Moderators, bracket.Options{InitialBye: params.InitialBye})
	if err != nil {
		return nil, fmt.Errorf("initialize bracket: %w", err)
	}

	now := s.clock.Now()
	names := make(map[models.TeamID]string, len(params.Teams))
	for id, name := range params.Teams {
		names[id] = name
	}
	doc := &models.Tournament{
		ID:        uuid.NewString(),
		Name:      params.Name,
		TeamNames: names,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()

	if err := s.repo.SaveTournament(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist tournament: %w", err)
	}
	s.publish(doc)
	s.logger.Info().
		Str("tournament_id", doc.ID).
		Str("name", doc.Name).
		Int("teams", len(teamIDs)).
		Msg("tournament created")
	return doc.Clone(), nil
}

// Get returns a deep copy of the tournament document.
func (s *Service) Get(ctx context.Context, id string) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// List returns stored tournaments, newest first.
func (s *Service) List(ctx context.Context, limit int64) ([]*models.Tournament, error) {
	return s.repo.ListTournaments(ctx, limit)
}

// ListCompletedMatches returns a tournament's match history.
func (s *Service) ListCompletedMatches(ctx context.Context, tournamentID string, limit int64) ([]*models.CompletedMatch, error) {
	return s.repo.ListCompletedMatches(ctx, tournamentID, limit)
}

// RecordResult applies a terminal match result to the bracket.
func (s *Service) RecordResult(ctx context.Context, tournamentID string, matchID models.MatchID, res bracket.Result) (*models.Tournament, error) {
	if res.At.IsZero() {
		res.At = s.clock.Now()
	}
	return s.transition(ctx, tournamentID, func(state models.TournamentState) models.TournamentState {
		return bracket.RecordMatchResult(state, matchID, res)
	})
}

// GrantBye advances a team without play.
func (s *Service) GrantBye(ctx context.Context, tournamentID string, matchID models.MatchID, teamID models.TeamID) (*models.Tournament, error) {
	at := s.clock.Now()
	return s.transition(ctx, tournamentID, func(state models.TournamentState) models.TournamentState {
		return bracket.GrantMatchBye(state, matchID, teamID, at)
	})
}

// AttachLiveMatch binds a bracket match to a running live match.
func (s *Service) AttachLiveMatch(ctx context.Context, tournamentID string, matchID models.MatchID, liveMatchID string) (*models.Tournament, error) {
	now := s.clock.Now()
	return s.transition(ctx, tournamentID, func(state models.TournamentState) models.TournamentState {
		return bracket.AttachLiveMatch(state, matchID, liveMatchID, now)
	})
}

// DetachLiveMatch clears a bracket match's live binding.
func (s *Service) DetachLiveMatch(ctx context.Context, tournamentID string, matchID models.MatchID) (*models.Tournament, error) {
	return s.transition(ctx, tournamentID, func(state models.TournamentState) models.TournamentState {
		return bracket.DetachLiveMatch(state, matchID)
	})
}

// FindMatchForTeams locates the open bracket match pairing two teams.
func (s *Service) FindMatchForTeams(ctx context.Context, tournamentID string, a, b models.TeamID) (models.BracketMatch, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked(ctx, tournamentID)
	if err != nil {
		return models.BracketMatch{}, false, err
	}
	m, ok := bracket.FindMatchForTeams(doc.State, a, b)
	return m, ok, nil
}

// CompleteMatch feeds a live-match result into the bracket and clears the
// live binding. It implements the engine's result sink.
func (s *Service) CompleteMatch(ctx context.Context, tournamentID string, matchID models.MatchID, res bracket.Result) error {
	if res.At.IsZero() {
		res.At = s.clock.Now()
	}
	_, err := s.transition(ctx, tournamentID, func(state models.TournamentState) models.TournamentState {
		state = bracket.RecordMatchResult(state, matchID, res)
		return bracket.DetachLiveMatch(state, matchID)
	})
	return err
}

// ResolveNames returns a tournament's display name and team name map for
// historical records.
func (s *Service) ResolveNames(ctx context.Context, tournamentID string) (string, map[models.TeamID]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked(ctx, tournamentID)
	if err != nil {
		return "", nil, err
	}
	names := make(map[models.TeamID]string, len(doc.TeamNames))
	for k, v := range doc.TeamNames {
		names[k] = v
	}
	return doc.Name, names, nil
}

// DrawQuestions samples a match's question queue, preferring questions the
// tournament has not used yet, and records the drawn ids as used. It
// implements the engine's question source.
func (s *Service) DrawQuestions(ctx context.Context, tournamentID string, count int) ([]models.QueuedQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	qs, err := s.repo.SampleQuestions(ctx, doc.State.UsedQuestionIDs, count)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}

	queued := make([]models.QueuedQuestion, len(qs))
	used := doc.State.UsedQuestionIDs
	for i, q := range qs {
		queued[i] = models.QueuedQuestion{InstanceID: uuid.NewString(), Question: q}
		used = append(used, q.ID)
	}
	doc.State.UsedQuestionIDs = used
	doc.UpdatedAt = s.clock.Now()
	s.persistAsync(doc.Clone())
	return queued, nil
}

// transition loads the document, applies the pure bracket function, persists
// the new value, and broadcasts the updated snapshot.
func (s *Service) transition(ctx context.Context, tournamentID string, fn func(models.TournamentState) models.TournamentState) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	doc.State = fn(doc.State)
	doc.UpdatedAt = s.clock.Now()
	snap := doc.Clone()
	s.persistAsync(snap)
	s.publish(snap)
	return doc.Clone(), nil
}

// loadLocked returns the working copy, faulting it in from the store on
// first access. Callers hold s.mu.
func (s *Service) loadLocked(ctx context.Context, id string) (*models.Tournament, error) {
	if doc, ok := s.docs[id]; ok {
		return doc, nil
	}
	doc, err := s.repo.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	s.docs[id] = doc
	return doc, nil
}

func (s *Service) persistAsync(snap *models.Tournament) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveTournament(ctx, snap); err != nil {
			s.logger.Error().
				Err(err).
				Str("tournament_id", snap.ID).
				Msg("tournament persist failed; in-memory state remains authoritative")
		}
	}()
}

func (s *Service) publish(doc *models.Tournament) {
	env, err := events.NewEnvelope(events.TournamentTopic(doc.ID), events.EventTournamentState, doc.UpdatedAt, events.SnapshotTournament(doc))
	if err != nil {
		s.logger.Error().Err(err).Str("tournament_id", doc.ID).Msg("failed to build bracket envelope")
		return
	}
	if err := s.bus.Publish(env.Topic, env); err != nil {
		s.logger.Error().Err(err).Str("tournament_id", doc.ID).Msg("bracket broadcast failed")
	}
}

var _ Repository = (*store.Store)(nil)
