package tournament

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/bracket"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/store"
)

type fakeRepo struct {
	mu    sync.Mutex
	docs  map[string]*models.Tournament
	saves int
	bank  []models.Question
}

func newFakeRepo() *fakeRepo {
	bank := make([]models.Question, 30)
	for i := range bank {
		bank[i] = models.Question{
			ID:          fmt.Sprintf("q-%02d", i),
			Text:        fmt.Sprintf("question %d", i),
			Options:     []string{"a", "b", "c", "d"},
			AnswerIndex: i % 4,
		}
	}
	return &fakeRepo{docs: make(map[string]*models.Tournament), bank: bank}
}

func (f *fakeRepo) SaveTournament(ctx context.Context, t *models.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[t.ID] = t.Clone()
	f.saves++
	return nil
}

func (f *fakeRepo) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("tournament %s: %w", id, store.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (f *fakeRepo) ListTournaments(ctx context.Context, limit int64) ([]*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Tournament, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc.Clone())
	}
	return out, nil
}

func (f *fakeRepo) SampleQuestions(ctx context.Context, excludeIDs []string, count int) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []models.Question
	for _, q := range f.bank {
		if len(out) == count {
			break
		}
		if !excluded[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListCompletedMatches(ctx context.Context, tournamentID string, limit int64) ([]*models.CompletedMatch, error) {
	return nil, nil
}

type captureBus struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (c *captureBus) Publish(topic string, env events.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envelopes = append(c.envelopes, env)
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *captureBus) {
	t.Helper()
	repo := newFakeRepo()
	bus := &captureBus{}
	svc := NewService(repo, bus, clockwork.NewFakeClock(), zerolog.Nop())
	return svc, repo, bus
}

func createFour(t *testing.T, svc *Service) *models.Tournament {
	t.Helper()
	doc, err := svc.Create(context.Background(), CreateParams{
		Name: "Spring Classic",
		Teams: map[models.TeamID]string{
			"team-a": "Alpha", "team-b": "Bravo", "team-c": "Charlie", "team-d": "Delta",
		},
		Moderators: []string{"mod-1"},
	})
	require.NoError(t, err)
	return doc
}

func firstOpenMatch(doc *models.Tournament) models.BracketMatch {
	var best models.BracketMatch
	for _, m := range doc.State.Matches {
		if m.Status == models.MatchCompleted {
			continue
		}
		if best.ID == "" || m.ID < best.ID {
			best = m
		}
	}
	return best
}

func TestCreatePersistsAndBroadcasts(t *testing.T) {
	svc, repo, bus := newTestService(t)
	doc := createFour(t, svc)

	assert.Equal(t, "Spring Classic", doc.Name)
	assert.Len(t, doc.State.Matches, 2)
	assert.Equal(t, models.TournamentPending, doc.State.Status)

	repo.mu.Lock()
	_, saved := repo.docs[doc.ID]
	repo.mu.Unlock()
	assert.True(t, saved)

	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.NotEmpty(t, bus.envelopes)
	assert.Equal(t, events.EventTournamentState, bus.envelopes[0].Type)
	assert.Equal(t, events.TournamentTopic(doc.ID), bus.envelopes[0].Topic)
}

func TestGetUnknownTournament(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompleteMatchRecordsResultAndDetaches(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := createFour(t, svc)
	m := firstOpenMatch(doc)

	_, err := svc.AttachLiveMatch(context.Background(), doc.ID, m.ID, "live-1")
	require.NoError(t, err)

	err = svc.CompleteMatch(context.Background(), doc.ID, m.ID, bracket.Result{
		WinnerID: m.Teams[0],
		LoserID:  m.Teams[1],
		Scores:   map[models.TeamID]any{m.Teams[0]: 20, m.Teams[1]: 10},
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	completed := got.State.Matches[m.ID]
	assert.Equal(t, models.MatchCompleted, completed.Status)
	assert.Equal(t, m.Teams[0], completed.WinnerID)
	assert.Empty(t, completed.LiveMatchID)
	assert.Equal(t, 20.0, got.State.Records[m.Teams[0]].Points)
}

func TestDrawQuestionsAvoidsRepeatsAcrossMatches(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := createFour(t, svc)
	ctx := context.Background()

	first, err := svc.DrawQuestions(ctx, doc.ID, 10)
	require.NoError(t, err)
	require.Len(t, first, 10)

	second, err := svc.DrawQuestions(ctx, doc.ID, 10)
	require.NoError(t, err)
	require.Len(t, second, 10)

	seen := make(map[string]bool)
	for _, q := range first {
		seen[q.Question.ID] = true
	}
	for _, q := range second {
		assert.False(t, seen[q.Question.ID], "question %s drawn twice", q.Question.ID)
	}

	// instance ids are unique per draw
	assert.NotEqual(t, first[0].InstanceID, second[0].InstanceID)

	got, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, got.State.UsedQuestionIDs, 20)
}

func TestResolveNames(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := createFour(t, svc)

	name, names, err := svc.ResolveNames(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spring Classic", name)
	assert.Equal(t, "Alpha", names["team-a"])
}

func TestFindMatchForTeams(t *testing.T) {
	svc, _, _ := newTestService(t)
	doc := createFour(t, svc)
	m := firstOpenMatch(doc)

	found, ok, err := svc.FindMatchForTeams(context.Background(), doc.ID, m.Teams[1], m.Teams[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m.ID, found.ID)
}

func TestLazyLoadFromRepository(t *testing.T) {
	svc, repo, _ := newTestService(t)
	doc := createFour(t, svc)

	// a fresh service instance faults the document in from storage
	svc2 := NewService(repo, &captureBus{}, clockwork.NewFakeClock(), zerolog.Nop())
	got, err := svc2.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Len(t, got.State.Matches, 2)
}
