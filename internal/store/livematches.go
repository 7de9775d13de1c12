package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// UpsertLiveMatch writes the full live-match snapshot. The engine calls this
// after every committed transition; the last write wins.
func (s *Store) UpsertLiveMatch(ctx context.Context, m *models.LiveMatch) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.liveMatches.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, opts); err != nil {
		return fmt.Errorf("upsert live match %s: %w", m.ID, err)
	}
	return nil
}

// ActiveLiveMatches returns every snapshot that has not completed, for
// startup recovery.
func (s *Store) ActiveLiveMatches(ctx context.Context) ([]*models.LiveMatch, error) {
	filter := bson.M{"status": bson.M{"$ne": models.LiveCompleted}}
	cur, err := s.liveMatches.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find active live matches: %w", err)
	}
	defer cur.Close(ctx)

	var out []*models.LiveMatch
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode live matches: %w", err)
	}
	return out, nil
}

// DeleteLiveMatch removes a snapshot, used once a match's historical record
// has been written.
func (s *Store) DeleteLiveMatch(ctx context.Context, id string) error {
	if _, err := s.liveMatches.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete live match %s: %w", id, err)
	}
	return nil
}
