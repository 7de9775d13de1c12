package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// InsertCompletedMatch writes the historical record for a finished live
// match and drops its recovery snapshot.
func (s *Store) InsertCompletedMatch(ctx context.Context, rec *models.CompletedMatch) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.completedMatches.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts); err != nil {
		return fmt.Errorf("insert completed match %s: %w", rec.ID, err)
	}
	return s.DeleteLiveMatch(ctx, rec.ID)
}

// ListCompletedMatches returns a tournament's finished matches, newest first.
func (s *Store) ListCompletedMatches(ctx context.Context, tournamentID string, limit int64) ([]*models.CompletedMatch, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cur, err := s.completedMatches.Find(ctx, bson.M{"tournament_id": tournamentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list completed matches: %w", err)
	}
	defer cur.Close(ctx)

	var out []*models.CompletedMatch
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode completed matches: %w", err)
	}
	return out, nil
}
