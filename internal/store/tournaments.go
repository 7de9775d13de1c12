package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// SaveTournament writes the full tournament document, inserting on first save.
func (s *Store) SaveTournament(ctx context.Context, t *models.Tournament) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.tournaments.ReplaceOne(ctx, bson.M{"_id": t.ID}, t, opts); err != nil {
		return fmt.Errorf("save tournament %s: %w", t.ID, err)
	}
	return nil
}

// GetTournament loads one tournament document by id.
func (s *Store) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.tournaments.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("tournament %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tournament %s: %w", id, err)
	}
	return &t, nil
}

// ListTournaments returns tournaments newest first.
func (s *Store) ListTournaments(ctx context.Context, limit int64) ([]*models.Tournament, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cur, err := s.tournaments.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer cur.Close(ctx)

	var out []*models.Tournament
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode tournaments: %w", err)
	}
	return out, nil
}
