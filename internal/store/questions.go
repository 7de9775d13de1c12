package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// SampleQuestions draws up to count random questions, excluding the given
// ids. When the unused pool runs short the draw is topped up from the full
// bank, so repeats only happen once the bank is exhausted.
func (s *Store) SampleQuestions(ctx context.Context, excludeIDs []string, count int) ([]models.Question, error) {
	if count <= 0 {
		return nil, nil
	}
	fresh, err := s.sample(ctx, excludeIDs, count)
	if err != nil {
		return nil, err
	}
	if len(fresh) >= count {
		return fresh, nil
	}

	// top up with repeats, avoiding the ones already drawn
	drawn := make([]string, 0, len(fresh))
	for _, q := range fresh {
		drawn = append(drawn, q.ID)
	}
	repeats, err := s.sample(ctx, drawn, count-len(fresh))
	if err != nil {
		return nil, err
	}
	return append(fresh, repeats...), nil
}

func (s *Store) sample(ctx context.Context, excludeIDs []string, count int) ([]models.Question, error) {
	if excludeIDs == nil {
		excludeIDs = []string{}
	}
	pipeline := []bson.D{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$nin": excludeIDs}}}},
		{{Key: "$sample", Value: bson.M{"size": count}}},
	}
	cur, err := s.questions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Question
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return out, nil
}

// IncrementQuestionStats bumps a question's usage counters atomically.
func (s *Store) IncrementQuestionStats(ctx context.Context, questionID string, correct bool) error {
	inc := bson.M{"stats.times_asked": 1}
	if correct {
		inc["stats.times_correct"] = 1
	}
	_, err := s.questions.UpdateOne(ctx, bson.M{"_id": questionID}, bson.M{"$inc": inc})
	if err != nil {
		return fmt.Errorf("increment stats for question %s: %w", questionID, err)
	}
	return nil
}

// InsertQuestions seeds the question bank, replacing questions that already
// exist by id.
func (s *Store) InsertQuestions(ctx context.Context, questions []models.Question) error {
	for _, q := range questions {
		opts := options.Replace().SetUpsert(true)
		if _, err := s.questions.ReplaceOne(ctx, bson.M{"_id": q.ID}, q, opts); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return nil
}

// CountQuestions reports the size of the question bank.
func (s *Store) CountQuestions(ctx context.Context) (int64, error) {
	n, err := s.questions.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}
