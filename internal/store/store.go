// Package store is the MongoDB persistence layer: tournament documents,
// live-match snapshots, the question bank, and completed-match history.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collTournaments      = "tournaments"
	collLiveMatches      = "live_matches"
	collQuestions        = "questions"
	collCompletedMatches = "completed_matches"
)

// Store wraps the database handle and its collections.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	tournaments      *mongo.Collection
	liveMatches      *mongo.Collection
	questions        *mongo.Collection
	completedMatches *mongo.Collection
}

// Connect dials MongoDB, verifies the connection, and returns a ready store.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return NewWithDatabase(client.Database(dbName)), nil
}

// NewWithDatabase builds a store over an existing database handle; tests use
// it to inject mocked databases.
func NewWithDatabase(db *mongo.Database) *Store {
	return &Store{
		client:           db.Client(),
		db:               db,
		tournaments:      db.Collection(collTournaments),
		liveMatches:      db.Collection(collLiveMatches),
		questions:        db.Collection(collQuestions),
		completedMatches: db.Collection(collCompletedMatches),
	}
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
