package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// TxRunner runs fn inside a multi-document transaction.
// Repositories called with the ctx handed to fn join the transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store owns the MongoDB client and hands out transactions.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ TxRunner = (*Store)(nil)

// NewStore wraps a connected client and database.
func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{client: client, db: db}
}

// DB returns the database handle repositories are built on.
func (s *Store) DB() *mongo.Database {
	return s.db
}

// WithTransaction starts a session and commits fn's writes atomically.
// The driver retries fn on transient transaction errors, so fn must be safe to re-run.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
