package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medcircle/internal/logging"
)

// Collection names.
const (
	CollUsers        = "users"
	CollUsernames    = "usernames"
	CollPosts        = "posts"
	CollQuestions    = "questions"
	CollVotes        = "votes"
	CollComments     = "comments"
	CollApplications = "trusted_applications"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
	connectTimeout  = 10 * time.Second
)

// NewMongo connects to MongoDB and pings the primary, retrying while the replica set comes up.
func NewMongo(ctx context.Context, uri, name string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(connectTimeout)

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		client, err := mongo.Connect(ctx, opts)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
			var result bson.M
			err = client.Database(name).RunCommand(pingCtx, bson.D{{Key: "ping", Value: 1}}).Decode(&result)
			cancel()
			if err == nil {
				return client, client.Database(name), nil
			}
			_ = client.Disconnect(context.Background())
		}
		lastErr = err
		logging.Logger.Warn().Err(err).Int("attempt", attempt).Msg("mongo not ready, retrying")

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	return nil, nil, fmt.Errorf("connect mongo after %d attempts: %w", connectAttempts, lastErr)
}

// EnsureIndexes creates the indexes the workflows rely on. Existing indexes are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		CollVotes: {
			{
				Keys:    bson.D{{Key: "item_kind", Value: 1}, {Key: "item_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("vote_per_user"),
			},
		},
		CollComments: {
			{Keys: bson.D{{Key: "item_kind", Value: 1}, {Key: "item_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "reply_to.comment_id", Value: 1}}},
		},
		CollApplications: {
			{
				Keys: bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("one_pending_per_user").
					SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: -1}}},
		},
		CollUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
	}
	for _, coll := range []string{CollPosts, CollQuestions} {
		specs[coll] = []mongo.IndexModel{
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "likes", Value: -1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "views", Value: -1}}},
			{Keys: bson.D{{Key: "author_id", Value: 1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
		}
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
