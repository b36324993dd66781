package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"medcircle/internal/db"
	apperrors "medcircle/internal/errors"
	"medcircle/internal/model"
)

// UsernameRepository reserves unique, case-insensitive usernames.
type UsernameRepository interface {
	Reserve(ctx context.Context, username, userID string) error
	Release(ctx context.Context, username string) error
	Exists(ctx context.Context, username string) (bool, error)
}

type usernameRepository struct {
	coll *mongo.Collection
}

// NewUsernameRepository builds a MongoDB-backed repository.
func NewUsernameRepository(database *mongo.Database) UsernameRepository {
	return &usernameRepository{coll: database.Collection(db.CollUsernames)}
}

// Reserve inserts the lowercase name as the document id; a duplicate key means it is taken.
func (r *usernameRepository) Reserve(ctx context.Context, username, userID string) error {
	_, err := r.coll.InsertOne(ctx, model.UsernameReservation{
		Username:  strings.ToLower(username),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.ErrUsernameTaken
	}
	return err
}

func (r *usernameRepository) Release(ctx context.Context, username string) error {
	_, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: strings.ToLower(username)}})
	return err
}

func (r *usernameRepository) Exists(ctx context.Context, username string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: strings.ToLower(username)}})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
